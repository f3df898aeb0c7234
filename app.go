package main

import (
	"time"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/services"
	"storefront/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// appDeps are the services the HTTP layer is built from.
type appDeps struct {
	products      *services.ProductService
	images        *services.ImageService
	auth          *services.AuthService
	hub           *ws.Hub
	maxImageBytes int64
}

// newApp builds the Fiber application and registers every route.
func newApp(d appDeps) *fiber.App {
	maxImageBytes := d.maxImageBytes
	if maxImageBytes <= 0 {
		maxImageBytes = handlers.DefaultMaxImageBytes
	}

	app := fiber.New(fiber.Config{
		AppName: "Storefront",
		// Leave room for the multipart envelope around the image itself.
		BodyLimit: int(maxImageBytes) + 1<<20,
	})

	// --- Middleware ---
	app.Use(logger.New())  // Request logger
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	productHandler := handlers.NewProductHandler(d.products)
	imageHandler := handlers.NewImageHandler(d.images, maxImageBytes)

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	productHandler.RegisterPublicRoutes(apiV1)

	admin := apiV1.Group("", middleware.AdminRequired(d.auth))
	imageHandler.RegisterAdminRoutes(admin)
	productHandler.RegisterAdminRoutes(admin)

	imageHandler.RegisterPublicRoutes(app)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Catalog feed ---
	if d.hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		app.Get("/ws/catalog", websocket.New(d.hub.Serve))
	}

	return app
}
