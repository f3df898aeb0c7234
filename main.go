package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streadway/amqp"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/config"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/ws"
	"storefront/pkg/database"
	"storefront/pkg/rabbitmq"
)

const (
	connectTimeout = 10 * time.Second
	eventTimeout   = 15 * time.Second
	adminTokenTTL  = 24 * time.Hour
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	imagePolicy, err := services.ParseImageFailurePolicy(cfg.ImageFailurePolicy)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Printf("Error during shutdown: %v", err)
			}
		}
	}()

	// --- Storage ---
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	mongoDB, err := openMongo(ctx, cfg, &closers)
	if err != nil {
		cancel()
		log.Fatalf("Failed to initialize MongoDB: %v", err)
	}
	store, err := openProductStore(ctx, cfg, mongoDB)
	if err != nil {
		cancel()
		log.Fatalf("Failed to initialize product store: %v", err)
	}
	mirror, err := openMirror(ctx, cfg, &closers)
	if err != nil {
		cancel()
		log.Fatalf("Failed to initialize local mirror: %v", err)
	}
	cancel()

	var imageStore repositories.ImageStore
	if cfg.ImageDriver == config.DriverGridFS {
		imageStore = repositories.NewGridFSImageStore(mongoDB)
	} else {
		imageStore = repositories.NewMemoryImageStore()
	}

	// --- Events ---
	wsHub := ws.NewHub()
	go wsHub.Run()

	publishers := services.MultiPublisher{wsHub}
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		closers = append(closers, mqClient)
		publishers = append(publishers, mqClient)
	}

	// --- Initialize Services ---
	productService := services.NewProductService(store, mirror, publishers, services.ProductServiceConfig{
		SeedSamples:   cfg.MirrorSeedSamples,
		RemoteTimeout: cfg.RemoteTimeout,
		Instance:      cfg.InstanceID,
	})
	imageService := services.NewImageService(imageStore, services.ImageServiceConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		UploadTimeout: cfg.ImageUploadTimeout,
		FailurePolicy: imagePolicy,
	})
	authService := services.NewAuthService(cfg.JWTSecret, adminTokenTTL)

	if err := productService.RefreshMirror(context.Background()); err != nil {
		log.Printf("Warning: initial mirror sync skipped: %v", err)
	}

	// --- Start RabbitMQ Consumer ---
	if mqClient != nil {
		syncer := services.NewMirrorSyncer(productService, cfg.InstanceID)
		messageHandler := func(msg amqp.Delivery) error {
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			return syncer.HandleEvent(ctx, msg.Body)
		}
		if err := mqClient.ConsumeProductEvents(messageHandler); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	app := newApp(appDeps{
		products:      productService,
		images:        imageService,
		auth:          authService,
		hub:           wsHub,
		maxImageBytes: cfg.ImageMaxBytes,
	})

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s (instance %s, remote %s, mirror %s)", cfg.AppPort, cfg.InstanceID, cfg.RemoteDriver, cfg.MirrorDriver)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openMongo connects when either the product store or the image store lives
// in MongoDB. It returns nil otherwise.
func openMongo(ctx context.Context, cfg *config.Config, closers *[]io.Closer) (*mongo.Database, error) {
	if cfg.RemoteDriver != config.DriverMongo && cfg.ImageDriver != config.DriverGridFS {
		return nil, nil
	}
	client, err := database.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, closerFunc(func() error {
		return client.Disconnect(context.Background())
	}))
	return client.Database(cfg.MongoDatabase), nil
}

func openProductStore(ctx context.Context, cfg *config.Config, mongoDB *mongo.Database) (repositories.ProductStore, error) {
	switch cfg.RemoteDriver {
	case config.DriverMongo:
		store := repositories.NewMongoProductStore(mongoDB.Collection(repositories.ProductsCollection))
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Printf("Warning: could not ensure product indexes: %v", err)
		}
		return store, nil
	case config.DriverPostgres, config.DriverSQLite:
		connect := database.ConnectPostgres
		if cfg.RemoteDriver == config.DriverSQLite {
			connect = database.ConnectSQLite
		}
		db, err := connect(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		store := repositories.NewGORMProductStore(db)
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate products table: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		return repositories.NewMemoryProductStore(), nil
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.RemoteDriver)
	}
}

func openMirror(ctx context.Context, cfg *config.Config, closers *[]io.Closer) (repositories.ProductMirror, error) {
	switch cfg.MirrorDriver {
	case config.DriverSQLite:
		db, err := database.ConnectSQLite(cfg.MirrorPath)
		if err != nil {
			return nil, err
		}
		mirror := repositories.NewGORMMirror(db, repositories.MirrorSlot)
		if err := mirror.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate mirror table: %w", err)
		}
		return mirror, nil
	case config.DriverRedis:
		client, err := repositories.NewRedisClient(ctx, repositories.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, client)
		return repositories.NewRedisMirror(client, repositories.MirrorSlot), nil
	case config.DriverMemory:
		return repositories.NewMemoryMirror(), nil
	default:
		return nil, fmt.Errorf("unknown mirror driver %q", cfg.MirrorDriver)
	}
}
