package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/ws"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestDeps(t *testing.T) (appDeps, *repositories.MemoryProductStore) {
	t.Helper()
	store := repositories.NewMemoryProductStore()
	hub := ws.NewHub()
	return appDeps{
		products: services.NewProductService(store, repositories.NewMemoryMirror(), hub, services.ProductServiceConfig{
			SeedSamples: true,
			Instance:    "test",
		}),
		images:        services.NewImageService(repositories.NewMemoryImageStore(), services.ImageServiceConfig{PublicBaseURL: "http://localhost:8080"}),
		auth:          services.NewAuthService("test_jwt_secret", time.Hour),
		hub:           hub,
		maxImageBytes: 1 << 20,
	}, store
}

func TestHealth(t *testing.T) {
	deps, _ := newTestDeps(t)
	app := newApp(deps)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	_, err = time.Parse(time.RFC3339, body["time"])
	assert.NoError(t, err)
}

func TestCatalogFallsBackToSamples(t *testing.T) {
	deps, store := newTestDeps(t)
	store.SetOffline(true)
	app := newApp(deps)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var products []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.Len(t, products, 2)
	assert.Equal(t, "sample-1", products[0].ID)
}

func TestWebsocketRouteRequiresUpgrade(t *testing.T) {
	deps, _ := newTestDeps(t)
	app := newApp(deps)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws/catalog", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestOpenStoresForMemoryDrivers(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("REMOTE_DRIVER", config.DriverMemory)
	v.Set("MIRROR_DRIVER", config.DriverMemory)
	v.Set("IMAGE_DRIVER", config.DriverMemory)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	var closers []io.Closer
	db, err := openMongo(t.Context(), cfg, &closers)
	require.NoError(t, err)
	assert.Nil(t, db)

	store, err := openProductStore(t.Context(), cfg, db)
	require.NoError(t, err)
	assert.IsType(t, &repositories.MemoryProductStore{}, store)

	mirror, err := openMirror(t.Context(), cfg, &closers)
	require.NoError(t, err)
	assert.IsType(t, &repositories.MemoryMirror{}, mirror)
	assert.Empty(t, closers)
}

func TestOpenMirrorSQLite(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("MIRROR_PATH", t.TempDir()+"/mirror.db")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	var closers []io.Closer
	mirror, err := openMirror(t.Context(), cfg, &closers)
	require.NoError(t, err)

	_, seeded, err := mirror.Load(t.Context())
	require.NoError(t, err)
	assert.False(t, seeded)
}
