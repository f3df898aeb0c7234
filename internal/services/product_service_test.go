package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductStore is a mock implementation of repositories.ProductStore.
type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) List(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductStore) Insert(ctx context.Context, product *models.Product) (string, error) {
	args := m.Called(ctx, product)
	return args.String(0), args.Error(1)
}

func (m *MockProductStore) Update(ctx context.Context, id string, patch models.ProductPatch, updatedAt time.Time) error {
	args := m.Called(ctx, id, patch, updatedAt)
	return args.Error(0)
}

func (m *MockProductStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher records published product events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductEvent(event models.ProductEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type serviceFixture struct {
	service *ProductService
	store   *repositories.MemoryProductStore
	mirror  *repositories.MemoryMirror
	clock   *fakeClock
}

func newServiceFixture(seedSamples bool) serviceFixture {
	store := repositories.NewMemoryProductStore()
	mirror := repositories.NewMemoryMirror()
	clock := newFakeClock()
	svc := NewProductService(store, mirror, nil, ProductServiceConfig{
		SeedSamples: seedSamples,
		Instance:    "test",
	})
	svc.SetClock(clock.Now)
	return serviceFixture{service: svc, store: store, mirror: mirror, clock: clock}
}

func denimJacket() models.Product {
	return models.Product{
		Name:        "Denim Jacket",
		Price:       89.5,
		Description: "Stonewashed denim with brass buttons.",
		Category:    "Jackets",
		Sizes:       []string{"M", "L"},
		Colors:      []models.Color{{Name: "Indigo", Value: "#1E3A8A"}},
		Images:      []string{"https://cdn.example.com/images/denim.jpg"},
		Features:    []string{"Cotton Denim", "Brass Buttons"},
	}
}

func productNamed(name, category string) models.Product {
	p := denimJacket()
	p.Name = name
	p.Category = category
	return p
}

func findProduct(products []models.Product, id string) (models.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func TestProductService_List_NewestFirst(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"First", "Second", "Third"} {
		res, err := f.service.Create(ctx, productNamed(name, "Hoodies"))
		require.NoError(t, err)
		ids = append(ids, res.ID)
		f.clock.Advance(time.Second)
	}

	products := f.service.List(ctx)
	require.Len(t, products, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{products[0].ID, products[1].ID, products[2].ID})
	for i := 1; i < len(products); i++ {
		assert.False(t, products[i].CreatedAt.After(products[i-1].CreatedAt))
	}
}

func TestProductService_List_RemoteDownReturnsLastSync(t *testing.T) {
	f := newServiceFixture(true)
	ctx := context.Background()

	_, err := f.service.Create(ctx, productNamed("Kept", "Pants"))
	require.NoError(t, err)
	synced := f.service.List(ctx)
	require.Len(t, synced, 1)

	f.store.SetOffline(true)
	assert.Equal(t, synced, f.service.List(ctx))
	assert.Equal(t, synced, f.service.List(ctx))
}

func TestProductService_List_UnseededMirror(t *testing.T) {
	t.Run("seeds sample catalog", func(t *testing.T) {
		f := newServiceFixture(true)
		f.store.SetOffline(true)

		products := f.service.List(context.Background())
		require.Len(t, products, 2)
		assert.Equal(t, "sample-1", products[0].ID)
		assert.Equal(t, "sample-2", products[1].ID)

		_, seeded, err := f.mirror.Load(context.Background())
		require.NoError(t, err)
		assert.True(t, seeded)
	})

	t.Run("empty without seeding", func(t *testing.T) {
		f := newServiceFixture(false)
		f.store.SetOffline(true)

		products := f.service.List(context.Background())
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})
}

func TestProductService_List_MalformedMirrorIsEmpty(t *testing.T) {
	f := newServiceFixture(true)
	f.store.SetOffline(true)
	f.mirror.SetRaw([]byte("{not json"))

	products := f.service.List(context.Background())
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProductService_ListByCategory(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()

	_, err := f.service.Create(ctx, productNamed("Hood", "Hoodies"))
	require.NoError(t, err)
	_, err = f.service.Create(ctx, productNamed("Cap", "Accessories"))
	require.NoError(t, err)

	hoodies := f.service.ListByCategory(ctx, "Hoodies")
	require.Len(t, hoodies, 1)
	assert.Equal(t, "Hood", hoodies[0].Name)
	assert.Len(t, f.service.ListByCategory(ctx, ""), 2)
	assert.Empty(t, f.service.ListByCategory(ctx, "Shoes"))
}

func TestProductService_Create_RoundTrip(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()
	input := denimJacket()

	res, err := f.service.Create(ctx, input)
	require.NoError(t, err)
	assert.True(t, res.Synced)
	assert.NotEmpty(t, res.ID)

	got, err := f.service.Get(ctx, res.ID)
	require.NoError(t, err)

	expected := input
	expected.ID = res.ID
	expected.CreatedAt = models.Timestamp(f.clock.Now())
	expected.UpdatedAt = expected.CreatedAt
	rating, reviews := models.DefaultRating, models.DefaultReviews
	expected.Rating = &rating
	expected.Reviews = &reviews
	assert.Equal(t, expected, *got)
}

func TestProductService_Create_RemoteDownKeepsLocalCopy(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()
	f.store.SetOffline(true)

	res, err := f.service.Create(ctx, denimJacket())
	require.NoError(t, err)
	assert.False(t, res.Synced)
	assert.Equal(t, strconv.FormatInt(f.clock.Now().UnixMilli(), 10), res.ID)

	listed, ok := findProduct(f.service.List(ctx), res.ID)
	require.True(t, ok)
	assert.Equal(t, "Denim Jacket", listed.Name)
	assert.Equal(t, 89.5, listed.Price)
	assert.Equal(t, []string{"M", "L"}, listed.Sizes)
}

func TestProductService_Create_RemoteDownSeedsSamplesFirst(t *testing.T) {
	f := newServiceFixture(true)
	ctx := context.Background()
	f.store.SetOffline(true)

	res, err := f.service.Create(ctx, denimJacket())
	require.NoError(t, err)

	products := f.service.List(ctx)
	require.Len(t, products, 3)
	assert.Equal(t, res.ID, products[0].ID)
	_, ok := findProduct(products, "sample-1")
	assert.True(t, ok)
	_, ok = findProduct(products, "sample-2")
	assert.True(t, ok)
}

func TestProductService_Create_LocalIDsDoNotCollide(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()
	f.store.SetOffline(true)

	first, err := f.service.Create(ctx, productNamed("One", "Pants"))
	require.NoError(t, err)
	second, err := f.service.Create(ctx, productNamed("Two", "Pants"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, f.service.List(ctx), 2)
}

func TestProductService_Create_Invalid(t *testing.T) {
	store := new(MockProductStore)
	svc := NewProductService(store, repositories.NewMemoryMirror(), nil, ProductServiceConfig{})

	input := denimJacket()
	input.Name = ""
	input.Category = "Shoes"

	_, err := svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, models.ErrInvalidProduct)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestProductService_Create_DropsDuplicateSizes(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()
	input := denimJacket()
	input.Sizes = []string{"S", "M", "S", "L", "M"}

	res, err := f.service.Create(ctx, input)
	require.NoError(t, err)

	got, err := f.service.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "M", "L"}, got.Sizes)
}

func TestProductService_Update_PartialPrice(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()

	res, err := f.service.Create(ctx, denimJacket())
	require.NoError(t, err)
	before, err := f.service.Get(ctx, res.ID)
	require.NoError(t, err)

	// Same clock reading: updatedAt must still move forward.
	price := 10.0
	upd, err := f.service.Update(ctx, res.ID, models.ProductPatch{Price: &price})
	require.NoError(t, err)
	assert.True(t, upd.Synced)
	assert.Equal(t, res.ID, upd.ID)

	after, err := f.service.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, after.Price)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	expected := *before
	expected.Price = 10
	expected.UpdatedAt = after.UpdatedAt
	assert.Equal(t, expected, *after)

	mirrored, ok := findProduct(f.service.List(ctx), res.ID)
	require.True(t, ok)
	assert.Equal(t, 10.0, mirrored.Price)
}

func TestProductService_Update_RemoteDownPatchesMirror(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()

	res, err := f.service.Create(ctx, denimJacket())
	require.NoError(t, err)
	f.service.List(ctx)

	f.store.SetOffline(true)
	f.clock.Advance(time.Minute)
	name := "Washed Denim Jacket"
	upd, err := f.service.Update(ctx, res.ID, models.ProductPatch{Name: &name})
	require.NoError(t, err)
	assert.False(t, upd.Synced)

	mirrored, ok := findProduct(f.service.List(ctx), res.ID)
	require.True(t, ok)
	assert.Equal(t, name, mirrored.Name)
	assert.Equal(t, models.Timestamp(f.clock.Now()), mirrored.UpdatedAt)
}

func TestProductService_Update_RemoteDownUnknownID(t *testing.T) {
	f := newServiceFixture(false)
	f.store.SetOffline(true)

	price := 1.0
	_, err := f.service.Update(context.Background(), "missing", models.ProductPatch{Price: &price})
	assert.ErrorIs(t, err, models.ErrRemoteUnavailable)
}

func TestProductService_Update_NotFound(t *testing.T) {
	f := newServiceFixture(false)

	price := 1.0
	_, err := f.service.Update(context.Background(), "missing", models.ProductPatch{Price: &price})
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestProductService_Update_Invalid(t *testing.T) {
	f := newServiceFixture(false)

	price := -3.0
	_, err := f.service.Update(context.Background(), "any", models.ProductPatch{Price: &price})
	assert.ErrorIs(t, err, models.ErrInvalidProduct)
}

func TestProductService_Update_EmptyPatch(t *testing.T) {
	store := new(MockProductStore)
	svc := NewProductService(store, repositories.NewMemoryMirror(), nil, ProductServiceConfig{})

	_, err := svc.Update(context.Background(), "p-1", models.ProductPatch{})
	assert.ErrorIs(t, err, models.ErrInvalidProduct)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestProductService_Update_SlowRemoteDoesNotBlockList(t *testing.T) {
	store := new(MockProductStore)
	svc := NewProductService(store, repositories.NewMemoryMirror(), nil, ProductServiceConfig{SeedSamples: true})

	entered := make(chan struct{})
	release := make(chan struct{})
	store.On("Get", mock.Anything, "p-1").Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(nil, errors.New("connection reset"))
	store.On("List", mock.Anything).Return(nil, errors.New("connection refused"))

	updated := make(chan error, 1)
	go func() {
		price := 5.0
		_, err := svc.Update(context.Background(), "p-1", models.ProductPatch{Price: &price})
		updated <- err
	}()
	<-entered

	listed := make(chan []models.Product, 1)
	go func() {
		listed <- svc.List(context.Background())
	}()
	select {
	case products := <-listed:
		assert.Len(t, products, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("List waited for the in-flight update")
	}

	close(release)
	assert.ErrorIs(t, <-updated, models.ErrRemoteUnavailable)
	store.AssertExpectations(t)
}

func TestProductService_Update_RemoteWriteFails(t *testing.T) {
	store := new(MockProductStore)
	mirror := repositories.NewMemoryMirror()
	svc := NewProductService(store, mirror, nil, ProductServiceConfig{})

	current := denimJacket()
	current.ID = "p-1"
	current.Normalize()
	current.CreatedAt = models.Timestamp(time.Now().Add(-time.Hour))
	current.UpdatedAt = current.CreatedAt

	price := 12.0
	patch := models.ProductPatch{Price: &price}
	store.On("Get", mock.Anything, "p-1").Return(&current, nil)
	store.On("Update", mock.Anything, "p-1", patch, mock.AnythingOfType("time.Time")).Return(errors.New("write concern timeout"))

	res, err := svc.Update(context.Background(), "p-1", patch)
	require.NoError(t, err)
	assert.False(t, res.Synced)

	products, _, err := mirror.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 12.0, products[0].Price)
	store.AssertExpectations(t)
}

func TestProductService_Delete_ThenGetIsNotFound(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()

	res, err := f.service.Create(ctx, denimJacket())
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, res.ID))

	_, err = f.service.Get(ctx, res.ID)
	assert.ErrorIs(t, err, models.ErrProductNotFound)

	f.store.SetOffline(true)
	_, ok := findProduct(f.service.List(ctx), res.ID)
	assert.False(t, ok, "deleted product must leave the mirror too")
}

func TestProductService_Delete_RemoteDown(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()

	res, err := f.service.Create(ctx, denimJacket())
	require.NoError(t, err)

	f.store.SetOffline(true)
	err = f.service.Delete(ctx, res.ID)
	assert.ErrorIs(t, err, models.ErrRemoteUnavailable)

	_, ok := findProduct(f.service.List(ctx), res.ID)
	assert.True(t, ok)
}

func TestProductService_Delete_LocalOnlyProduct(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()

	f.store.SetOffline(true)
	res, err := f.service.Create(ctx, denimJacket())
	require.NoError(t, err)
	f.store.SetOffline(false)

	err = f.service.Delete(ctx, res.ID)
	assert.ErrorIs(t, err, models.ErrProductNotFound)

	f.store.SetOffline(true)
	_, ok := findProduct(f.service.List(ctx), res.ID)
	assert.False(t, ok)
}

func TestProductService_Get_RemoteDown(t *testing.T) {
	f := newServiceFixture(true)
	f.store.SetOffline(true)

	_, err := f.service.Get(context.Background(), "sample-1")
	assert.ErrorIs(t, err, models.ErrRemoteUnavailable)
	assert.NotErrorIs(t, err, models.ErrProductNotFound)
}

func TestProductService_PublishesEvents(t *testing.T) {
	publisher := new(MockPublisher)
	store := repositories.NewMemoryProductStore()
	svc := NewProductService(store, repositories.NewMemoryMirror(), publisher, ProductServiceConfig{Instance: "node-a"})
	ctx := context.Background()

	publisher.On("PublishProductEvent", mock.MatchedBy(func(e models.ProductEvent) bool {
		return e.Type == models.EventProductCreated && e.Instance == "node-a" && e.Synced
	})).Return(nil).Once()
	publisher.On("PublishProductEvent", mock.MatchedBy(func(e models.ProductEvent) bool {
		return e.Type == models.EventProductUpdated && e.Instance == "node-a"
	})).Return(errors.New("broker gone")).Once()
	publisher.On("PublishProductEvent", mock.MatchedBy(func(e models.ProductEvent) bool {
		return e.Type == models.EventProductDeleted && e.Instance == "node-a"
	})).Return(nil).Once()

	res, err := svc.Create(ctx, denimJacket())
	require.NoError(t, err)

	// A failing publisher does not fail the write.
	name := "Renamed"
	_, err = svc.Update(ctx, res.ID, models.ProductPatch{Name: &name})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, res.ID))
	publisher.AssertExpectations(t)
}

func TestProductService_ConcurrentCreatesOffline(t *testing.T) {
	f := newServiceFixture(false)
	ctx := context.Background()
	f.store.SetOffline(true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.service.Create(ctx, productNamed("Item "+strconv.Itoa(i), "Accessories"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	products := f.service.List(ctx)
	assert.Len(t, products, 20)
	seen := map[string]bool{}
	for _, p := range products {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}
