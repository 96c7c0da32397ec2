package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/catalog"
	"github.com/cartwise/v3/internal/infrastructure/ingest"
	"github.com/cartwise/v3/pkg/errors"
)

const indexCatalog = `store_id,ingredient,title,brand,price,size,organic
store-a,Turmeric,Organic Turmeric Powder,Bluebird Pantry,7.49,4 oz,true
store-a,Turmeric,Turmeric Powder,Housemark,3.99,4 oz,false
store-b,Onion,Yellow Onions,,1.99,2 lb,false
`

type stubSource struct {
	payload string
}

func (s *stubSource) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader(s.payload)), "v1", nil
}

func (s *stubSource) Describe() string { return "stub:catalog" }

func newTestIndex(t *testing.T) (*ProductIndex, *stubSource) {
	t.Helper()
	source := &stubSource{payload: indexCatalog}
	loader, err := ingest.NewLoader(source, []catalog.Store{
		{ID: "store-a", Name: "Greenfield Market", Kind: catalog.StoreKindGeneral, DeliveryDays: 2},
		{ID: "store-b", Name: "Harvest Depot", Kind: catalog.StoreKindGeneral, DeliveryDays: 3},
	}, zap.NewNop())
	require.NoError(t, err)
	return NewProductIndex(loader, zap.NewNop()), source
}

func TestProductIndexUnavailableBeforeFirstLoad(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.Retrieve(ctx, "turmeric")
	assert.True(t, errors.Is(err, errors.CodeCatalogUnavailable))

	_, err = idx.Stores(ctx)
	assert.True(t, errors.Is(err, errors.CodeCatalogUnavailable))

	_, err = idx.Fingerprint(ctx)
	assert.True(t, errors.Is(err, errors.CodeCatalogUnavailable))
}

func TestProductIndexRetrieveAfterReload(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Reload(ctx))

	pool, err := idx.Retrieve(ctx, "turmeric")
	require.NoError(t, err)
	assert.Len(t, pool, 2)

	// Unknown ingredients are an empty pool, never an error.
	missing, err := idx.Retrieve(ctx, "saffron")
	require.NoError(t, err)
	assert.Empty(t, missing)

	pools, err := idx.RetrieveAll(ctx, []string{"turmeric", "onion", "saffron"})
	require.NoError(t, err)
	assert.Len(t, pools["turmeric"], 2)
	assert.Len(t, pools["onion"], 1)
	assert.Empty(t, pools["saffron"])
}

func TestProductIndexReturnsCopies(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Reload(ctx))

	pool, err := idx.Retrieve(ctx, "turmeric")
	require.NoError(t, err)
	pool[0].Title = "Tampered"

	again, err := idx.Retrieve(ctx, "turmeric")
	require.NoError(t, err)
	assert.NotEqual(t, "Tampered", again[0].Title)
}

func TestProductIndexFingerprintChangesEveryReload(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Reload(ctx))
	first, err := idx.Fingerprint(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first, "-g1"))

	// Same bytes, new generation: cached plans must not survive.
	require.NoError(t, idx.Reload(ctx))
	second, err := idx.Fingerprint(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(second, "-g2"))
	assert.NotEqual(t, first, second)
}

func TestProductIndexStats(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Reload(ctx))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Products)
	assert.Equal(t, 2, stats.Stores)
	assert.Equal(t, uint64(1), stats.Generation)
	assert.Equal(t, "stub:catalog", stats.Source)
	assert.False(t, stats.LoadedAt.IsZero())
}
