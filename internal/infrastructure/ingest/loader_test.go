package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/catalog"
)

type stubSource struct {
	payload  string
	version  string
	fetchErr error
}

func (s *stubSource) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	if s.fetchErr != nil {
		return nil, "", s.fetchErr
	}
	return io.NopCloser(strings.NewReader(s.payload)), s.version, nil
}

func (s *stubSource) Describe() string { return "stub:catalog" }

func testStores() []catalog.Store {
	return []catalog.Store{
		{ID: "store-b", Name: "Harvest Depot", Kind: catalog.StoreKindGeneral, DeliveryDays: 9},
		{ID: "store-a", Name: "Greenfield Market", Kind: catalog.StoreKindGeneral, DeliveryDays: 2},
	}
}

func TestLoaderLoadsPoolsAndStores(t *testing.T) {
	source := &stubSource{payload: sampleCatalog, version: "v1"}
	loader, err := NewLoader(source, testStores(), zap.NewNop())
	require.NoError(t, err)

	result, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.RowsLoaded)
	assert.Equal(t, 3, result.RowsSkipped)
	assert.Len(t, result.ContentHash, 16)
	assert.Equal(t, "v1", result.SourceVersion)
	assert.False(t, result.LoadedAt.IsZero())

	// Roster comes back sorted by ID regardless of configuration order.
	require.Len(t, result.Stores, 2)
	assert.Equal(t, "store-a", result.Stores[0].ID)
	assert.Equal(t, "store-b", result.Stores[1].ID)
}

func TestLoaderContentHashTracksPayload(t *testing.T) {
	source := &stubSource{payload: sampleCatalog}
	loader, err := NewLoader(source, testStores(), zap.NewNop())
	require.NoError(t, err)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ContentHash, second.ContentHash)

	source.payload = sampleCatalog + "store-a,Cumin,Ground Cumin,,2.49,2 oz,false\n"
	third, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ContentHash, third.ContentHash)
}

func TestLoaderRejectsBadRosters(t *testing.T) {
	logger := zap.NewNop()
	source := &stubSource{payload: sampleCatalog}

	_, err := NewLoader(source, nil, logger)
	assert.Error(t, err)

	_, err = NewLoader(source, []catalog.Store{
		{ID: "store-a", Name: "One", Kind: catalog.StoreKindGeneral, DeliveryDays: 2},
		{ID: "store-a", Name: "Two", Kind: catalog.StoreKindGeneral, DeliveryDays: 3},
	}, logger)
	assert.ErrorContains(t, err, "configured twice")

	_, err = NewLoader(source, []catalog.Store{{Kind: catalog.StoreKindGeneral}}, logger)
	assert.Error(t, err)
}

func TestLoaderPropagatesFetchErrors(t *testing.T) {
	source := &stubSource{fetchErr: os.ErrNotExist}
	loader, err := NewLoader(source, testStores(), zap.NewNop())
	require.NoError(t, err)

	_, err = loader.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoaderReportsHeaderProblemsWithSource(t *testing.T) {
	source := &stubSource{payload: "store_id,title\n"}
	loader, err := NewLoader(source, testStores(), zap.NewNop())
	require.NoError(t, err)

	_, err = loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stub:catalog")
}

func TestFileSourceReadsAndVersionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	source := NewFileSource(path)
	body, version, err := source.Fetch(context.Background())
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, sampleCatalog, string(data))
	assert.NotEmpty(t, version)
	assert.Equal(t, "file:"+path, source.Describe())
}

func TestFileSourceMissingFile(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "absent.csv"))
	_, _, err := source.Fetch(context.Background())
	assert.Error(t, err)
}
