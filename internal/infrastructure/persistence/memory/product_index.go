// Package memory provides in-memory adapters. The product index lives
// here: retrieval pools are rebuilt wholesale on reload and read-only
// in between, so lookups run lock-free against an immutable snapshot.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cartwise/v3/internal/domain/catalog"
	"github.com/cartwise/v3/internal/infrastructure/ingest"
	"github.com/cartwise/v3/internal/ports/outbound"
	"github.com/cartwise/v3/pkg/errors"
)

// snapshot is one immutable catalog generation.
type snapshot struct {
	pools       map[string][]catalog.Candidate
	stores      []catalog.Store
	fingerprint string
	generation  uint64
	loadedAt    time.Time
	products    int
	skipped     int
}

// ProductIndex is the in-memory retrieval surface over the loaded
// catalog. It implements both the read side used by planning and the
// admin side used by operators.
type ProductIndex struct {
	loader *ingest.Loader
	logger *zap.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// NewProductIndex creates an empty index. Call Reload to load the first
// catalog generation; retrieval before that reports the catalog as
// unavailable.
func NewProductIndex(loader *ingest.Loader, logger *zap.Logger) *ProductIndex {
	return &ProductIndex{
		loader: loader,
		logger: logger.Named("product-index"),
	}
}

// Retrieve returns every candidate for one normalized ingredient key
func (idx *ProductIndex) Retrieve(ctx context.Context, ingredientKey string) ([]catalog.Candidate, error) {
	snap, err := idx.current()
	if err != nil {
		return nil, err
	}

	pool := snap.pools[ingredientKey]
	out := make([]catalog.Candidate, len(pool))
	copy(out, pool)
	return out, nil
}

// RetrieveAll resolves several keys against one snapshot so a plan
// never mixes catalog generations
func (idx *ProductIndex) RetrieveAll(ctx context.Context, ingredientKeys []string) (map[string][]catalog.Candidate, error) {
	snap, err := idx.current()
	if err != nil {
		return nil, err
	}

	pools := make(map[string][]catalog.Candidate, len(ingredientKeys))
	for _, key := range ingredientKeys {
		pool := snap.pools[key]
		out := make([]catalog.Candidate, len(pool))
		copy(out, pool)
		pools[key] = out
	}
	return pools, nil
}

// Stores lists the store roster behind the loaded catalog
func (idx *ProductIndex) Stores(ctx context.Context) ([]catalog.Store, error) {
	snap, err := idx.current()
	if err != nil {
		return nil, err
	}

	out := make([]catalog.Store, len(snap.stores))
	copy(out, snap.stores)
	return out, nil
}

// Fingerprint identifies the loaded catalog generation
func (idx *ProductIndex) Fingerprint(ctx context.Context) (string, error) {
	snap, err := idx.current()
	if err != nil {
		return "", err
	}
	return snap.fingerprint, nil
}

// Reload fetches the catalog from its source and swaps the snapshot
// atomically. In-flight retrievals keep reading the old generation.
func (idx *ProductIndex) Reload(ctx context.Context) error {
	result, err := idx.loader.Load(ctx)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	var generation uint64 = 1
	if idx.snap != nil {
		generation = idx.snap.generation + 1
	}
	idx.snap = &snapshot{
		pools:  result.Pools,
		stores: result.Stores,
		// The generation counter joins the fingerprint so cached plans
		// never outlive a reload, even one that loaded identical bytes.
		fingerprint: fmt.Sprintf("%s-g%d", result.ContentHash, generation),
		generation:  generation,
		loadedAt:    result.LoadedAt,
		products:    result.RowsLoaded,
		skipped:     result.RowsSkipped,
	}
	snap := idx.snap
	idx.mu.Unlock()

	idx.logger.Info("Product index swapped",
		zap.Uint64("generation", snap.generation),
		zap.String("fingerprint", snap.fingerprint),
		zap.Int("products", snap.products),
		zap.Int("rows_skipped", snap.skipped),
	)
	return nil
}

// Stats describes the currently loaded catalog
func (idx *ProductIndex) Stats(ctx context.Context) (outbound.CatalogStats, error) {
	snap, err := idx.current()
	if err != nil {
		return outbound.CatalogStats{}, err
	}
	return outbound.CatalogStats{
		Products:    snap.products,
		Stores:      len(snap.stores),
		RowsSkipped: snap.skipped,
		Generation:  snap.generation,
		Fingerprint: snap.fingerprint,
		LoadedAt:    snap.loadedAt,
		Source:      idx.loader.Source(),
	}, nil
}

// current returns the live snapshot or an unavailability error when no
// catalog has loaded yet.
func (idx *ProductIndex) current() (*snapshot, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.snap == nil {
		return nil, errors.NewCatalogUnavailableError(nil)
	}
	return idx.snap, nil
}
