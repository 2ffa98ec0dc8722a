package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/metrics"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// SnapshotProvider hands out the current SchemaSnapshot, building it on
// first use and after every invalidation. Snapshots are swapped whole;
// readers never see one that is partly built.
type SnapshotProvider struct {
	catalog SchemaCatalog
	metrics *metrics.PipelineMetrics
	logger  *zap.Logger

	current    atomic.Pointer[models.SchemaSnapshot]
	generation atomic.Uint64

	// buildMu serializes builds so concurrent first questions share one.
	buildMu sync.Mutex
}

// NewSnapshotProvider creates a provider with no snapshot yet.
func NewSnapshotProvider(catalog SchemaCatalog, m *metrics.PipelineMetrics, logger *zap.Logger) *SnapshotProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotProvider{
		catalog: catalog,
		metrics: m,
		logger:  logger.Named("snapshot_provider"),
	}
}

// Get returns the snapshot for the current generation, building it if
// needed. Failed builds are not cached; the next call tries again.
func (p *SnapshotProvider) Get(ctx context.Context) (*models.SchemaSnapshot, error) {
	if s := p.fresh(); s != nil {
		return s, nil
	}

	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	if s := p.fresh(); s != nil {
		return s, nil
	}

	gen := p.generation.Load()
	snapshot, err := p.catalog.Build(ctx, gen)
	if err != nil {
		result := metrics.SnapshotError
		if errors.Is(err, models.ErrCatalogEmpty) {
			result = metrics.SnapshotEmpty
		}
		p.metrics.ObserveSnapshotBuild(result)
		return nil, err
	}
	p.metrics.ObserveSnapshotBuild(metrics.SnapshotSuccess)

	// An invalidation during the build means the store changed under us.
	// The caller still gets the snapshot it asked for, but it is not kept.
	if p.generation.Load() == gen {
		p.current.Store(snapshot)
	} else {
		p.logger.Debug("Discarding snapshot built for a superseded generation",
			zap.Uint64("built_for", gen))
	}
	return snapshot, nil
}

// Current returns the cached snapshot without building, or nil.
func (p *SnapshotProvider) Current() *models.SchemaSnapshot {
	return p.fresh()
}

// Invalidate drops the cached snapshot. The next Get rebuilds it.
func (p *SnapshotProvider) Invalidate(reason string) {
	gen := p.generation.Add(1)
	p.current.Store(nil)
	p.logger.Info("Schema snapshot invalidated",
		zap.String("reason", reason),
		zap.Uint64("generation", gen))
}

// Generation returns the current generation counter.
func (p *SnapshotProvider) Generation() uint64 {
	return p.generation.Load()
}

func (p *SnapshotProvider) fresh() *models.SchemaSnapshot {
	s := p.current.Load()
	if s == nil || s.Generation() != p.generation.Load() {
		return nil
	}
	return s
}
