package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
)

// SnapshotIndexLoader reads the FI indexes of every daily snapshot
type SnapshotIndexLoader interface {
	LoadIndexes() ([]*service.SnapshotIndex, error)
}

// RegistryRepository loads and saves the FI registry
type RegistryRepository interface {
	Load() (entity.Registry, error)
	Save(reg entity.Registry) error
}

// RegistryReconciler adds registry entries for every FI instance the daily
// snapshots mention but the registry lacks.
type RegistryReconciler struct {
	snapshots SnapshotIndexLoader
	registry  RegistryRepository
	policy    service.IntegrationPolicy
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewRegistryReconciler creates a reconciler using service.GuessIntegration.
func NewRegistryReconciler(snapshots SnapshotIndexLoader, registry RegistryRepository, logger *zap.Logger, collector *metrics.Collector) *RegistryReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryReconciler{
		snapshots: snapshots,
		registry:  registry,
		policy:    service.GuessIntegration,
		logger:    logger.Named("registry-reconciler"),
		metrics:   collector,
	}
}

// Run reconciles and writes the registry. Any unreadable or malformed file
// aborts before the registry is written.
func (r *RegistryReconciler) Run(ctx context.Context) (*service.ReconcileResult, error) {
	timer := metrics.NewTimer()

	indexes, err := r.snapshots.LoadIndexes()
	if err != nil {
		r.metrics.RecordAggregation("registry_reconcile", "error", 0, timer.Duration())
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	combos := service.CollectSnapshotCombos(indexes...)

	reg, err := r.registry.Load()
	if err != nil {
		r.metrics.RecordAggregation("registry_reconcile", "error", 0, timer.Duration())
		return nil, err
	}

	result, err := service.ReconcileRegistry(reg, combos, r.policy)
	if err != nil {
		r.metrics.RecordAggregation("registry_reconcile", "error", 0, timer.Duration())
		return nil, err
	}
	if err := r.registry.Save(reg); err != nil {
		r.metrics.RecordAggregation("registry_reconcile", "error", 0, timer.Duration())
		return nil, err
	}

	r.metrics.RecordRegistryAdditions(len(result.Added))
	r.metrics.RecordAggregation("registry_reconcile", "ok", combos.Len(), timer.Duration())
	r.logger.Info(fmt.Sprintf("Added %d missing entries. Total now %d", len(result.Added), result.Total),
		zap.Int("snapshots", len(indexes)),
		zap.Int("combos", combos.Len()),
		zap.Strings("added", result.Added),
		zap.Int("total", result.Total))
	return result, nil
}
