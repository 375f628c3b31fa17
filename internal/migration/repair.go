package migration

import (
	"context"
	"errors"

	apperrors "github.com/p4market/catalogdb/internal/errors"
	"github.com/p4market/catalogdb/internal/logger"
)

// Repairer re-aligns stored checksums with the registry. It never executes
// unit SQL and never checks the live schema.
type Repairer struct {
	registry *Registry
	store    *Store
	logger   logger.Logger
}

// NewRepairer creates a new repairer
func NewRepairer(registry *Registry, store *Store, logger logger.Logger) *Repairer {
	return &Repairer{
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// Repair processes every requested version independently. A failure for
// one version does not stop the others; the joined per-version errors are
// returned next to the full report.
func (r *Repairer) Repair(ctx context.Context, versions []int64) (*RepairReport, error) {
	report := &RepairReport{Results: make([]RepairResult, 0, len(versions))}
	var errs []error

	for _, version := range versions {
		result, err := r.repairOne(ctx, version)
		if err != nil {
			result.Status = StatusFailed
			result.Error = err.Error()
			errs = append(errs, err)
			r.logger.WithFields(map[string]interface{}{"version": version}).LogError(err, "Repair failed")
		}
		report.Results = append(report.Results, result)
	}
	return report, errors.Join(errs...)
}

// RepairDrifted repairs every applied version whose checksum differs from
// its registered unit.
func (r *Repairer) RepairDrifted(ctx context.Context) (*RepairReport, error) {
	records, err := r.store.ListApplied(ctx)
	if err != nil {
		return &RepairReport{Results: []RepairResult{}}, err
	}

	var drifted []int64
	for _, rec := range records {
		if unit, ok := r.registry.Lookup(rec.Version); ok && unit.Checksum != rec.Checksum {
			drifted = append(drifted, rec.Version)
		}
	}
	if len(drifted) == 0 {
		r.logger.LogInfo("No drifted migrations to repair", nil)
	}
	return r.Repair(ctx, drifted)
}

func (r *Repairer) repairOne(ctx context.Context, version int64) (RepairResult, error) {
	result := RepairResult{Version: version}

	record, err := r.store.Get(ctx, version)
	if err != nil {
		return result, err
	}
	result.Previous = record.Checksum

	unit, ok := r.registry.Lookup(version)
	if !ok {
		return result, apperrors.NewNotFoundError(version, apperrors.ErrMsgNoMigrationUnit)
	}
	result.Current = unit.Checksum

	if record.Checksum == unit.Checksum {
		result.Status = StatusUnchanged
		return result, nil
	}

	if err := r.store.UpdateChecksum(ctx, version, unit.Checksum); err != nil {
		return result, err
	}
	result.Status = StatusRepaired
	r.logger.LogInfo("Checksum repaired", map[string]interface{}{
		"version":  version,
		"previous": record.Checksum,
		"current":  unit.Checksum,
	})
	return result, nil
}

// Forget deletes the applied-state records of versions so the next run
// applies those units again. It does not touch the schema objects the
// units created.
func (r *Repairer) Forget(ctx context.Context, versions []int64) (*RepairReport, error) {
	report := &RepairReport{Results: make([]RepairResult, 0, len(versions))}
	var errs []error

	for _, version := range versions {
		result := RepairResult{Version: version, Status: StatusForgotten}
		if err := r.store.RemoveApplied(ctx, version); err != nil {
			result.Status = StatusFailed
			result.Error = err.Error()
			errs = append(errs, err)
			r.logger.WithFields(map[string]interface{}{"version": version}).LogError(err, "Forget failed")
		} else {
			r.logger.LogWarn("Applied-state record removed", map[string]interface{}{
				"version": version,
			})
		}
		report.Results = append(report.Results, result)
	}
	return report, errors.Join(errs...)
}
