package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/p4market/catalogdb/internal/database"
	apperrors "github.com/p4market/catalogdb/internal/errors"
	"github.com/p4market/catalogdb/internal/logger"
)

// ErrFailedRecord marks an applied-state record written with success=false.
// Such a record blocks further runs until it is forgotten.
var ErrFailedRecord = errors.New("applied-state record is marked as failed")

// RunnerOptions tunes a Runner
type RunnerOptions struct {
	// UnitTimeout bounds the apply step of each unit; zero means no bound
	UnitTimeout time.Duration
}

// Runner applies pending units in version order, one transaction per unit,
// and stops at the first failure.
type Runner struct {
	db       *gorm.DB
	registry *Registry
	store    *Store
	logger   logger.Logger
	opts     RunnerOptions
	now      func() time.Time
}

// NewRunner creates a new migration runner
func NewRunner(db *gorm.DB, registry *Registry, store *Store, logger logger.Logger, opts RunnerOptions) *Runner {
	return &Runner{
		db:       db,
		registry: registry,
		store:    store,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Plan reports what Run would do without applying anything. Only the
// applied-state table may be created.
func (r *Runner) Plan(ctx context.Context) (*Report, error) {
	report, _, err := r.analyze(ctx, true)
	return report, err
}

// Inspect is Plan without bootstrap: it never writes. A missing
// applied-state table reads as no applied units.
func (r *Runner) Inspect(ctx context.Context) (*Report, error) {
	report, _, err := r.analyze(ctx, false)
	return report, err
}

// Run applies every pending unit. The report is returned even when an
// error is, describing what was applied before the failure.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report, pending, err := r.analyze(ctx, true)
	if err != nil {
		return report, err
	}

	report.Pending = report.Pending[:0]
	for i, unit := range pending {
		if err := ctx.Err(); err != nil {
			report.Pending = outcomes(pending[i:])
			return report, err
		}

		outcome, err := r.apply(ctx, unit)
		if err != nil {
			report.Failed = &Failure{Version: unit.Version, Name: unit.Name, Error: err.Error()}
			report.Pending = outcomes(pending[i+1:])
			r.logger.WithFields(map[string]interface{}{
				"version": unit.Version,
				"name":    unit.Name,
			}).LogError(err, "Migration failed, stopping")
			return report, err
		}
		report.Applied = append(report.Applied, outcome)
	}

	r.logger.LogInfo("Migration run completed", map[string]interface{}{
		"applied": len(report.Applied),
		"skipped": len(report.Skipped),
		"drifted": len(report.Drifted),
		"unknown": len(report.Unknown),
	})
	return report, nil
}

func (r *Runner) analyze(ctx context.Context, bootstrap bool) (*Report, []Unit, error) {
	report := newReport()

	if bootstrap {
		if err := r.store.EnsureBootstrap(ctx); err != nil {
			return report, nil, err
		}
	}

	var records []AppliedRecord
	if bootstrap || r.store.Exists(ctx) {
		var err error
		records, err = r.store.ListApplied(ctx)
		if err != nil {
			return report, nil, err
		}
	}

	applied := make(map[int64]AppliedRecord, len(records))
	for _, rec := range records {
		applied[rec.Version] = rec
	}

	var pending []Unit
	var failedRecord *AppliedRecord
	for _, unit := range r.registry.List() {
		rec, ok := applied[unit.Version]
		if !ok {
			pending = append(pending, unit)
			continue
		}
		if !rec.Success {
			if failedRecord == nil {
				failedRecord = &rec
			}
			continue
		}

		report.Skipped = append(report.Skipped, UnitOutcome{
			Version:     unit.Version,
			Name:        unit.Name,
			Checksum:    rec.Checksum,
			InstalledAt: rec.InstalledAt,
			ExecutionMs: rec.ExecutionMs,
		})
		if rec.Checksum != unit.Checksum {
			drift := Drift{
				Version:  unit.Version,
				Name:     unit.Name,
				Recorded: rec.Checksum,
				Current:  unit.Checksum,
			}
			report.Drifted = append(report.Drifted, drift)
			r.logger.LogWarn("Checksum drift detected", map[string]interface{}{
				"version":  drift.Version,
				"name":     drift.Name,
				"recorded": drift.Recorded,
				"current":  drift.Current,
				"error":    drift.Err().Error(),
			})
		}
	}

	for _, rec := range records {
		if _, ok := r.registry.Lookup(rec.Version); !ok {
			report.Unknown = append(report.Unknown, rec.Version)
			r.logger.LogInfo("Applied migration has no registered unit", map[string]interface{}{
				"version": rec.Version,
				"name":    rec.Name,
			})
		}
	}

	// Units registered below the latest applied version still run, after
	// the versions above them.
	var latest int64
	for _, rec := range records {
		if rec.Version > latest {
			latest = rec.Version
		}
	}
	for _, unit := range pending {
		if unit.Version < latest {
			r.logger.LogWarn("Pending migration is older than the latest applied migration", map[string]interface{}{
				"version":        unit.Version,
				"name":           unit.Name,
				"latest_applied": latest,
			})
		}
	}

	report.Pending = outcomes(pending)

	if failedRecord != nil {
		err := fmt.Errorf("migration %d (%s): %w", failedRecord.Version, failedRecord.Name, ErrFailedRecord)
		report.Failed = &Failure{Version: failedRecord.Version, Name: failedRecord.Name, Error: err.Error()}
		return report, nil, err
	}
	return report, pending, nil
}

// apply executes one unit and records it in the same transaction
func (r *Runner) apply(ctx context.Context, unit Unit) (UnitOutcome, error) {
	unitCtx := ctx
	if r.opts.UnitTimeout > 0 {
		var cancel context.CancelFunc
		unitCtx, cancel = context.WithTimeout(ctx, r.opts.UnitTimeout)
		defer cancel()
	}

	r.logger.LogInfo("Applying migration", map[string]interface{}{
		"version": unit.Version,
		"name":    unit.Name,
	})

	start := r.now()
	var record AppliedRecord
	err := database.WithTransaction(unitCtx, r.db, func(tx *gorm.DB) error {
		if err := database.ExecScript(unitCtx, tx, unit.SQL); err != nil {
			return err
		}
		record = AppliedRecord{
			Version:     unit.Version,
			Name:        unit.Name,
			Checksum:    unit.Checksum,
			InstalledAt: r.now().UTC(),
			Success:     true,
			ExecutionMs: r.now().Sub(start).Milliseconds(),
		}
		return r.store.WithTx(tx).RecordApplied(unitCtx, record)
	})
	if err != nil {
		return UnitOutcome{}, apperrors.NewSQLExecutionError(unit.Version, unit.Name, err)
	}

	r.logger.LogInfo("Migration applied", map[string]interface{}{
		"version":      unit.Version,
		"name":         unit.Name,
		"execution_ms": record.ExecutionMs,
	})
	return UnitOutcome{
		Version:     unit.Version,
		Name:        unit.Name,
		Checksum:    unit.Checksum,
		InstalledAt: record.InstalledAt,
		ExecutionMs: record.ExecutionMs,
	}, nil
}

func outcomes(units []Unit) []UnitOutcome {
	out := make([]UnitOutcome, 0, len(units))
	for _, u := range units {
		out = append(out, UnitOutcome{Version: u.Version, Name: u.Name, Checksum: u.Checksum})
	}
	return out
}
