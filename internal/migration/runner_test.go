package migration

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/p4market/catalogdb/internal/errors"
)

func TestRunEndToEndDriftAndRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(2, "create product", createProductSQL),
	)

	first := f.run(t, reg)
	assert.Equal(t, []int64{1, 2}, first.AppliedVersions())
	assert.Empty(t, first.DriftedVersions())
	assert.True(t, first.OK())
	assert.True(t, f.hasTable("vendor"))
	assert.True(t, f.hasTable("product"))

	// v1 source edited after it was applied
	edited := f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL+"\n-- add contact columns later\n"),
		NewUnit(2, "create product", createProductSQL),
	)

	second := f.run(t, edited)
	assert.Empty(t, second.AppliedVersions())
	assert.Equal(t, []int64{1}, second.DriftedVersions())
	assert.True(t, second.HasDrift())
	assert.True(t, f.logger.HasWarn("Checksum drift detected"))
	warnings := f.logger.GetWarnMessages()
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1].Fields["error"], "checksum drift for migration 1")

	driftErr := second.Drifted[0].Err()
	var checksumErr *apperrors.ChecksumDriftError
	require.True(t, stderrors.As(driftErr, &checksumErr))
	assert.Equal(t, Checksum(createVendorSQL), checksumErr.Recorded)

	repairReport, err := f.repairer(edited).Repair(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, repairReport.Results, 1)
	assert.Equal(t, StatusRepaired, repairReport.Results[0].Status)

	third := f.run(t, edited)
	assert.Empty(t, third.AppliedVersions())
	assert.Empty(t, third.DriftedVersions())
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	reg := f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(2, "create product", createProductSQL),
	)

	f.run(t, reg)
	second := f.run(t, reg)

	assert.Empty(t, second.Applied)
	assert.Empty(t, second.Drifted)
	assert.Empty(t, second.Pending)
	require.Len(t, second.Skipped, 2)
	assert.Equal(t, int64(1), second.Skipped[0].Version)
}

func TestRunAppliesOnlyNewUnits(t *testing.T) {
	f := newFixture(t)

	f.run(t, f.registry(t, NewUnit(1, "create vendor", createVendorSQL)))
	report := f.run(t, f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(2, "create product", createProductSQL),
	))

	assert.Equal(t, []int64{2}, report.AppliedVersions())
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, int64(1), report.Skipped[0].Version)
}

func TestRunAppliesLateLowerVersionWithWarning(t *testing.T) {
	f := newFixture(t)

	f.run(t, f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(3, "create media asset", "CREATE TABLE media_asset (id TEXT PRIMARY KEY);"),
	))
	assert.False(t, f.logger.HasWarn("Pending migration is older than the latest applied migration"))

	report := f.run(t, f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(2, "create product", createProductSQL),
		NewUnit(3, "create media asset", "CREATE TABLE media_asset (id TEXT PRIMARY KEY);"),
	))
	assert.Equal(t, []int64{2}, report.AppliedVersions())
	assert.True(t, f.logger.HasWarn("Pending migration is older than the latest applied migration"))
}

func TestRunUnitTimeoutStopsRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slowSQL := `CREATE TABLE slow AS
WITH RECURSIVE counter(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM counter WHERE x < 50000000)
SELECT count(*) AS n FROM counter;`
	reg := f.registry(t,
		NewUnit(1, "slow", slowSQL),
		NewUnit(2, "create vendor", createVendorSQL),
	)
	runner := NewRunner(f.db, reg, f.store, f.logger, RunnerOptions{UnitTimeout: 50 * time.Millisecond})

	start := time.Now()
	report, err := runner.Run(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 30*time.Second)

	var execErr *apperrors.SQLExecutionError
	require.True(t, stderrors.As(err, &execErr), "expected SQLExecutionError, got %v", err)
	assert.Equal(t, int64(1), execErr.Version)

	require.NotNil(t, report.Failed)
	assert.Equal(t, int64(1), report.Failed.Version)
	assert.Empty(t, report.Applied)
	require.Len(t, report.Pending, 1)
	assert.Equal(t, int64(2), report.Pending[0].Version)

	assert.False(t, f.hasTable("slow"))
	assert.False(t, f.hasTable("vendor"))
	records, err := f.store.ListApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunFailFastRollsBackFailedUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(2, "create product", "CREATE TABLE product (id TEXT PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);"),
		NewUnit(3, "create media asset", "CREATE TABLE media_asset (id TEXT PRIMARY KEY);"),
	)

	report, err := f.runner(reg).Run(ctx)
	require.Error(t, err)
	require.NotNil(t, report)

	var execErr *apperrors.SQLExecutionError
	require.True(t, stderrors.As(err, &execErr), "expected SQLExecutionError, got %v", err)
	assert.Equal(t, int64(2), execErr.Version)

	assert.Equal(t, []int64{1}, report.AppliedVersions())
	require.NotNil(t, report.Failed)
	assert.Equal(t, int64(2), report.Failed.Version)
	require.Len(t, report.Pending, 1)
	assert.Equal(t, int64(3), report.Pending[0].Version)
	assert.False(t, report.OK())

	// the partial DDL of v2 is rolled back and v3 never ran
	assert.True(t, f.hasTable("vendor"))
	assert.False(t, f.hasTable("product"))
	assert.False(t, f.hasTable("media_asset"))

	records, err := f.store.ListApplied(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].Version)
}

func TestRunBlockedByFailedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))
	require.NoError(t, f.store.RecordApplied(ctx, AppliedRecord{
		Version:     1,
		Name:        "create vendor",
		Checksum:    Checksum(createVendorSQL),
		InstalledAt: time.Now(),
		Success:     false,
	}))

	reg := f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(2, "create product", createProductSQL),
	)
	report, err := f.runner(reg).Run(ctx)
	require.ErrorIs(t, err, ErrFailedRecord)
	require.NotNil(t, report.Failed)
	assert.Equal(t, int64(1), report.Failed.Version)
	assert.Empty(t, report.Applied)
	assert.False(t, f.hasTable("product"))

	// forgetting the failed record unblocks the run
	_, err = f.repairer(reg).Forget(ctx, []int64{1})
	require.NoError(t, err)
	report = f.run(t, reg)
	assert.Equal(t, []int64{1, 2}, report.AppliedVersions())
}

func TestRunReportsUnknownVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))
	require.NoError(t, f.store.RecordApplied(ctx, AppliedRecord{
		Version:     99,
		Name:        "legacy",
		Checksum:    "abc",
		InstalledAt: time.Now(),
		Success:     true,
	}))

	report := f.run(t, f.registry(t, NewUnit(1, "create vendor", createVendorSQL)))
	assert.Equal(t, []int64{99}, report.Unknown)
	assert.Equal(t, []int64{1}, report.AppliedVersions())
	assert.Empty(t, report.Drifted)
}

func TestPlanDoesNotApply(t *testing.T) {
	f := newFixture(t)
	reg := f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(2, "create product", createProductSQL),
	)

	report, err := f.runner(reg).Plan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Applied)
	require.Len(t, report.Pending, 2)
	assert.Equal(t, int64(1), report.Pending[0].Version)
	assert.False(t, f.hasTable("vendor"))
	assert.True(t, f.hasTable(DefaultTable))
}

func TestInspectNeverCreatesStateTable(t *testing.T) {
	f := newFixture(t)
	reg := f.registry(t,
		NewUnit(1, "create vendor", createVendorSQL),
		NewUnit(2, "create product", createProductSQL),
	)

	report, err := f.runner(reg).Inspect(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Pending, 2)
	assert.False(t, f.hasTable(DefaultTable))

	f.run(t, f.registry(t, NewUnit(1, "create vendor", createVendorSQL)))

	report, err = f.runner(reg).Inspect(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Skipped, 1)
	require.Len(t, report.Pending, 1)
	assert.Equal(t, int64(2), report.Pending[0].Version)
}

func TestRunRecordsUnitMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

	runner := f.runner(f.registry(t, NewUnit(1, "create vendor", createVendorSQL)))
	runner.now = func() time.Time { return fixed }

	_, err := runner.Run(ctx)
	require.NoError(t, err)

	rec, err := f.store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "create vendor", rec.Name)
	assert.Equal(t, Checksum(createVendorSQL), rec.Checksum)
	assert.True(t, rec.InstalledAt.Equal(fixed))
	assert.True(t, rec.Success)
	assert.Equal(t, int64(0), rec.ExecutionMs)
}

func TestRunCanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.runner(f.registry(t, NewUnit(1, "create vendor", createVendorSQL))).Run(ctx)
	assert.Error(t, err)
	assert.NotNil(t, report)
	assert.Empty(t, report.Applied)
}
