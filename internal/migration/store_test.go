package migration

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/p4market/catalogdb/internal/database"
	apperrors "github.com/p4market/catalogdb/internal/errors"
)

func record(version int64, checksum string, at time.Time) AppliedRecord {
	return AppliedRecord{
		Version:     version,
		Name:        "unit",
		Checksum:    checksum,
		InstalledAt: at,
		Success:     true,
		ExecutionMs: 5,
	}
}

func TestStoreBootstrapIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.EnsureBootstrap(ctx))
	require.NoError(t, f.store.EnsureBootstrap(ctx))
	assert.True(t, f.hasTable(DefaultTable))

	records, err := f.store.ListApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreCustomTable(t *testing.T) {
	f := newFixture(t)
	store := NewStore(f.db, "catalog_history")

	require.NoError(t, store.EnsureBootstrap(context.Background()))
	assert.Equal(t, "catalog_history", store.Table())
	assert.True(t, f.hasTable("catalog_history"))
	assert.False(t, f.hasTable(DefaultTable))
}

func TestStoreRecordAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.RecordApplied(ctx, record(2, "bbb", base.Add(time.Minute))))
	require.NoError(t, f.store.RecordApplied(ctx, record(1, "aaa", base)))

	records, err := f.store.ListApplied(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].Version)
	assert.Equal(t, int64(2), records[1].Version)
	assert.True(t, records[0].InstalledAt.Equal(base))
	assert.True(t, records[0].Success)
	assert.Equal(t, int64(5), records[0].ExecutionMs)

	got, err := f.store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bbb", got.Checksum)
}

func TestStoreRecordDuplicateVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))

	require.NoError(t, f.store.RecordApplied(ctx, record(1, "aaa", time.Now())))
	err := f.store.RecordApplied(ctx, record(1, "zzz", time.Now()))

	var dupErr *apperrors.DuplicateVersionError
	require.True(t, stderrors.As(err, &dupErr), "expected DuplicateVersionError, got %v", err)
	assert.Equal(t, int64(1), dupErr.Version)

	got, err := f.store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "aaa", got.Checksum)
}

func TestStoreRequiresInstalledAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))

	assert.Error(t, f.store.RecordApplied(ctx, AppliedRecord{Version: 1, Checksum: "aaa", Success: true}))
}

func TestStoreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))

	var notFound *apperrors.NotFoundError

	_, err := f.store.Get(ctx, 7)
	assert.True(t, stderrors.As(err, &notFound))

	err = f.store.UpdateChecksum(ctx, 7, "abc")
	assert.True(t, stderrors.As(err, &notFound))

	err = f.store.RemoveApplied(ctx, 7)
	assert.True(t, stderrors.As(err, &notFound))
	assert.Equal(t, int64(7), notFound.Version)
}

func TestStoreUpdateChecksumOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.RecordApplied(ctx, record(1, "old", at)))
	require.NoError(t, f.store.UpdateChecksum(ctx, 1, "new"))

	got, err := f.store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Checksum)
	assert.Equal(t, "unit", got.Name)
	assert.True(t, got.InstalledAt.Equal(at))
	assert.True(t, got.Success)
	assert.Equal(t, int64(5), got.ExecutionMs)
}

func TestStoreRemoveApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))

	require.NoError(t, f.store.RecordApplied(ctx, record(1, "aaa", time.Now())))
	require.NoError(t, f.store.RemoveApplied(ctx, 1))

	records, err := f.store.ListApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreWithTxRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureBootstrap(ctx))

	boom := stderrors.New("boom")
	err := database.WithTransaction(ctx, f.db, func(tx *gorm.DB) error {
		if err := f.store.WithTx(tx).RecordApplied(ctx, record(1, "aaa", time.Now())); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	records, err := f.store.ListApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}
