package migration

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/p4market/catalogdb/internal/errors"
)

// Store persists applied-state records in a single table
type Store struct {
	db    *gorm.DB
	table string
}

// NewStore creates a store over table, or DefaultTable when table is empty
func NewStore(db *gorm.DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{
		db:    db,
		table: table,
	}
}

// Table returns the applied-state table name
func (s *Store) Table() string {
	return s.table
}

// WithTx returns the same store bound to tx
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{
		db:    tx,
		table: s.table,
	}
}

// EnsureBootstrap creates the applied-state table if it does not exist.
// Losing a creation race to another runner is not an error.
func (s *Store) EnsureBootstrap(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Migrator().HasTable(s.table) {
		return nil
	}

	createTableSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	checksum TEXT NOT NULL,
	installed_at TIMESTAMP NOT NULL,
	success BOOLEAN NOT NULL DEFAULT TRUE,
	execution_ms BIGINT NOT NULL DEFAULT 0
)`, db.Statement.Quote(s.table))

	if err := db.Exec(createTableSQL).Error; err != nil {
		if db.Migrator().HasTable(s.table) {
			return nil
		}
		return fmt.Errorf("failed to create %s table: %w", s.table, err)
	}
	return nil
}

// Exists reports whether the applied-state table has been created
func (s *Store) Exists(ctx context.Context) bool {
	return s.db.WithContext(ctx).Migrator().HasTable(s.table)
}

// ListApplied returns every record ordered by install time, then version
func (s *Store) ListApplied(ctx context.Context) ([]AppliedRecord, error) {
	var records []AppliedRecord
	err := s.db.WithContext(ctx).
		Table(s.table).
		Order("installed_at").
		Order("version").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	return records, nil
}

// Get returns the record for version
func (s *Store) Get(ctx context.Context, version int64) (*AppliedRecord, error) {
	var record AppliedRecord
	err := s.db.WithContext(ctx).Table(s.table).Where("version = ?", version).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError(version, apperrors.ErrMsgNoAppliedRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load migration %d: %w", version, err)
	}
	return &record, nil
}

// RecordApplied inserts a record. A record for the same version must not exist.
func (s *Store) RecordApplied(ctx context.Context, record AppliedRecord) error {
	if record.InstalledAt.IsZero() {
		return fmt.Errorf("migration %d: installed_at is required", record.Version)
	}
	record.InstalledAt = record.InstalledAt.UTC()

	result := s.db.WithContext(ctx).
		Table(s.table).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to record migration %d: %w", record.Version, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewDuplicateVersionError(record.Version)
	}
	return nil
}

// UpdateChecksum overwrites the stored checksum of version and nothing else
func (s *Store) UpdateChecksum(ctx context.Context, version int64, checksum string) error {
	result := s.db.WithContext(ctx).
		Table(s.table).
		Where("version = ?", version).
		Update("checksum", checksum)
	if result.Error != nil {
		return fmt.Errorf("failed to update checksum of migration %d: %w", version, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError(version, apperrors.ErrMsgNoAppliedRecord)
	}
	return nil
}

// RemoveApplied deletes the record of version so the unit becomes pending again
func (s *Store) RemoveApplied(ctx context.Context, version int64) error {
	result := s.db.WithContext(ctx).
		Table(s.table).
		Where("version = ?", version).
		Delete(&AppliedRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove migration %d: %w", version, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError(version, apperrors.ErrMsgNoAppliedRecord)
	}
	return nil
}
