package migration

import "time"

// DefaultTable is the applied-state table used when none is configured
const DefaultTable = "schema_migrations"

// AppliedRecord tracks one executed migration
type AppliedRecord struct {
	Version     int64     `gorm:"column:version;primaryKey;autoIncrement:false" json:"version" yaml:"version"`
	Name        string    `gorm:"column:name" json:"name" yaml:"name"`
	Checksum    string    `gorm:"column:checksum" json:"checksum" yaml:"checksum"`
	InstalledAt time.Time `gorm:"column:installed_at" json:"installed_at" yaml:"installed_at"`
	Success     bool      `gorm:"column:success" json:"success" yaml:"success"`
	ExecutionMs int64     `gorm:"column:execution_ms" json:"execution_ms" yaml:"execution_ms"`
}
