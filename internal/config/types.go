package config

import (
	"time"

	"github.com/p4market/catalogdb/internal/logger"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the application configuration
type Config struct {
	Environment string          `mapstructure:"environment" yaml:"environment"`
	Database    DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Logging     logger.Config   `mapstructure:"logging" yaml:"logging"`
	Migration   MigrationConfig `mapstructure:"migration" yaml:"migration"`
	Verify      VerifyConfig    `mapstructure:"verify" yaml:"verify"`
	Server      ServerConfig    `mapstructure:"server" yaml:"server"`
}

// DatabaseConfig represents database configuration settings. URL takes
// precedence over the discrete fields when set.
type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver"`
	URL            string        `mapstructure:"url"`
	Host           string        `mapstructure:"host"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Dbname         string        `mapstructure:"dbname"`
	Port           int           `mapstructure:"port"`
	Sslmode        string        `mapstructure:"sslmode"`
	Timezone       string        `mapstructure:"timezone"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	SlowQuery      time.Duration `mapstructure:"slowQuery"`
	Pool           struct {
		MaxOpen int `mapstructure:"maxOpen"`
		MaxIdle int `mapstructure:"maxIdle"`
	} `mapstructure:"pool"`
}

// MigrationConfig controls the migration runner
type MigrationConfig struct {
	// Table holding applied-state records
	Table string `mapstructure:"table"`
	// Dir loads migration units from disk instead of the embedded set
	Dir string `mapstructure:"dir"`
	// UnitTimeout bounds each unit's apply step; zero disables it
	UnitTimeout time.Duration `mapstructure:"unitTimeout"`
	// FailOnDrift makes `up` exit non-zero when drift is reported
	FailOnDrift bool `mapstructure:"failOnDrift"`
}

// VerifyConfig lists the tables the verifier expects. Empty means the
// catalog defaults.
type VerifyConfig struct {
	Tables []TableConfig `mapstructure:"tables"`
}

// TableConfig is one expected table with the columns it must carry
type TableConfig struct {
	Name    string   `mapstructure:"name"`
	Columns []string `mapstructure:"columns"`
}

// ServerConfig represents ops server configuration settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}
