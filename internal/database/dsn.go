package database

import (
	"fmt"
	"net/url"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/p4market/catalogdb/internal/config"
	apperrors "github.com/p4market/catalogdb/internal/errors"
)

// BuildDSN returns the connection string for the configured driver. A URL
// is passed through unchanged.
func BuildDSN(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	if cfg.Driver == config.DriverSQLite {
		return cfg.Dbname
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		cfg.Host,
		cfg.User,
		cfg.Password,
		cfg.Dbname,
		cfg.Port,
		cfg.Sslmode,
	)
	if cfg.Timezone != "" {
		dsn += " TimeZone=" + cfg.Timezone
	}
	if cfg.ConnectTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", int(cfg.ConnectTimeout.Seconds()))
	}
	return dsn
}

// RedactedTarget describes the connection target without credentials
func RedactedTarget(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return "<unparsable url>"
		}
		return u.Redacted()
	}
	if cfg.Driver == config.DriverSQLite {
		return "sqlite:" + cfg.Dbname
	}
	return fmt.Sprintf("host=%s dbname=%s port=%d", cfg.Host, cfg.Dbname, cfg.Port)
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	dsn := BuildDSN(cfg)
	switch cfg.Driver {
	case config.DriverPostgres, "":
		return postgres.Open(dsn), nil
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, apperrors.NewConnectionError(fmt.Sprintf("unsupported database driver %q", cfg.Driver), nil)
	}
}
