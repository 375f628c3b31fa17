package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	apperrors "github.com/p4market/catalogdb/internal/errors"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// envBindings maps configuration keys to the environment variables the
// deployment scripts already export.
var envBindings = map[string]string{
	"environment":       "ENV",
	"database.driver":   "DB_DRIVER",
	"database.url":      "DB_URL",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.dbname":   "DB_NAME",
	"database.sslmode":  "DB_SSLMODE",
	"logging.level":     "LOG_LEVEL",
	"logging.format":    "LOG_FORMAT",
	"migration.table":   "MIGRATION_TABLE",
	"migration.dir":     "MIGRATION_DIR",
	"server.port":       "SERVER_PORT",
}

// ConfigService implements the Service interface
type ConfigService struct {
	logger Logger
}

// NewConfigService creates a new configuration service
func NewConfigService(logger Logger) *ConfigService {
	return &ConfigService{
		logger: logger,
	}
}

// Load reads config.yaml (optional) from path, the .env file next to it
// (optional) and the process environment, in increasing order of precedence.
func (s *ConfigService) Load(path string) (*Config, error) {
	envFile := filepath.Join(path, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.LogWarn("Failed to load .env file", map[string]interface{}{
			"path":  envFile,
			"error": err.Error(),
		})
	}

	v := viper.New()
	v.AddConfigPath(path)
	if os.Getenv("ENV") == "test" {
		v.SetConfigName("config_test")
	} else {
		v.SetConfigName("config")
	}
	v.SetConfigType("yaml")

	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %v", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
		s.logger.LogInfo("No config file found, using defaults and environment", map[string]interface{}{
			"path": path,
		})
	}

	if err := checkDatabaseTypes(v); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := s.validate(&config); err != nil {
		return nil, err
	}

	s.logger.LogInfo("Configuration loaded successfully", map[string]interface{}{
		"environment": config.Environment,
		"driver":      config.Database.Driver,
	})
	return &config, nil
}

// checkDatabaseTypes rejects connection settings that cannot be decoded,
// such as DB_PORT=abc, before the generic unmarshal reports them as a plain
// error.
func checkDatabaseTypes(v *viper.Viper) error {
	for _, key := range []string{"database.port", "database.pool.maxOpen", "database.pool.maxIdle"} {
		if _, err := cast.ToIntE(v.Get(key)); err != nil {
			return apperrors.NewConnectionError(fmt.Sprintf("malformed database configuration: %s", key), err)
		}
	}
	for _, key := range []string{"database.connectTimeout", "database.slowQuery"} {
		if _, err := cast.ToDurationE(v.Get(key)); err != nil {
			return apperrors.NewConnectionError(fmt.Sprintf("malformed database configuration: %s", key), err)
		}
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.connectTimeout", "10s")
	v.SetDefault("database.slowQuery", "2s")
	v.SetDefault("database.pool.maxOpen", 4)
	v.SetDefault("database.pool.maxIdle", 2)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("migration.table", "schema_migrations")
	v.SetDefault("migration.unitTimeout", "5m")
	v.SetDefault("migration.failOnDrift", false)
	v.SetDefault("server.port", 8090)
}

// validate checks the connection descriptor. Any problem here is fatal
// and reported as a ConnectionError.
func (s *ConfigService) validate(config *Config) error {
	db := &config.Database

	switch db.Driver {
	case DriverPostgres:
		if db.URL != "" {
			if err := applyPasswordOverride(db); err != nil {
				return err
			}
			break
		}
		if db.Host == "" && db.User == "" && db.Dbname == "" {
			return apperrors.NewConnectionError(apperrors.ErrMsgDatabaseRequired, nil)
		}
		if db.Host == "" {
			return apperrors.NewConnectionError("database host is required", nil)
		}
		if db.User == "" {
			return apperrors.NewConnectionError("database user is required", nil)
		}
		if db.Dbname == "" {
			return apperrors.NewConnectionError("database name is required", nil)
		}
		if db.Port <= 0 {
			return apperrors.NewConnectionError("invalid database port", nil)
		}
	case DriverSQLite:
		if db.Dbname == "" && db.URL == "" {
			return apperrors.NewConnectionError("sqlite database path is required", nil)
		}
	default:
		return apperrors.NewConnectionError(fmt.Sprintf("unsupported database driver %q", db.Driver), nil)
	}

	if !tableNamePattern.MatchString(config.Migration.Table) {
		return apperrors.NewConnectionError(fmt.Sprintf("invalid migration table name %q", config.Migration.Table), nil)
	}
	for _, t := range config.Verify.Tables {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("verify.tables entries require a name")
		}
	}
	return nil
}

// applyPasswordOverride validates DB_URL and lets an explicit password
// replace the one embedded in the URL.
func applyPasswordOverride(db *DatabaseConfig) error {
	u, err := url.Parse(db.URL)
	if err != nil {
		return apperrors.NewConnectionError("malformed database url", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return apperrors.NewConnectionError(fmt.Sprintf("unsupported database url scheme %q", u.Scheme), nil)
	}
	if u.Hostname() == "" || strings.TrimPrefix(u.Path, "/") == "" {
		return apperrors.NewConnectionError("database url requires a host and a database name", nil)
	}
	if db.Password != "" && u.User != nil {
		u.User = url.UserPassword(u.User.Username(), db.Password)
		db.URL = u.String()
	}
	return nil
}
