package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/p4market/catalogdb/internal/config"
	apperrors "github.com/p4market/catalogdb/internal/errors"
)

const defaultConnectTimeout = 10 * time.Second

// DatabaseService implements the Service interface
type DatabaseService struct {
	config *config.DatabaseConfig
	logger Logger
	db     *gorm.DB
}

// NewDatabaseService creates a new database service instance
func NewDatabaseService(config *config.DatabaseConfig, logger Logger) *DatabaseService {
	return &DatabaseService{
		config: config,
		logger: logger,
	}
}

// Connect opens the configured database and verifies it is reachable.
// Every failure is returned as a ConnectionError.
func (s *DatabaseService) Connect(ctx context.Context) (*gorm.DB, error) {
	target := RedactedTarget(s.config)
	s.logger.LogInfo("Connecting to database", map[string]interface{}{
		"driver": s.config.Driver,
		"target": target,
	})

	dial, err := dialector(s.config)
	if err != nil {
		return nil, err
	}

	// Statements are not prepared: migration units are multi-statement
	// scripts and must go through the simple query protocol.
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:                 NewGormLogger(s.logger, s.config.SlowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, apperrors.NewConnectionError("failed to open database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperrors.NewConnectionError("failed to get database instance", err)
	}

	if s.config.Pool.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(s.config.Pool.MaxOpen)
	}
	if s.config.Pool.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(s.config.Pool.MaxIdle)
	}

	timeout := s.config.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := Ping(pingCtx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	s.logger.LogInfo("Connected to database", map[string]interface{}{
		"target": target,
	})
	s.db = db
	return db, nil
}

// Close closes the database connection
func (s *DatabaseService) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return fmt.Errorf("failed to get database instance: %v", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %v", err)
		}
		s.db = nil
	}
	return nil
}

// Ping checks that db answers, reporting failure as a ConnectionError
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return apperrors.NewConnectionError("failed to get database instance", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.NewConnectionError(apperrors.ErrMsgDatabaseReachable, err)
	}
	return nil
}
