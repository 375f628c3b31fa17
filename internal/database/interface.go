package database

import (
	"context"

	"github.com/p4market/catalogdb/internal/logger"
	"gorm.io/gorm"
)

// Service defines the interface for database operations
type Service interface {
	Connect(ctx context.Context) (*gorm.DB, error)
	Close() error
}

// Logger interface for logging operations
type Logger = logger.Logger
