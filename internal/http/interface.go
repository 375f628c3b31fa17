package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/p4market/catalogdb/internal/logger"
	"github.com/p4market/catalogdb/internal/migration"
	"github.com/p4market/catalogdb/internal/verify"
)

// ResponseHandler defines the interface for handling HTTP responses
type ResponseHandler interface {
	SuccessResponse(c *gin.Context, data interface{}, message string)
	ErrorResponse(c *gin.Context, status int, code, message string, err error)
	NotFoundResponse(c *gin.Context, message string)
	InternalErrorResponse(c *gin.Context, message string, err error)
}

// Logger interface for logging operations
type Logger = logger.Logger

// MigrationPlanner reports migration state without writing anything
type MigrationPlanner interface {
	Inspect(ctx context.Context) (*migration.Report, error)
}

// SchemaVerifier inspects the live schema
type SchemaVerifier interface {
	Verify(ctx context.Context, specs []verify.TableSpec) (*verify.SchemaReport, error)
}
