package http

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/p4market/catalogdb/internal/errors"
	"github.com/p4market/catalogdb/internal/health"
	"github.com/p4market/catalogdb/internal/verify"
)

// RouterDeps are the collaborators served by the ops router
type RouterDeps struct {
	Logger   Logger
	Health   *health.Handler
	Planner  MigrationPlanner
	Verifier SchemaVerifier
	Tables   []verify.TableSpec
}

// opsHandler serves the read-only migration and schema endpoints
type opsHandler struct {
	responseHandler ResponseHandler
	planner         MigrationPlanner
	verifier        SchemaVerifier
	tables          []verify.TableSpec
}

// NewRouter builds the read-only ops server
func NewRouter(deps RouterDeps) *gin.Engine {
	responseHandler := NewResponseHandler(deps.Logger)
	h := &opsHandler{
		responseHandler: responseHandler,
		planner:         deps.Planner,
		verifier:        deps.Verifier,
		tables:          deps.Tables,
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(responseHandler, deps.Logger))
	router.Use(RequestLoggerMiddleware(deps.Logger))

	router.GET("/health", deps.Health.HandleHealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/migrations", h.handleMigrations)
		v1.GET("/schema", h.handleSchema)
	}

	router.NoRoute(func(c *gin.Context) {
		responseHandler.NotFoundResponse(c, "Route not found")
	})
	return router
}

// handleMigrations reports applied, pending and drifted units. The
// applied-state table is never created from here.
func (h *opsHandler) handleMigrations(c *gin.Context) {
	report, err := h.planner.Inspect(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to read migration state", err)
		return
	}
	h.responseHandler.SuccessResponse(c, report, "Migration state")
}

func (h *opsHandler) handleSchema(c *gin.Context) {
	report, err := h.verifier.Verify(c.Request.Context(), h.tables)
	if err != nil {
		h.fail(c, "Failed to verify schema", err)
		return
	}
	h.responseHandler.SuccessResponse(c, report, "Schema state")
}

func (h *opsHandler) fail(c *gin.Context, message string, err error) {
	var connErr *apperrors.ConnectionError
	if stderrors.As(err, &connErr) {
		h.responseHandler.ErrorResponse(c, http.StatusServiceUnavailable, CodeDatabaseUnavailable, message, err)
		return
	}
	h.responseHandler.InternalErrorResponse(c, message, err)
}
