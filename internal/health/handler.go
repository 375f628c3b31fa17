package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Status is the body of a health response
type Status struct {
	Database string `json:"database"`
	RunID    string `json:"run_id,omitempty"`
}

// Handler handles health check related endpoints
type Handler struct {
	responseHandler ResponseHandler
	ping            Pinger
	runID           string
}

// NewHandler creates a new health check handler
func NewHandler(responseHandler ResponseHandler, ping Pinger, runID string) *Handler {
	return &Handler{
		responseHandler: responseHandler,
		ping:            ping,
		runID:           runID,
	}
}

// HandleHealthCheck reports 200 when the database answers and 503 otherwise
func (h *Handler) HandleHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		h.responseHandler.ErrorResponse(c, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "Database unreachable", err)
		return
	}
	h.responseHandler.SuccessResponse(c, Status{Database: "up", RunID: h.runID}, "Health check successful")
}
