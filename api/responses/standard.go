// Package responses writes the admin API response envelopes. Errors are
// rendered as RFC 7807 problem details.
package responses

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

// StandardResponse represents a standard API response format
type StandardResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

func write(c *gin.Context, status int, data interface{}, fallback string, message []string) {
	msg := fallback
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	c.JSON(status, StandardResponse{
		Success:   true,
		Data:      data,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		TraceID:   getTraceID(c),
	})
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}, message ...string) {
	write(c, http.StatusOK, data, "Operation successful", message)
}

// Accepted sends a 202 Accepted response. Order requests are accepted once
// handed to the session; the venue's answer arrives asynchronously.
func Accepted(c *gin.Context, data interface{}, message ...string) {
	write(c, http.StatusAccepted, data, "Request accepted for processing", message)
}

// Error sends err as problem details with the status its kind maps to.
func Error(c *gin.Context, err error) {
	problem := apperrors.NewProblem(err, c.Request.URL.Path)
	c.Header("Content-Type", "application/problem+json")
	c.JSON(problem.Status, problem)
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, detail string, cause error) {
	err := apperrors.InvalidOrder.Explain("%s", detail)
	if cause != nil {
		err = err.Wrap(cause)
	}
	Error(c, err)
}

// getTraceID extracts trace ID from context
func getTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return c.GetHeader("X-Trace-ID")
}
