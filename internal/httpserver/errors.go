package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"souq-orders/internal/domain"
)

type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// writeError maps err onto a status code and the JSON error envelope.
// missingStatus is used for *domain.ProductsNotFoundError, which is a client
// error on commit (400) and a lookup miss on preview (404).
func (h *handlers) writeError(c *gin.Context, err error, missingStatus int) {
	status, env := classify(err, missingStatus)
	if status >= http.StatusInternalServerError {
		h.logger.Printf("http: %s %s request_id=%s error=%v", c.Request.Method, c.FullPath(), c.GetString(requestIDKey), err)
	}
	if h.devMode {
		env.Error = err.Error()
		var pe *domain.PersistenceError
		if errors.As(err, &pe) {
			env.Stack = pe.Stack
		}
	}
	c.AbortWithStatusJSON(status, env)
}

func classify(err error, missingStatus int) (int, errorEnvelope) {
	var (
		ve  *domain.ValidationError
		pnf *domain.ProductsNotFoundError
	)
	switch {
	case errors.As(err, &ve):
		env := errorEnvelope{Message: ve.Message}
		if len(ve.Details) > 0 {
			env.Details = ve.Details
		}
		return http.StatusBadRequest, env
	case errors.As(err, &pnf):
		return missingStatus, errorEnvelope{
			Message: "products not found",
			Details: gin.H{"productIds": pnf.IDs},
		}
	case errors.Is(err, domain.ErrTerminalState):
		return http.StatusBadRequest, errorEnvelope{Message: "order can no longer be modified in its current status"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorEnvelope{Message: "not found"}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, errorEnvelope{Message: "duplicate entry"}
	default:
		return http.StatusInternalServerError, errorEnvelope{Message: "internal server error"}
	}
}
