package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/founderstab/founders-tab/internal/application/service"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
)

var violationStatus = map[workflow.ErrorKind]int{
	workflow.KindNotFounder:      http.StatusForbidden,
	workflow.KindNotOwner:        http.StatusForbidden,
	workflow.KindSelfApproval:    http.StatusForbidden,
	workflow.KindSelfRejection:   http.StatusForbidden,
	workflow.KindWrongState:      http.StatusConflict,
	workflow.KindAlreadyApproved: http.StatusConflict,
	workflow.KindMissingReason:   http.StatusUnprocessableEntity,
	workflow.KindCooldownActive:  http.StatusTooManyRequests,
}

// writeError maps service and workflow errors to HTTP responses.
// Unexpected errors are logged and hidden behind a generic message.
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	var violation *workflow.Violation
	var validation *service.ValidationError

	switch {
	case errors.As(err, &violation):
		status, ok := violationStatus[violation.Kind]
		if !ok {
			status = http.StatusConflict
		}
		if violation.Kind == workflow.KindCooldownActive {
			c.Header("Retry-After", retryAfterSeconds(violation.RetryAfter))
		}
		c.JSON(status, Response{Success: false, Error: violation.Error(), Code: string(violation.Kind)})
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: validation.Error(), Code: "VALIDATION"})
	case errors.Is(err, service.ErrExpenseNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "expense not found", Code: "NOT_FOUND"})
	case errors.Is(err, service.ErrMemberNotFound):
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "unknown user", Code: "UNKNOWN_USER"})
	default:
		h.logger.Error("Request failed", "operation", op, "error", err, "request_id", c.GetString(ctxRequestID))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal server error"})
	}
}
