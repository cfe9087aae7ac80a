package handlers

import (
	"errors"
	"net/http"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/http/middleware"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

var errorCodes = []struct {
	target error
	code   string
}{
	{domain.ErrSlotConflict, "slot_conflict"},
	{domain.ErrNoTechniciansAvailable, "no_technicians_available"},
	{domain.ErrInvalidTransition, "invalid_transition"},
	{domain.ErrUnknownStatus, "unknown_status"},
	{domain.ErrMissingPackageOrSlot, "missing_package_or_slot"},
	{domain.ErrBookingClosed, "booking_closed"},
}

func errorCode(err error, fallback string) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.target) {
			return ec.code
		}
	}
	return fallback
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, errorCode(err, "validation_error"), err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, errorCode(err, "conflict"), err.Error(), nil)
	case domain.IsInternal(err):
		utils.Logger().Error("internal error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(errors.Unwrap(err)),
		)
		respondError(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	default:
		utils.Logger().Error("unhandled error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
