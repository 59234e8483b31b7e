package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/storeledger/internal/database"
	"go.uber.org/zap"
)

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrValidation):
		return http.StatusBadRequest
	case database.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrConflict),
		errors.Is(err, database.ErrProductInUse),
		errors.Is(err, database.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var stockErr *database.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["shortages"] = stockErr.Shortages
	}
	var vErr *database.ValidationError
	if errors.As(err, &vErr) && vErr.Field != "" {
		body["field"] = vErr.Field
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
