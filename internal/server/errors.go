package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/machikado/market/internal/authorization"
	conversationdomain "github.com/machikado/market/internal/conversation/domain"
	formdomain "github.com/machikado/market/internal/form/domain"
	memodomain "github.com/machikado/market/internal/memo/domain"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	paymentdomain "github.com/machikado/market/internal/payment/domain"
	productdomain "github.com/machikado/market/internal/product/domain"
	supportdomain "github.com/machikado/market/internal/support/domain"
	transferdomain "github.com/machikado/market/internal/transfer/domain"
	"github.com/machikado/market/pkg/db/pagination"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, payloadFor("validation_error", err)
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}
	case errors.Is(err, ErrForbidden), errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "forbidden"}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}
	case isConflictError(err):
		return http.StatusConflict, payloadFor("conflict", err)
	case errors.Is(err, paymentdomain.ErrThrottled):
		return http.StatusTooManyRequests, errorPayload{Type: "throttled", Message: "too many requests"}
	case isContentionError(err):
		return http.StatusServiceUnavailable, payloadFor("contended", err)
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func payloadFor(kind string, err error) errorPayload {
	return errorPayload{Type: kind, Message: err.Error()}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidQuantity),
		errors.Is(err, paymentdomain.ErrInvalidProduct),
		errors.Is(err, paymentdomain.ErrInvalidOutcome),
		errors.Is(err, ownershipdomain.ErrInvalidAdminState),
		errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidTown),
		errors.Is(err, productdomain.ErrInvalidStock),
		errors.Is(err, productdomain.ErrInvalidID),
		errors.Is(err, conversationdomain.ErrEmptyMessage),
		errors.Is(err, conversationdomain.ErrInvalidSearchQuery),
		errors.Is(err, memodomain.ErrEmptyBody),
		errors.Is(err, formdomain.ErrEmptyPayload),
		errors.Is(err, supportdomain.ErrInvalidSort),
		errors.Is(err, supportdomain.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidToken):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, paymentdomain.ErrUnauthorized),
		errors.Is(err, conversationdomain.ErrUnauthorized),
		errors.Is(err, memodomain.ErrUnauthorized),
		errors.Is(err, supportdomain.ErrUnauthorized):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, ownershipdomain.ErrNotFound),
		errors.Is(err, transferdomain.ErrNotFound),
		errors.Is(err, conversationdomain.ErrNotFound),
		errors.Is(err, memodomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// Conflicts cover both idempotency rejections and state machine violations so
// external callers can distinguish "retry later" from "already done".
func isConflictError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrAlreadyResolved),
		errors.Is(err, paymentdomain.ErrOutOfStock),
		errors.Is(err, ownershipdomain.ErrDuplicateToken),
		errors.Is(err, ownershipdomain.ErrInvalidTransition),
		errors.Is(err, ownershipdomain.ErrNotMinted),
		errors.Is(err, transferdomain.ErrNotMinted):
		return true
	default:
		return false
	}
}

func isContentionError(err error) bool {
	switch {
	case errors.Is(err, transferdomain.ErrTransferContended),
		errors.Is(err, conversationdomain.ErrContended):
		return true
	default:
		return false
	}
}
