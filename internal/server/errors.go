package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	"github.com/wattshare/wattshare/internal/authorization"
	backupdomain "github.com/wattshare/wattshare/internal/backup/domain"
	chronologydomain "github.com/wattshare/wattshare/internal/chronology/domain"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
	gatedomain "github.com/wattshare/wattshare/internal/gate/domain"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
	purchasedomain "github.com/wattshare/wattshare/internal/purchase/domain"
	receiptdomain "github.com/wattshare/wattshare/internal/receipt/domain"
	reportdomain "github.com/wattshare/wattshare/internal/report/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type                    string   `json:"type"`
	Message                 string   `json:"message"`
	ReasonCode              string   `json:"reason_code,omitempty"`
	BlockingPurchaseID      *string  `json:"blocking_purchase_id,omitempty"`
	NextAvailablePurchaseID *string  `json:"next_available_purchase_id,omitempty"`
	SuggestedMinimum        *float64 `json:"suggested_minimum,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTooManyLogins  = errors.New("too_many_login_attempts")
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
	var denied *gatedomain.DeniedError
	if errors.As(err, &denied) {
		payload := errorPayload{
			Type:       "gate_denied",
			Message:    denied.Decision.Reason,
			ReasonCode: denied.Decision.ReasonCode,
		}
		if id := denied.Decision.BlockingPurchaseID; id != nil {
			str := id.String()
			payload.BlockingPurchaseID = &str
		}
		if id := denied.Decision.NextAvailablePurchaseID; id != nil {
			str := id.String()
			payload.NextAvailablePurchaseID = &str
		}
		return http.StatusBadRequest, payload
	}

	var chronoErr *chronologydomain.ValidationError
	if errors.As(err, &chronoErr) {
		return http.StatusBadRequest, errorPayload{
			Type:             "chronology_violation",
			Message:          chronoErr.Result.Message,
			SuggestedMinimum: chronoErr.Result.SuggestedMinimum,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authdomain.ErrAccountLocked):
		return http.StatusForbidden, errorPayload{
			Type:    "account_locked",
			Message: "account is locked after repeated failed logins",
		}
	case errors.Is(err, authdomain.ErrAccountInactive):
		return http.StatusForbidden, errorPayload{
			Type:    "account_inactive",
			Message: "account is deactivated",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, contributiondomain.ErrDuplicate):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "purchase already has a contribution",
		}
	case errors.Is(err, receiptdomain.ErrDuplicate):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "purchase already has a receipt",
		}
	case errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "email already registered",
		}
	case errors.Is(err, receiptdomain.ErrAmountMismatch):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "receipt total does not match purchase payment",
		}
	case errors.Is(err, ErrTooManyLogins):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many login attempts, retry later",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, purchasedomain.ErrPurchaseNotFound),
		errors.Is(err, contributiondomain.ErrContributionNotFound),
		errors.Is(err, meterreadingdomain.ErrMeterReadingNotFound),
		errors.Is(err, receiptdomain.ErrReceiptNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, purchasedomain.ErrInvalidID),
		errors.Is(err, purchasedomain.ErrInvalidTokens),
		errors.Is(err, purchasedomain.ErrInvalidPayment),
		errors.Is(err, purchasedomain.ErrInvalidMeterReading),
		errors.Is(err, purchasedomain.ErrInvalidDate),
		errors.Is(err, purchasedomain.ErrInvalidPageToken),
		errors.Is(err, contributiondomain.ErrInvalidID),
		errors.Is(err, contributiondomain.ErrInvalidAmount),
		errors.Is(err, contributiondomain.ErrInvalidMeterReading),
		errors.Is(err, contributiondomain.ErrInvalidPageToken),
		errors.Is(err, meterreadingdomain.ErrInvalidID),
		errors.Is(err, meterreadingdomain.ErrInvalidReading),
		errors.Is(err, meterreadingdomain.ErrInvalidDate),
		errors.Is(err, meterreadingdomain.ErrInvalidPageToken),
		errors.Is(err, receiptdomain.ErrInvalidID),
		errors.Is(err, receiptdomain.ErrInvalidFileName),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrInvalidPassword),
		errors.Is(err, authdomain.ErrInvalidRole),
		errors.Is(err, authdomain.ErrInvalidID),
		errors.Is(err, backupdomain.ErrInvalidDocument),
		errors.Is(err, backupdomain.ErrInvalidType),
		errors.Is(err, reportdomain.ErrUnknownTable):
		return true
	default:
		return false
	}
}
