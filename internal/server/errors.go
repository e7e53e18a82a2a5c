package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analysisdomain "github.com/unselab/saju/internal/analysis/domain"
	entitlementdomain "github.com/unselab/saju/internal/entitlement/domain"
	paymentdomain "github.com/unselab/saju/internal/payment/domain"
	referraldomain "github.com/unselab/saju/internal/referral/domain"
	"github.com/unselab/saju/internal/saju/compat"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Shortage int64             `json:"shortage,omitempty"`
	Balance  int64             `json:"balance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal_error")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var insufficient *entitlementdomain.InsufficientPointsError
	if errors.As(err, &insufficient) {
		return http.StatusPaymentRequired, errorPayload{
			Type:     "INSUFFICIENT_POINTS",
			Message:  "not enough points for this product",
			Shortage: insufficient.Shortage(),
			Balance:  insufficient.Balance,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "invalid_signature",
			Message: "webhook signature verification failed",
		}
	case errors.Is(err, analysisdomain.ErrNoVoucher):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "NO_VOUCHER",
			Message: "no unredeemed voucher for this product",
		}
	case errors.Is(err, paymentdomain.ErrConfirmationFailed):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "confirmation_failed",
			Message: "payment confirmation was declined",
		}
	case errors.Is(err, paymentdomain.ErrAmountMismatch):
		return http.StatusBadRequest, errorPayload{
			Type:    "amount_mismatch",
			Message: "amount does not match the pending payment",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger; it must never allocate a
// response.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, analysisdomain.ErrMissingBirthDate),
		errors.Is(err, analysisdomain.ErrInvalidBirthTime),
		errors.Is(err, analysisdomain.ErrInvalidCalendar),
		errors.Is(err, entitlementdomain.ErrInvalidTier),
		errors.Is(err, entitlementdomain.ErrInvalidUser),
		errors.Is(err, entitlementdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidOrderID),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidType),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, referraldomain.ErrInvalidUser),
		errors.Is(err, referraldomain.ErrSelfReferral),
		errors.Is(err, compat.ErrGroupSize):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, analysisdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, compat.ErrGroupSize):
		return "invalid_group_size"
	case errors.Is(err, referraldomain.ErrSelfReferral):
		return "self_referral"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasPrefix(code, "missing_") {
		return strings.TrimPrefix(code, "missing_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_group_size":
		return "group analyses take 2 to 5 members"
	case "self_referral":
		return "a user cannot refer themselves"
	default:
		return "invalid value"
	}
}
