package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	reconciledomain "github.com/smallbiznis/adledger/internal/reconcile/domain"
	settlementdomain "github.com/smallbiznis/adledger/internal/settlement/domain"
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
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

// classifyErrorForLog returns the payload type only; messages stay out of request logs.
func classifyErrorForLog(err error) string {
	_, payload := mapError(err)
	return payload.Type
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
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, billdomain.ErrRendererMissing):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	if errors.Is(err, ErrInvalidRequest) {
		return true
	}
	return strings.HasPrefix(validationErrorCode(err), "invalid_") ||
		errors.Is(err, rechargedomain.ErrCurrencyMismatch) ||
		errors.Is(err, consumptiondomain.ErrCurrencyMismatch) ||
		errors.Is(err, settlementdomain.ErrEmptySelection) ||
		errors.Is(err, settlementdomain.ErrAccountMismatch) ||
		errors.Is(err, settlementdomain.ErrMonthMismatch)
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, rechargedomain.ErrInvalidTransition),
		errors.Is(err, rechargedomain.ErrStatusConflict),
		errors.Is(err, settlementdomain.ErrAlreadySettled),
		errors.Is(err, settlementdomain.ErrSettlementConflict),
		errors.Is(err, settlementdomain.ErrNothingToSettle),
		errors.Is(err, settlementdomain.ErrBatchPending),
		errors.Is(err, billdomain.ErrDraftConflict),
		errors.Is(err, billdomain.ErrBillNotDraft),
		errors.Is(err, rebatedomain.ErrStatusRegression):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, agencydomain.ErrNotFound),
		errors.Is(err, adaccountdomain.ErrNotFound),
		errors.Is(err, rechargedomain.ErrNotFound),
		errors.Is(err, rechargedomain.ErrAccountNotFound),
		errors.Is(err, consumptiondomain.ErrNotFound),
		errors.Is(err, consumptiondomain.ErrAccountNotFound),
		errors.Is(err, settlementdomain.ErrConsumptionNotFound),
		errors.Is(err, settlementdomain.ErrAccountNotFound),
		errors.Is(err, reconciledomain.ErrNotFound),
		errors.Is(err, billdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return err.Error()
	}
}

// validationErrorCode returns the innermost sentinel text; domain sentinels are
// snake_case codes already.
func validationErrorCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "currency_mismatch", "invalid_currency":
		return "currency"
	case "empty_consumption_selection", "consumption_account_mismatch", "consumption_month_mismatch":
		return "consumption_ids"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "currency_mismatch":
		return "currency does not match the ad account"
	case "empty_consumption_selection":
		return "at least one consumption is required"
	case "consumption_account_mismatch":
		return "consumption belongs to another ad account"
	case "consumption_month_mismatch":
		return "consumption belongs to another month"
	default:
		return "invalid value"
	}
}
