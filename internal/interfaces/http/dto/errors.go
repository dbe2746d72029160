package dto

import (
	"errors"
	"net/http"

	"github.com/retail/backend/internal/domain/shared"
)

// Codes produced by the transport layer itself. Domain failures keep their own code.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeInternal        = "INTERNAL_ERROR"
	CodeRequestTooLarge = "REQUEST_TOO_LARGE"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeInvalidToken    = "INVALID_TOKEN"
)

var statusByCode = map[string]int{
	shared.CodeValidation:        http.StatusBadRequest,
	CodeBadRequest:               http.StatusBadRequest,
	shared.CodeUnauthorized:      http.StatusUnauthorized,
	CodeTokenExpired:             http.StatusUnauthorized,
	CodeInvalidToken:             http.StatusUnauthorized,
	shared.CodeForbidden:         http.StatusForbidden,
	shared.CodeNotFound:          http.StatusNotFound,
	shared.CodeAlreadyExists:     http.StatusConflict,
	shared.CodeConflict:          http.StatusConflict,
	shared.CodeInvalidState:      http.StatusConflict,
	CodeRequestTooLarge:          http.StatusRequestEntityTooLarge,
	shared.CodeInsufficientStock: http.StatusUnprocessableEntity,
	shared.CodeConsistency:       http.StatusInternalServerError,
	CodeInternal:                 http.StatusInternalServerError,
}

// HTTPStatus returns the status for an error code; unknown codes are 500
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError converts err into a status and error body. Errors that are not domain
// errors, and consistency errors, are reported without their message.
func FromError(err error) (int, ErrorInfo) {
	var stockErr *shared.InsufficientStockError
	if errors.As(err, &stockErr) {
		return http.StatusUnprocessableEntity, ErrorInfo{
			Code:    stockErr.Code,
			Message: stockErr.Message,
			Details: map[string]any{
				"available": stockErr.Available,
				"requested": stockErr.Requested,
			},
		}
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := HTTPStatus(domainErr.Code)
		if status == http.StatusInternalServerError {
			return status, ErrorInfo{Code: domainErr.Code, Message: "An internal error occurred"}
		}
		return status, ErrorInfo{Code: domainErr.Code, Message: domainErr.Message}
	}

	return http.StatusInternalServerError, ErrorInfo{Code: CodeInternal, Message: "An internal error occurred"}
}
