package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	AccountNotFound     ErrorCode = "account_not_found"
	DuplicateAccount    ErrorCode = "duplicate_account"
	DuplicateReference  ErrorCode = "duplicate_reference"
	InvalidInput        ErrorCode = "invalid_input"
	InvalidAmount       ErrorCode = "invalid_amount"
	InsufficientBalance ErrorCode = "insufficient_balance"
	AccountInactive     ErrorCode = "account_inactive"
	SameAccountTransfer ErrorCode = "same_account_transfer"
	InternalError       ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps the error code to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case AccountNotFound:
		return http.StatusNotFound
	case DuplicateAccount, DuplicateReference:
		return http.StatusConflict
	case InvalidInput, InvalidAmount, SameAccountTransfer:
		return http.StatusBadRequest
	case InsufficientBalance, AccountInactive:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound     = NewAppError(AccountNotFound, "account not found")
	ErrDuplicateAccount    = NewAppError(DuplicateAccount, "account already exists")
	ErrDuplicateReference  = NewAppError(DuplicateReference, "reference is already used by a different operation")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "amount must be positive")
	ErrInsufficientBalance = NewAppError(InsufficientBalance, "insufficient balance")
	ErrAccountInactive     = NewAppError(AccountInactive, "account is inactive")
	ErrSameAccountTransfer = NewAppError(SameAccountTransfer, "source and destination accounts must differ")
	ErrInvalidAccountID    = NewAppError(InvalidInput, "invalid account id")
)
