package authcore

import (
	"errors"
	"fmt"
)

// Error codes for authorization failures. Client software branches on these:
// an already-used nonce means the payment landed elsewhere, a not-yet-valid
// window means resubmit later, a bad signature means re-sign.
const (
	ErrCodeExpiredAuthorization  = "expired_authorization"
	ErrCodeNotYetValid           = "authorization_not_yet_valid"
	ErrCodeAlreadyUsedOrCanceled = "authorization_used_or_canceled"
	ErrCodeInvalidSignature      = "invalid_signature"
	ErrCodeUnauthorizedCaller    = "caller_must_be_payee"
)

// AuthorizationError represents a terminal, synchronous authorization
// failure. By the time one is returned the operation has left no residual
// state: no nonce consumed, no counter advanced, no ledger mutation.
type AuthorizationError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(code, message string, details map[string]interface{}) *AuthorizationError {
	return &AuthorizationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrorCode extracts the authorization error code from err, or "" if err is
// not an AuthorizationError.
func ErrorCode(err error) string {
	var ae *AuthorizationError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
