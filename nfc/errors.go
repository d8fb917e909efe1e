package nfc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of NFC error for programmatic handling.
type ErrorCode int

// Reader and card errors (100-199)
const (
	ErrCodeNotSupported ErrorCode = iota + 100
	ErrCodeNoCard
	ErrCodeAuthFailed
	ErrCodeReadFailed
)

// Dump data errors (200-299)
const (
	ErrCodeInvalidData ErrorCode = iota + 200
	ErrCodeMalformedHex
	ErrCodeInvalidUID
)

// NFCError provides structured error information for programmatic handling.
type NFCError struct {
	Code    ErrorCode
	Op      string // Operation that failed (e.g., "DumpSectors", "ValidateHexBlock")
	Sector  string // Optional: sector key involved
	Message string
	Cause   error
}

func (e *NFCError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Sector != "" {
		sb.WriteString(e.Sector)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *NFCError) Unwrap() error {
	return e.Cause
}

func (e *NFCError) Is(target error) bool {
	if t, ok := target.(*NFCError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewNoCardError creates an error for a reader with no card in its field.
func NewNoCardError(op, reader string) *NFCError {
	return &NFCError{
		Code:    ErrCodeNoCard,
		Op:      op,
		Message: fmt.Sprintf("no card present on %s", reader),
	}
}

// NewAuthError creates an error for sector authentication failures.
func NewAuthError(op, sector string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeAuthFailed,
		Op:      op,
		Sector:  sector,
		Message: "authentication failed",
		Cause:   cause,
	}
}

// NewReadError creates an error for read failures.
func NewReadError(op string, cause error) *NFCError {
	return &NFCError{
		Code:    ErrCodeReadFailed,
		Op:      op,
		Message: "read failed",
		Cause:   cause,
	}
}

// IsNoCardError checks if an error indicates that no card was presented.
func IsNoCardError(err error) bool {
	return GetErrorCode(err) == ErrCodeNoCard
}

// IsAuthError checks if an error indicates authentication failure.
func IsAuthError(err error) bool {
	return GetErrorCode(err) == ErrCodeAuthFailed
}

// IsMalformedHexError checks if an error came from hex validation.
func IsMalformedHexError(err error) bool {
	return GetErrorCode(err) == ErrCodeMalformedHex
}

// GetErrorCode extracts the ErrorCode from an error if it's an NFCError.
// Returns 0 if the error is not an NFCError.
func GetErrorCode(err error) ErrorCode {
	var nfcErr *NFCError
	if errors.As(err, &nfcErr) {
		return nfcErr.Code
	}
	return 0
}

// WrapError wraps an existing error with NFC context.
func WrapError(code ErrorCode, op, message string, cause error) *NFCError {
	return &NFCError{
		Code:    code,
		Op:      op,
		Message: message,
		Cause:   cause,
	}
}

// Errorf creates an NFCError with a formatted message.
func Errorf(code ErrorCode, op, format string, args ...interface{}) *NFCError {
	return &NFCError{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}
