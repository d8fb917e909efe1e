package nfc

import (
	"errors"
	"fmt"
	"testing"
)

func TestNFCError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *NFCError
		expected string
	}{
		{
			name: "with op and message",
			err: &NFCError{
				Code:    ErrCodeNotSupported,
				Op:      "NewSectorReader",
				Message: "operation not supported",
			},
			expected: "NewSectorReader: operation not supported",
		},
		{
			name: "with op, sector, and cause",
			err: &NFCError{
				Code:    ErrCodeMalformedHex,
				Op:      "SectorDump.Validate",
				Sector:  "sector_2",
				Message: "block 1",
				Cause:   errors.New("invalid hex digit"),
			},
			expected: "SectorDump.Validate: sector_2: block 1: invalid hex digit",
		},
		{
			name: "message only",
			err: &NFCError{
				Code:    ErrCodeNotSupported,
				Message: "not supported",
			},
			expected: "not supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("NFCError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNFCError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewReadError("DumpSectors", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("NFCError.Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}

	errNoCause := NewNoCardError("DumpSectors", "ACR122U")
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("NFCError.Unwrap() = %v, want nil", unwrapped)
	}
}

func TestNFCError_Is(t *testing.T) {
	err1 := &NFCError{Code: ErrCodeAuthFailed, Message: "test"}
	err2 := &NFCError{Code: ErrCodeAuthFailed, Message: "different message"}
	err3 := &NFCError{Code: ErrCodeReadFailed, Message: "test"}

	if !err1.Is(err2) {
		t.Error("NFCError.Is() should return true for same code")
	}
	if err1.Is(err3) {
		t.Error("NFCError.Is() should return false for different code")
	}
	if err1.Is(errors.New("not an NFCError")) {
		t.Error("NFCError.Is() should return false for non-NFCError")
	}
}

func TestNewAuthError(t *testing.T) {
	cause := errors.New("wrong key")
	err := NewAuthError("authenticateSector", "sector_3", cause)

	if err.Code != ErrCodeAuthFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeAuthFailed)
	}
	if err.Sector != "sector_3" {
		t.Errorf("Sector = %q, want %q", err.Sector, "sector_3")
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestNewNoCardError(t *testing.T) {
	err := NewNoCardError("DumpSectors", "ACS ACR122U")
	if !IsNoCardError(err) {
		t.Error("Expected IsNoCardError to be true")
	}
	if err.Message != "no card present on ACS ACR122U" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		auth      bool
		noCard    bool
		malformed bool
	}{
		{"auth", NewAuthError("op", "", nil), true, false, false},
		{"wrapped auth", fmt.Errorf("dump: %w", NewAuthError("op", "", nil)), true, false, false},
		{"no card", NewNoCardError("op", "reader"), false, true, false},
		{"malformed hex", ValidateHexBlock("xx"), false, false, true},
		{"regular error", errors.New("auth failed"), false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.auth {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.auth)
			}
			if got := IsNoCardError(tt.err); got != tt.noCard {
				t.Errorf("IsNoCardError() = %v, want %v", got, tt.noCard)
			}
			if got := IsMalformedHexError(tt.err); got != tt.malformed {
				t.Errorf("IsMalformedHexError() = %v, want %v", got, tt.malformed)
			}
		})
	}
}

func TestErrorCodeRanges(t *testing.T) {
	if ErrCodeNotSupported != 100 {
		t.Errorf("ErrCodeNotSupported = %d, want 100", ErrCodeNotSupported)
	}
	if ErrCodeInvalidData != 200 || ErrCodeMalformedHex != 201 || ErrCodeInvalidUID != 202 {
		t.Errorf("data error codes = %d/%d/%d, want 200/201/202", ErrCodeInvalidData, ErrCodeMalformedHex, ErrCodeInvalidUID)
	}
}

func TestGetErrorCode(t *testing.T) {
	nfcErr := &NFCError{Code: ErrCodeReadFailed}
	if code := GetErrorCode(nfcErr); code != ErrCodeReadFailed {
		t.Errorf("GetErrorCode() = %v, want %v", code, ErrCodeReadFailed)
	}

	regularErr := errors.New("regular error")
	if code := GetErrorCode(regularErr); code != 0 {
		t.Errorf("GetErrorCode() = %v, want 0", code)
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapError(ErrCodeInvalidData, "ConvertTagEvent", "invalid UID", cause)

	if err.Code != ErrCodeInvalidData {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidData)
	}
	if err.Op != "ConvertTagEvent" {
		t.Errorf("Op = %q, want %q", err.Op, "ConvertTagEvent")
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(ErrCodeInvalidData, "ConvertTagEvent", "duplicate sector key %q", "sector_1")

	if err.Code != ErrCodeInvalidData {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidData)
	}
	if err.Message != `duplicate sector key "sector_1"` {
		t.Errorf("Message = %q", err.Message)
	}
}
