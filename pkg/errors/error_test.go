package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "ojarena/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{ContestEnded, "Contest has ended"},
		{NetworkError, "Network request failed"},
		{ErrorCode(1), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{Unauthorized, 401},
		{ContestAccessDenied, 403},
		{ContestNotFound, 404},
		{AlreadyRegistered, 409},
		{SubmitTooFrequently, 429},
		{JudgeSystemError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestFromHTTPStatus(t *testing.T) {
	tests := map[int]ErrorCode{
		401: Unauthorized,
		404: NotFound,
		429: TooManyRequests,
		503: ServiceUnavailable,
		504: Timeout,
		418: InternalServerError,
	}
	for status, want := range tests {
		if got := FromHTTPStatus(status); got != want {
			t.Errorf("FromHTTPStatus(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ContestNotFound, "contest %s not found", "c-1")
	if err.Error() != "contest c-1 not found" {
		t.Errorf("Error() = %v", err.Error())
	}
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := New(ContestAccessDenied)
	wrapped := Wrap(fmt.Errorf("load contest: %w", inner), NetworkError)
	if wrapped.Code != ContestAccessDenied {
		t.Errorf("Code = %v, want %v", wrapped.Code, ContestAccessDenied)
	}
}

func TestWrapPlainError(t *testing.T) {
	original := errors.New("connection refused")
	wrapped := Wrap(original, NetworkError)
	if wrapped.Code != NetworkError {
		t.Errorf("Code = %v, want %v", wrapped.Code, NetworkError)
	}
	if wrapped.Unwrap() != original {
		t.Error("Unwrap() should return original error")
	}
	if wrapped.Error() != "Network request failed: connection refused" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil error", err: nil, want: Success},
		{name: "custom error", err: New(ContestEnded), want: ContestEnded},
		{name: "wrapped custom error", err: fmt.Errorf("run: %w", New(SessionNotActive)), want: SessionNotActive},
		{name: "standard error", err: errors.New("standard error"), want: InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("submit: %w", SessionInactive("submit"))

	if !Is(err, SessionNotActive) {
		t.Error("Is() should return true for matching code")
	}
	if Is(err, ContestEnded) {
		t.Error("Is() should return false for non-matching code")
	}
	if Is(nil, SessionNotActive) {
		t.Error("Is() should return false for nil error")
	}
}

func TestNetworkFailure(t *testing.T) {
	if NetworkFailure(nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
	err := NetworkFailure(errors.New("dial tcp: refused"))
	if err.Code != NetworkError {
		t.Errorf("Code = %v, want %v", err.Code, NetworkError)
	}
}
