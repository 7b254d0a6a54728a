// pkg/errors/errors_test.go

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew_CapturesCodeAndMessage(t *testing.T) {
	err := New(ErrCodeClientNotFound, "client not found")
	if err.Code != ErrCodeClientNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeClientNotFound, err.Code)
	}
	if !strings.Contains(err.Error(), "client not found") {
		t.Errorf("message missing from Error(): %s", err.Error())
	}
	if err.Stack == "" {
		t.Error("expected captured stack")
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if got := Wrap(nil, ErrCodeInternal, "ignored"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestWrap_PreservesChain(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := Wrap(base, ErrCodeDatabaseError, "upsert failed")
	outer := Wrap(wrapped, ErrCodeScorePersistFailed, "refresh aborted")

	if !errors.Is(outer, base) {
		t.Error("errors.Is should find the root cause")
	}
	if !IsCode(outer, ErrCodeDatabaseError) {
		t.Error("IsCode should find intermediate codes")
	}
	if !IsTransient(outer) {
		t.Error("database errors are transient")
	}
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	base := New(ErrCodeRuleInvalid, "malformed condition")
	detailed := base.WithDetail("rule_id=%s", "r-1")
	if base.Detail != "" {
		t.Error("original must be untouched")
	}
	if !strings.Contains(detailed.Error(), "rule_id=r-1") {
		t.Errorf("detail missing: %s", detailed.Error())
	}
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeClientNotFound, true},
		{ErrCodeTenantNotFound, true},
		{ErrCodeRuleSetNotFound, true},
		{ErrCodeJobNotFound, true},
		{ErrCodeValidation, false},
		{ErrCodeDatabaseError, false},
	}
	for _, tc := range cases {
		err := fmt.Errorf("outer: %w", New(tc.code, "x"))
		if got := IsNotFound(err); got != tc.want {
			t.Errorf("IsNotFound(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(New(ErrCodeRuleInvalid, "bad condition")) {
		t.Error("rule condition errors are validation errors")
	}
	if IsValidation(New(ErrCodeQueueError, "redis down")) {
		t.Error("queue errors are not validation errors")
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(nil) != CodeOK {
		t.Error("nil error maps to CodeOK")
	}
	if GetCode(errors.New("plain")) != ErrCodeInternal {
		t.Error("foreign errors map to internal")
	}
	if GetCode(New(ErrCodeQueuePaused, "paused")) != ErrCodeQueuePaused {
		t.Error("AppError code should be returned")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeClientNotFound: http.StatusNotFound,
		ErrCodeValidation:     http.StatusBadRequest,
		ErrCodeQueuePaused:    http.StatusConflict,
		ErrCodeDatabaseError:  http.StatusServiceUnavailable,
		ErrCodeInternal:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestSubsystem(t *testing.T) {
	if ErrCodeJobNotFound.Subsystem() != "JOB" {
		t.Errorf("got %s", ErrCodeJobNotFound.Subsystem())
	}
	if ErrCodeClientNotFound.Subsystem() != "CMP" {
		t.Errorf("got %s", ErrCodeClientNotFound.Subsystem())
	}
}
