package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatus(t *testing.T) {
	base := errors.New("boom")
	cases := []struct {
		status    int
		transient bool
		quota     bool
	}{
		{http.StatusInternalServerError, true, false},
		{http.StatusServiceUnavailable, true, false},
		{http.StatusGatewayTimeout, true, false},
		{http.StatusRequestTimeout, true, false},
		{http.StatusTooManyRequests, false, true},
		{http.StatusBadRequest, false, false},
		{http.StatusUnauthorized, false, false},
	}
	for _, tc := range cases {
		err := FromStatus("svc", tc.status, base)
		var te *TransientError
		var pe *PermanentError
		switch {
		case tc.transient:
			if !errors.As(err, &te) {
				t.Errorf("%d: expected transient, got %v", tc.status, err)
			}
		default:
			if !errors.As(err, &pe) {
				t.Errorf("%d: expected permanent, got %v", tc.status, err)
				continue
			}
			if pe.Quota != tc.quota {
				t.Errorf("%d: quota = %v, want %v", tc.status, pe.Quota, tc.quota)
			}
		}
		if !errors.Is(err, base) {
			t.Errorf("%d: cause not preserved", tc.status)
		}
	}
}

func TestClassify(t *testing.T) {
	if o := Classify("svc", "text", nil); o.Kind != OK || o.Text != "text" {
		t.Errorf("expected OK outcome, got %+v", o)
	}

	wrapped := fmt.Errorf("call: %w", &TransientError{Provider: "svc", Err: errors.New("500")})
	if o := Classify("svc", "", wrapped); o.Kind != Transient {
		t.Errorf("expected transient, got %v", o.Kind)
	}

	if o := Classify("svc", "", context.DeadlineExceeded); o.Kind != Transient {
		t.Errorf("expected deadline to be transient, got %v", o.Kind)
	}

	if o := Classify("svc", "", &PermanentError{Provider: "svc", Quota: true, Err: errors.New("429")}); o.Kind != Permanent {
		t.Errorf("expected permanent, got %v", o.Kind)
	}

	o := Classify("svc", "", errors.New("weird"))
	if o.Kind != Permanent {
		t.Errorf("expected unclassified error to be permanent, got %v", o.Kind)
	}
	var pe *PermanentError
	if !errors.As(o.Err, &pe) {
		t.Errorf("expected unclassified error wrapped as PermanentError, got %T", o.Err)
	}
}

func TestKindString(t *testing.T) {
	if OK.String() != "ok" || Transient.String() != "transient" || Permanent.String() != "permanent" {
		t.Error("unexpected Kind strings")
	}
}

func TestCause(t *testing.T) {
	base := errors.New("boom")
	cases := []struct {
		err  error
		want string
	}{
		{&TransientError{Provider: "p", Err: base}, "transient"},
		{fmt.Errorf("steps: %w", &PermanentError{Provider: "p", Quota: true, Err: base}), "quota"},
		{&PermanentError{Provider: "p", Err: base}, "permanent"},
		{fmt.Errorf("wait: %w", context.Canceled), "canceled"},
		{base, "unknown"},
	}
	for _, tc := range cases {
		if got := Cause(tc.err); got != tc.want {
			t.Errorf("Cause(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
