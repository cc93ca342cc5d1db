package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(CodeCapture, "device unavailable")
	want := "[CAPTURE] device unavailable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "mirror fetch failed")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if CodeOf(err) != CodeUnavailable {
		t.Errorf("CodeOf = %v, want CodeUnavailable", CodeOf(err))
	}
}

func TestCodeOfNested(t *testing.T) {
	inner := New(CodeInsightAuth, "bad key")
	outer := fmt.Errorf("generate: %w", inner)

	if CodeOf(outer) != CodeInsightAuth {
		t.Errorf("CodeOf(nested) = %v, want CodeInsightAuth", CodeOf(outer))
	}
	if !IsCode(outer, CodeInsightAuth) {
		t.Error("IsCode should see through wrapping")
	}
}

func TestSessionFatal(t *testing.T) {
	cases := []struct {
		code  Code
		fatal bool
	}{
		{CodeCapture, true},
		{CodeModelUnavailable, true},
		{CodeTranscriptionTimeout, false},
		{CodeInsightFailed, false},
		{CodeChunkInsufficient, false},
	}
	for _, tc := range cases {
		if got := SessionFatal(New(tc.code, "x")); got != tc.fatal {
			t.Errorf("SessionFatal(%v) = %v, want %v", tc.code, got, tc.fatal)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeRateLimited, "429")) {
		t.Error("rate limited should be retryable")
	}
	if IsRetryable(New(CodeCapture, "no mic")) {
		t.Error("capture error should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("uncoded error should not be retryable")
	}
}

func TestWithMetadata(t *testing.T) {
	err := New(CodeTranscriptionFailed, "exec failed").WithMetadata("chunk", "3")
	if err.Metadata["chunk"] != "3" {
		t.Errorf("metadata not set: %v", err.Metadata)
	}
}
