// Package errdefs provides unified error handling with structured error codes.
// Codes cover the capture, transcription, and insight failure domains so
// callers can decide between session-fatal and locally-recoverable errors.
package errdefs

import (
	"errors"
	"fmt"
)

// Code classifies an error.
type Code int

const (
	CodeUnknown Code = iota
	CodeCapture
	CodeChunkInsufficient
	CodeTranscriptionTimeout
	CodeTranscriptionFailed
	CodeModelUnavailable
	CodeInsightTimeout
	CodeInsightFailed
	CodeInsightAuth
	CodeAuth
	CodeParse
	CodeInvalidState
	CodeConfig
	CodeUnavailable
	CodeRateLimited
)

var codeNames = map[Code]string{
	CodeUnknown:              "UNKNOWN",
	CodeCapture:              "CAPTURE",
	CodeChunkInsufficient:    "CHUNK_INSUFFICIENT",
	CodeTranscriptionTimeout: "TRANSCRIPTION_TIMEOUT",
	CodeTranscriptionFailed:  "TRANSCRIPTION_FAILED",
	CodeModelUnavailable:     "MODEL_UNAVAILABLE",
	CodeInsightTimeout:       "INSIGHT_TIMEOUT",
	CodeInsightFailed:        "INSIGHT_FAILED",
	CodeInsightAuth:          "INSIGHT_AUTH",
	CodeAuth:                 "AUTH",
	CodeParse:                "PARSE",
	CodeInvalidState:         "INVALID_STATE",
	CodeConfig:               "CONFIG",
	CodeUnavailable:          "UNAVAILABLE",
	CodeRateLimited:          "RATE_LIMITED",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// Error is the base error type with a structured code and optional metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an Error.
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf extracts the code from an error chain, CodeUnknown if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks whether an error chain carries a specific code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// SessionFatal reports whether an error should fail the whole session.
// Only capture failures and a fully unavailable model asset qualify;
// everything else is recovered in place.
func SessionFatal(err error) bool {
	switch CodeOf(err) {
	case CodeCapture, CodeModelUnavailable:
		return true
	default:
		return false
	}
}

// IsRetryable returns true if the error is potentially transient.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeUnavailable, CodeRateLimited, CodeTranscriptionTimeout, CodeInsightTimeout:
		return true
	default:
		return false
	}
}
