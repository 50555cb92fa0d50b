// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for Colloquy.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies Colloquy errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeConfiguration indicates malformed startup configuration.
	// Always fatal, never raised once a session has started.
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// CodeGeneration indicates a response generator failure. The Recoverable
	// flag distinguishes transient from permanent failures.
	CodeGeneration ErrorCode = "GENERATION_ERROR"

	// CodeCitationParse is a non-fatal warning raised when citations could not
	// be recovered from generated text.
	CodeCitationParse ErrorCode = "CITATION_PARSE_WARNING"

	// CodeContextLost indicates the context was cancelled or its deadline passed.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates rate limiting was triggered.
	CodeRateLimit ErrorCode = "RATE_LIMITED"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeArchive indicates a session archive failure.
	CodeArchive ErrorCode = "ARCHIVE_ERROR"
)

// ColloquyError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type ColloquyError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int // HTTP status for API responses
}

// Error implements the error interface.
func (e *ColloquyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *ColloquyError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *ColloquyError) MarshalJSON() ([]byte, error) {
	out := struct {
		Code        string                 `json:"code"`
		Message     string                 `json:"message"`
		Err         string                 `json:"error,omitempty"`
		Recoverable bool                   `json:"recoverable"`
		Context     map[string]interface{} `json:"context,omitempty"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Recoverable: e.Recoverable,
		Context:     e.Context,
	}
	if e.Err != nil {
		out.Err = e.Err.Error()
	}
	return json.Marshal(out)
}

// New creates a new ColloquyError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *ColloquyError {
	return &ColloquyError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *ColloquyError) WithContext(key string, value interface{}) *ColloquyError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *ColloquyError) WithRecoverable(recoverable bool) *ColloquyError {
	e.Recoverable = recoverable
	return e
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *ColloquyError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// AsColloquyError attempts to convert an error to a ColloquyError.
// Returns the error as ColloquyError if one is in the chain, or wraps it otherwise.
func AsColloquyError(err error) *ColloquyError {
	if err == nil {
		return nil
	}
	var ce *ColloquyError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether err carries a ColloquyError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ce *ColloquyError
	if !stderrors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}

// NewConfigurationError reports a malformed registry or configuration.
func NewConfigurationError(msg string, cause error) *ColloquyError {
	return New(CodeConfiguration, msg, cause).WithRecoverable(false)
}

// NewGenerationError classifies a generator failure for a participant.
func NewGenerationError(participantID string, transient bool, cause error) *ColloquyError {
	return New(CodeGeneration, "generation failed", cause).
		WithContext("participant", participantID).
		WithRecoverable(transient)
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(msg string) *ColloquyError {
	return New(CodeInvalidInput, msg, nil).WithRecoverable(false)
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, name string) *ColloquyError {
	return New(CodeNotFound, resource+" not found", nil).
		WithContext("resource", resource).
		WithContext("name", name).
		WithRecoverable(false)
}

// IsTransient reports whether err is a recoverable ColloquyError.
// Errors outside the taxonomy are treated as permanent.
func IsTransient(err error) bool {
	var ce *ColloquyError
	if !stderrors.As(err, &ce) {
		return false
	}
	return ce.Recoverable
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput:
		return 400
	case CodeTimeout:
		return 408
	case CodeRateLimit:
		return 429
	case CodeGeneration:
		return 502
	default:
		return 500
	}
}
