// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/jllopis/colloquy/pkg/errors"
)

// CLIError wraps ColloquyError with a hint for the user.
type CLIError struct {
	*errors.ColloquyError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(ce *errors.ColloquyError, hint string) *CLIError {
	return &CLIError{ColloquyError: ce, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.ColloquyError == nil {
		return "unknown error"
	}
	msg := e.ColloquyError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the typed error to errors.As.
func (e *CLIError) Unwrap() error { return e.ColloquyError }

func invalidArgument(arg, reason string) *CLIError {
	ce := errors.NewInvalidInputError("invalid argument: "+reason).
		WithContext("argument", arg)
	return NewCLIError(ce, "run 'colloquy help' for usage information")
}

func notFound(resource, name string) *CLIError {
	hint := fmt.Sprintf("check that the %s exists", resource)
	if resource == "scenario" {
		hint = "run 'colloquy scenarios' to list the available scenarios"
	}
	return NewCLIError(errors.NewNotFoundError(resource, name), hint)
}

func cliConfigError(err error, key string) *CLIError {
	ce := errors.NewConfigurationError("configuration error", err).WithContext("key", key)
	return NewCLIError(ce, fmt.Sprintf("check %s in the config file, environment or --set flags", key))
}

// hintFor suggests a next step for errors raised outside the CLI.
func hintFor(code errors.ErrorCode) string {
	switch code {
	case errors.CodeConfiguration:
		return "check the config file, COLLOQUY_* environment variables and --set flags"
	case errors.CodeInvalidInput:
		return "run 'colloquy help' for usage information"
	case errors.CodeNotFound:
		return "run 'colloquy sessions list' to see archived sessions"
	case errors.CodeContextLost:
		return "the session was interrupted; partial results were printed"
	case errors.CodeArchive:
		return "check archive.driver and archive.path"
	case errors.CodeTimeout, errors.CodeRateLimit, errors.CodeGeneration:
		return "this may be a transient error; try again later"
	default:
		return ""
	}
}

// printError prints the error with appropriate formatting.
func printError(w io.Writer, err error, asJSON bool) {
	var cli *CLIError
	if !stderrors.As(err, &cli) {
		var ce *errors.ColloquyError
		if !stderrors.As(err, &ce) {
			printSimpleError(w, err, asJSON)
			return
		}
		cli = NewCLIError(ce, hintFor(ce.Code))
	}

	if asJSON {
		out := struct {
			Error *errors.ColloquyError `json:"error"`
			Hint  string                `json:"hint,omitempty"`
		}{cli.ColloquyError, cli.Hint}
		_ = json.NewEncoder(w).Encode(out)
		return
	}

	fmt.Fprintf(w, "Error [%s]: %s\n", cli.Code, cli.Message)
	if cli.Err != nil {
		fmt.Fprintf(w, "  Cause: %v\n", cli.Err)
	}
	if problems, ok := cli.Context["problems"]; ok {
		fmt.Fprintf(w, "  Problems: %v\n", problems)
	}
	if cli.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", cli.Hint)
	}
}

// printSimpleError prints errors that carry no code, such as flag parsing
// failures.
func printSimpleError(w io.Writer, err error, asJSON bool) {
	if asJSON {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "UNKNOWN", "message": err.Error()},
		})
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err)
}
