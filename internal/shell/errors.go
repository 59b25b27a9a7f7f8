// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by the typed errors below so callers can use
// errors.Is for programmatic detection.
var (
	ErrCommandFailed      = errors.New("command failed")
	ErrExecutableNotFound = errors.New("shell executable not found")
	ErrInvalidArgument    = errors.New("invalid argument")
)

type (
	// CommandFailedError is returned after a spawned command has fully
	// exited (and been deregistered) with a non-zero exit code. It carries
	// the exact command text handed to the interpreter for diagnostics.
	CommandFailedError struct {
		ExitCode int
		Command  string
	}

	// ExecutableNotFoundError is returned at configuration time when the
	// requested interpreter cannot be resolved on the search path.
	ExecutableNotFoundError struct {
		Name string
		Err  error
	}

	// InvalidArgumentError is returned before any process side effect when
	// an invocation misuses the execution API, e.g. by supplying the
	// reserved template binding.
	InvalidArgumentError struct {
		Err error
	}
)

// Error implements the error interface.
func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command exited with status %d: %s", e.ExitCode, e.Command)
}

// Unwrap returns ErrCommandFailed.
func (e *CommandFailedError) Unwrap() error { return ErrCommandFailed }

// Error implements the error interface.
func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("cannot set shell %q because it is not available in your PATH", e.Name)
}

// Unwrap returns ErrExecutableNotFound.
func (e *ExecutableNotFoundError) Unwrap() error { return ErrExecutableNotFound }

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %v", e.Err)
}

// Unwrap returns a joined error so both ErrInvalidArgument and the
// underlying cause match under errors.Is.
func (e *InvalidArgumentError) Unwrap() error {
	return errors.Join(ErrInvalidArgument, e.Err)
}
