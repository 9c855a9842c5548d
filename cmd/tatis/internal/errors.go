package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amasuba/uraics-revenue-assurance/internal/graph"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitDatabaseError indicates the graph store could not be reached or queried
	ExitDatabaseError = 12
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
	}
}

// HandleError prints err to the command's error output and returns the
// exit code for it.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Message)
		if cliErr.Cause != nil {
			verboseFlag := cmd.Flag("verbose")
			if verboseFlag != nil && verboseFlag.Changed {
				cmd.PrintErrln("Cause:", cliErr.Cause)
			}
		}
		printRetryHint(cmd, err)
		return cliErr.Code
	}

	var tErr *types.Error
	if errors.As(err, &tErr) {
		cmd.PrintErrln("Error:", tErr.Error())
		printRetryHint(cmd, err)
		return exitCodeFor(tErr.Code)
	}

	cmd.PrintErrln("Error:", err)
	return ExitError
}

func printRetryHint(cmd *cobra.Command, err error) {
	if types.IsRetryable(err) {
		cmd.PrintErrln("The failure looks transient; running the command again may succeed.")
	}
}

// exitCodeFor maps structured error codes to CLI exit codes.
func exitCodeFor(code types.ErrorCode) int {
	switch {
	case strings.HasPrefix(string(code), "CONFIG_"), code == graph.ErrCodeGraphInvalidConfig:
		return ExitConfigError
	case code == graph.ErrCodeGraphConnectionFailed,
		code == graph.ErrCodeGraphConnectionClosed,
		code == graph.ErrCodeGraphQueryFailed,
		code == graph.ErrCodeGraphWriteFailed:
		return ExitDatabaseError
	default:
		return ExitError
	}
}

// IsVerbose checks if verbose mode is enabled via environment variable or flag.
// Used by panic recovery before flags are parsed.
func IsVerbose() bool {
	if os.Getenv("TATIS_VERBOSE") != "" {
		return true
	}
	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
