package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hawkstract/nsc/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Clean check, or informational command
	ExitFailure      = 1 // Diagnostics reported (unit does not check clean)
	ExitCommandError = 2 // Command error (bad paths, unreadable unit, missing db)
)

// ExitError carries the process exit code a command wants to fail with.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError builds an ExitError from a code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to an underlying error.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps an error to a process exit code. Plain errors map
// to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as JSON or text.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the envelope for all JSON command output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error half of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success renders a successful result.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error renders a failed result.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "error [%s]: %s\n", code, message)
	return nil
}

// CheckReport is the per-unit payload of nsc check.
type CheckReport struct {
	Unit        string          `json:"unit"`
	UnitHash    string          `json:"unit_hash"`
	Clean       bool            `json:"clean"`
	Diagnostics []ir.Diagnostic `json:"diagnostics,omitempty"`
	RunID       string          `json:"run_id,omitempty"`
}

// RenderDiagnostics writes the human-readable form of a check report:
// one line per diagnostic, already in ascending source order.
func RenderDiagnostics(w io.Writer, rep *CheckReport) {
	if rep.Clean && len(rep.Diagnostics) == 0 {
		fmt.Fprintf(w, "unit %s: clean\n", rep.Unit)
		return
	}
	fmt.Fprintf(w, "unit %s: %d finding(s)\n", rep.Unit, len(rep.Diagnostics))
	for _, d := range rep.Diagnostics {
		if d.Grant != "" {
			fmt.Fprintf(w, "  %s [%s] %s: %s (grant %s)\n", d.Pos, d.Code, d.Kind, d.Message, d.Grant)
			continue
		}
		fmt.Fprintf(w, "  %s [%s] %s: %s\n", d.Pos, d.Code, d.Kind, d.Message)
	}
}
