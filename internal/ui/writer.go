package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Color definitions for consistent UI
var (
	// Gray for progress and secondary detail
	grayColor = color.New(color.FgWhite, color.Faint)

	// Red for errors and removed lines
	errorColor = color.New(color.FgRed)

	// Yellow for warnings
	warnColor = color.New(color.FgYellow)

	// Green for success and added lines
	okColor = color.New(color.FgGreen)

	// Cyan for file headers
	headerColor = color.New(color.FgCyan, color.Bold)
)

// Writer provides formatted output with consistent prefixes and optional colors.
// Progress goes to stderr; reports go to stdout.
type Writer struct {
	quiet    bool
	jsonMode bool // Output structured JSON instead of formatted text
	stderr   io.Writer
	stdout   io.Writer
}

// NewWriter creates a Writer on the process's stdout and stderr.
func NewWriter() *Writer {
	return &Writer{stderr: os.Stderr, stdout: os.Stdout}
}

// NewWriterTo creates a Writer on the given streams (used by tests).
func NewWriterTo(stdout, stderr io.Writer) *Writer {
	return &Writer{stderr: stderr, stdout: stdout}
}

// SetColor enables or disables ANSI colours globally.
func (w *Writer) SetColor(enabled bool) {
	color.NoColor = !enabled
}

// SetQuiet enables or disables quiet mode (suppresses everything but reports and errors).
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// SetJSONMode enables or disables JSON output mode.
func (w *Writer) SetJSONMode(jsonMode bool) {
	w.jsonMode = jsonMode
}

// IsJSONMode returns true if JSON mode is enabled.
func (w *Writer) IsJSONMode() bool {
	return w.jsonMode
}

// Stderr exposes the progress stream for prompts.
func (w *Writer) Stderr() io.Writer {
	return w.stderr
}

// Info prints an info message with [info] prefix in gray.
func (w *Writer) Info(msg string) {
	if w.quiet || w.jsonMode {
		return
	}
	grayColor.Fprintf(w.stderr, "[info] %s\n", msg)
}

// Warn prints a warning message with [warn] prefix in yellow.
func (w *Writer) Warn(msg string) {
	if w.quiet || w.jsonMode {
		return
	}
	warnColor.Fprintf(w.stderr, "[warn] %s\n", msg)
}

// Error prints an error message with [error] prefix in red. Never suppressed.
func (w *Writer) Error(msg string) {
	errorColor.Fprintf(w.stderr, "[error] %s\n", msg)
}

// Success prints a result line in green on stdout.
func (w *Writer) Success(msg string) {
	if w.jsonMode {
		return
	}
	okColor.Fprintln(w.stdout, msg)
}

// Failure prints a result line in red on stdout.
func (w *Writer) Failure(msg string) {
	if w.jsonMode {
		return
	}
	errorColor.Fprintln(w.stdout, msg)
}

// JSON writes v as indented JSON to stdout.
func (w *Writer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = fmt.Fprintln(w.stdout, string(data))
	return err
}
