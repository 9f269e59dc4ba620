// Package source obtains the model response to merge.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/kvit-s/kvit-merge/internal/ui"
	"github.com/mattn/go-isatty"
)

// ErrEmpty is returned when the response has no content.
var ErrEmpty = errors.New("empty response")

// Options selects where the response comes from. File wins over Clipboard,
// which wins over Stdin.
type Options struct {
	File      string // "-" reads Stdin to EOF
	Clipboard bool
	Stdin     *os.File

	// LineMode types the response on a terminal line by line, ending with
	// an "eof" line, instead of the full-screen editor.
	LineMode bool
	// Prompt receives the line mode prompt. Defaults to os.Stderr.
	Prompt io.Writer

	// Interactive is used when Stdin is a terminal. Defaults to ui.ReadInteractive.
	Interactive func(prompt string) (string, error)
	// ReadClipboard defaults to clipboard.ReadAll.
	ReadClipboard func() (string, error)
}

// Read returns the response text.
func Read(opts Options) (string, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	var text string
	var err error
	switch {
	case opts.File == "-":
		text, err = FromReader(opts.Stdin)
	case opts.File != "":
		text, err = FromFile(opts.File)
	case opts.Clipboard:
		read := opts.ReadClipboard
		if read == nil {
			read = clipboard.ReadAll
		}
		text, err = read()
		if err != nil {
			err = fmt.Errorf("read clipboard: %w", err)
		}
	case IsTerminal(opts.Stdin) && opts.LineMode:
		if opts.Prompt == nil {
			opts.Prompt = os.Stderr
		}
		fmt.Fprintf(opts.Prompt, "Paste the response, then a line %q:\n", ui.EOFMarker)
		text, err = ReadLines(opts.Stdin)
	case IsTerminal(opts.Stdin):
		interactive := opts.Interactive
		if interactive == nil {
			interactive = ui.ReadInteractive
		}
		text, err = interactive("Paste the response")
	default:
		text, err = FromReader(opts.Stdin)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// FromFile reads a saved response.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read response file: %w", err)
	}
	return string(data), nil
}

// FromReader reads a piped response to end of input.
func FromReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(data), nil
}

// ReadLines reads typed input until end of input or a line consisting of "eof".
func ReadLines(r io.Reader) (string, error) {
	var sb strings.Builder
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) == ui.EOFMarker {
			break
		}
		sb.WriteString(line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
	}
	return sb.String(), nil
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
