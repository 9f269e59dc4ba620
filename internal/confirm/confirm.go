// Package confirm asks the user whether each edit should be applied.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eiannone/keyboard"
	"github.com/kvit-s/kvit-merge/internal/merge"
	"github.com/kvit-s/kvit-merge/internal/ui"
)

const question = "Apply this change? [y]es [a]ll [n]o a[b]ort: "

// ParseAnswer maps a typed answer to a choice.
func ParseAnswer(input string) (merge.Choice, bool) {
	switch strings.TrimSpace(strings.ToLower(input)) {
	case "y", "yes":
		return merge.Confirm, true
	case "a", "all":
		return merge.ConfirmAll, true
	case "n", "no":
		return merge.Skip, true
	case "b", "abort", "q", "quit":
		return merge.Abort, true
	}
	return merge.Skip, false
}

// LinePrompter reads one answer per line. It is used when stdin is not a
// terminal or single-key input is unavailable.
type LinePrompter struct {
	Writer *ui.Writer
	in     *bufio.Reader
}

// NewLinePrompter creates a prompter that reads answers from in.
func NewLinePrompter(in io.Reader, w *ui.Writer) *LinePrompter {
	return &LinePrompter{Writer: w, in: bufio.NewReader(in)}
}

// Prompt shows the edit and waits for an answer. End of input aborts.
func (p *LinePrompter) Prompt(ctx context.Context, req merge.Request) (merge.Choice, error) {
	p.Writer.Preview(req)
	out := p.Writer.Stderr()

	for {
		if err := ctx.Err(); err != nil {
			return merge.Abort, err
		}
		fmt.Fprint(out, question)

		line, err := p.in.ReadString('\n')
		if line == "" && err != nil {
			fmt.Fprintln(out)
			if errors.Is(err, io.EOF) {
				return merge.Abort, nil
			}
			return merge.Abort, fmt.Errorf("read answer: %w", err)
		}
		if choice, ok := ParseAnswer(line); ok {
			return choice, nil
		}
		if err != nil {
			return merge.Abort, nil
		}
	}
}

// KeyPrompter answers with a single key press, no Enter needed.
type KeyPrompter struct {
	Writer *ui.Writer
	getKey func() (rune, keyboard.Key, error)
}

// NewKeyPrompter creates a prompter reading single keys from the terminal.
func NewKeyPrompter(w *ui.Writer) *KeyPrompter {
	return &KeyPrompter{Writer: w, getKey: keyboard.GetSingleKey}
}

// Prompt shows the edit and waits for y, a, n or b. Esc and Ctrl+C abort;
// other keys ask again.
func (p *KeyPrompter) Prompt(ctx context.Context, req merge.Request) (merge.Choice, error) {
	p.Writer.Preview(req)
	out := p.Writer.Stderr()

	for {
		if err := ctx.Err(); err != nil {
			return merge.Abort, err
		}
		fmt.Fprint(out, question)

		ch, key, err := p.getKey()
		if err != nil {
			fmt.Fprintln(out)
			return merge.Abort, fmt.Errorf("read key: %w", err)
		}
		choice, ok := KeyChoice(ch, key)
		if ok {
			fmt.Fprintln(out, choice)
			return choice, nil
		}
		fmt.Fprintln(out)
	}
}

// KeyChoice maps a key press to a choice.
func KeyChoice(ch rune, key keyboard.Key) (merge.Choice, bool) {
	switch key {
	case keyboard.KeyEsc, keyboard.KeyCtrlC, keyboard.KeyCtrlD:
		return merge.Abort, true
	}
	if ch == 0 {
		return merge.Skip, false
	}
	return ParseAnswer(string(ch))
}
