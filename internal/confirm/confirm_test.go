package confirm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eiannone/keyboard"
	"github.com/fatih/color"
	"github.com/kvit-s/kvit-merge/internal/merge"
	"github.com/kvit-s/kvit-merge/internal/ui"
)

func init() {
	color.NoColor = true
}

func testRequest() merge.Request {
	return merge.Request{
		Total:      1,
		Path:       "a.txt",
		Language:   "plaintext",
		Method:     merge.MethodExact,
		Search:     "x\n",
		Window:     "x\n",
		Replace:    "y\n",
		Similarity: 1,
		OldContent: "x\n",
		NewContent: "y\n",
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want merge.Choice
		ok   bool
	}{
		{"y\n", merge.Confirm, true},
		{" YES ", merge.Confirm, true},
		{"a", merge.ConfirmAll, true},
		{"all", merge.ConfirmAll, true},
		{"n", merge.Skip, true},
		{"no", merge.Skip, true},
		{"b", merge.Abort, true},
		{"abort", merge.Abort, true},
		{"q", merge.Abort, true},
		{"maybe", merge.Skip, false},
		{"", merge.Skip, false},
	}
	for _, tt := range tests {
		got, ok := ParseAnswer(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseAnswer(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLinePrompter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  merge.Choice
	}{
		{"yes", "y\n", merge.Confirm},
		{"retry after unknown answer", "what\nn\n", merge.Skip},
		{"all without newline", "a", merge.ConfirmAll},
		{"eof aborts", "", merge.Abort},
		{"unknown then eof aborts", "what", merge.Abort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			p := NewLinePrompter(strings.NewReader(tt.input), ui.NewWriterTo(&stdout, &stderr))

			got, err := p.Prompt(context.Background(), testRequest())
			if err != nil {
				t.Fatalf("Prompt() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Prompt() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(stderr.String(), "a.txt") {
				t.Errorf("preview not shown: %q", stderr.String())
			}
		})
	}
}

func TestLinePrompter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	p := NewLinePrompter(strings.NewReader("y\n"), ui.NewWriterTo(&buf, &buf))
	got, err := p.Prompt(ctx, testRequest())
	if !errors.Is(err, context.Canceled) || got != merge.Abort {
		t.Errorf("Prompt() = %v, %v; want Abort, context.Canceled", got, err)
	}
}

type keyPress struct {
	ch  rune
	key keyboard.Key
}

func scriptedKeys(presses ...keyPress) func() (rune, keyboard.Key, error) {
	return func() (rune, keyboard.Key, error) {
		if len(presses) == 0 {
			return 0, 0, errors.New("no more keys")
		}
		p := presses[0]
		presses = presses[1:]
		return p.ch, p.key, nil
	}
}

func TestKeyPrompter(t *testing.T) {
	tests := []struct {
		name    string
		presses []keyPress
		want    merge.Choice
	}{
		{"y", []keyPress{{ch: 'y'}}, merge.Confirm},
		{"uppercase A", []keyPress{{ch: 'A'}}, merge.ConfirmAll},
		{"n", []keyPress{{ch: 'n'}}, merge.Skip},
		{"b", []keyPress{{ch: 'b'}}, merge.Abort},
		{"esc", []keyPress{{key: keyboard.KeyEsc}}, merge.Abort},
		{"ctrl+c", []keyPress{{key: keyboard.KeyCtrlC}}, merge.Abort},
		{"ignored keys then y", []keyPress{{ch: 'x'}, {key: keyboard.KeyEnter}, {ch: 'y'}}, merge.Confirm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := &KeyPrompter{Writer: ui.NewWriterTo(&buf, &buf), getKey: scriptedKeys(tt.presses...)}

			got, err := p.Prompt(context.Background(), testRequest())
			if err != nil {
				t.Fatalf("Prompt() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Prompt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyPrompter_ReadError(t *testing.T) {
	var buf bytes.Buffer
	p := &KeyPrompter{Writer: ui.NewWriterTo(&buf, &buf), getKey: scriptedKeys()}

	got, err := p.Prompt(context.Background(), testRequest())
	if err == nil || got != merge.Abort {
		t.Errorf("Prompt() = %v, %v; want Abort with error", got, err)
	}
}
