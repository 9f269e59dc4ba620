package ui

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/kvit-s/kvit-merge/internal/gitdiff"
	"github.com/kvit-s/kvit-merge/internal/merge"
)

func init() {
	color.NoColor = true
}

func TestUnifiedDiff(t *testing.T) {
	diff := UnifiedDiff("a\nb\nc\n", "a\nB\nc\n", "x.txt")
	for _, want := range []string{"--- a/x.txt", "+++ b/x.txt", "-b\n", "+B\n", " a\n"} {
		if !strings.Contains(diff, want) {
			t.Errorf("diff missing %q:\n%s", want, diff)
		}
	}
	if got := UnifiedDiff("same\n", "same\n", "x.txt"); got != "" {
		t.Errorf("identical content diff = %q, want empty", got)
	}
}

func TestInlineDiff(t *testing.T) {
	got := InlineDiff("return a + b", "return a - b", false)
	if got != "return a [-+-]{+-+} b" {
		t.Errorf("InlineDiff() = %q", got)
	}
	if got := InlineDiff("same", "same", false); got != "same" {
		t.Errorf("InlineDiff(equal) = %q", got)
	}
}

func TestTrimEOF(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a\nb\neof\n", "a\nb\n", true},
		{"a\neof", "a\n", true},
		{"a\n  eof  \n\n", "a\n", true},
		{"eof", "", true},
		{"a\nnot eof\n", "a\nnot eof\n", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := TrimEOF(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("TrimEOF(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{3 * time.Second, "3s"},
		{61 * time.Second, "1m 1s"},
		{time.Hour + 2*time.Second, "1h 2s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestPlural(t *testing.T) {
	if got := Plural(1, "file"); got != "1 file" {
		t.Errorf("Plural(1) = %q", got)
	}
	if got := Plural(3, "file"); got != "3 files" {
		t.Errorf("Plural(3) = %q", got)
	}
}

func TestWriter_QuietAndJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := NewWriterTo(&stdout, &stderr)

	w.SetQuiet(true)
	w.Info("hidden")
	w.Warn("hidden")
	w.Error("shown")
	if strings.Contains(stderr.String(), "hidden") || !strings.Contains(stderr.String(), "[error] shown") {
		t.Errorf("stderr = %q", stderr.String())
	}

	if w.IsJSONMode() {
		t.Error("IsJSONMode() = true before SetJSONMode")
	}
	w.SetJSONMode(true)
	if !w.IsJSONMode() {
		t.Error("IsJSONMode() = false after SetJSONMode(true)")
	}
	w.Success("not printed")
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty in JSON mode", stdout.String())
	}
}

func TestReport_Text(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := NewWriterTo(&stdout, &stderr)

	r := &merge.Report{
		BlocksTotal: 2,
		Unmerged: []merge.UnmergedBlock{{
			FilePath:    "calc.py",
			Search:      "def add(a, b):\n    return a + b\n",
			Replace:     "def add(a, b):\n    return a - b\n",
			Window:      "def sub(a, b):\n    return a - b\n",
			Similarity:  0.62,
			StartLine:   4,
			EndLine:     6,
			Reason:      merge.ReasonBelowThreshold,
			Suggestions: []string{"src/calc.py"},
		}},
	}
	if err := w.Report(r, filepath.Base); err != nil {
		t.Fatal(err)
	}

	out := stdout.String()
	for _, want := range []string{
		"1 unmerged block:",
		"File: calc.py",
		"SEARCH (similarity 0.62)",
		"BEST MATCH (lines 5-6)",
		"REPLACE",
		"Did you mean: src/calc.py",
		"Merge failed: 1 of 2 blocks could not be merged",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReport_JSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := NewWriterTo(&stdout, &stderr)
	w.SetJSONMode(true)

	r := &merge.Report{FilesChanged: 1, BlocksApplied: 2, BlocksTotal: 2, Files: []string{"/w/a.go"}}
	if err := w.Report(r, filepath.Base); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout.String(), err)
	}
	if got["files_changed"] != float64(1) || got["blocks_applied"] != float64(2) {
		t.Errorf("JSON report = %v", got)
	}
}

func TestPatchReport(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := NewWriterTo(&stdout, &stderr)

	r := &gitdiff.Result{Blocks: []gitdiff.BlockResult{
		{Index: 0, Files: []string{"a.txt"}, Applied: true, Warnings: []string{"a.txt has uncommitted changes"}},
		{Index: 1, Files: []string{"b.txt"}, Error: "patch_apply_failure: git failed"},
	}}
	if err := w.PatchReport(r); err != nil {
		t.Fatal(err)
	}

	out := stdout.String()
	if !strings.Contains(out, "applied  #1 a.txt") || !strings.Contains(out, "failed   #2 b.txt") {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(out, "Applied 1/2 diff blocks.") {
		t.Errorf("stdout missing summary: %q", out)
	}
	if !strings.Contains(stderr.String(), "[warn] a.txt has uncommitted changes") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestPreview_FuzzyShowsBothDiffs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	w := NewWriterTo(&stdout, &stderr)

	w.Preview(merge.Request{
		Index:      0,
		Total:      2,
		Path:       "calc.py",
		Language:   "python",
		Method:     merge.MethodFuzzy,
		Search:     "return a+b",
		Window:     "return a + b",
		Similarity: 0.91,
		OldContent: "def add(a, b):\n    return a + b\n",
		NewContent: "def add(a, b):\n    return a - b\n",
	})

	out := stderr.String()
	for _, want := range []string{"[1/2] calc.py", "python, fuzzy, similarity 0.91", "search vs file", "-    return a + b", "+    return a - b"} {
		if !strings.Contains(out, want) {
			t.Errorf("preview missing %q:\n%s", want, out)
		}
	}
}

func TestInputModel_Keys(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		key           tea.KeyType
		wantSubmitted bool
		wantCancelled bool
		wantValue     string
	}{
		{"ctrl+d submits", "a\nb", tea.KeyCtrlD, true, false, "a\nb"},
		{"enter after eof line submits", "a\neof", tea.KeyEnter, true, false, "a\n"},
		{"ctrl+c cancels", "a", tea.KeyCtrlC, false, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewInputModel("prompt")
			m.textarea.SetValue(tt.text)

			next, _ := m.Update(tea.KeyMsg{Type: tt.key})
			got := next.(InputModel)
			if got.Submitted() != tt.wantSubmitted || got.Cancelled() != tt.wantCancelled {
				t.Errorf("Submitted() = %v, Cancelled() = %v", got.Submitted(), got.Cancelled())
			}
			if got.Value() != tt.wantValue {
				t.Errorf("Value() = %q, want %q", got.Value(), tt.wantValue)
			}
		})
	}
}

func TestInputModel_EnterWithoutEOFKeepsEditing(t *testing.T) {
	m := NewInputModel("prompt")
	m.textarea.SetValue("a")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := next.(InputModel); got.Submitted() || got.Cancelled() {
		t.Error("plain Enter ended the input")
	}
}
