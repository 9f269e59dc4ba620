package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/kvit-s/kvit-merge/internal/gitdiff"
	"github.com/kvit-s/kvit-merge/internal/lang"
	"github.com/kvit-s/kvit-merge/internal/merge"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().Bold(true)
)

// panel renders body in a bordered box with a title line.
func panel(title, body string) string {
	if body == "" {
		body = grayColor.Sprint("(empty)")
	}
	return panelStyle.Render(titleStyle.Render(title) + "\n" + body)
}

// Preview shows an edit awaiting confirmation.
func (w *Writer) Preview(req merge.Request) {
	out := w.stderr
	fmt.Fprintln(out)
	headerColor.Fprintf(out, "[%d/%d] %s", req.Index+1, req.Total, req.Path)
	grayColor.Fprintf(out, " (%s, %s", req.Language, req.Method)
	if req.Method == merge.MethodFuzzy {
		grayColor.Fprintf(out, ", similarity %.2f", req.Similarity)
	}
	grayColor.Fprintln(out, ")")

	if req.Method == merge.MethodFuzzy {
		fmt.Fprintln(out, panel("search vs file", InlineDiff(req.Search, req.Window, !color.NoColor)))
	}
	if diff := UnifiedDiff(req.OldContent, req.NewContent, req.Path); diff != "" {
		fmt.Fprint(out, colorizeDiff(diff))
	}
}

// Unmerged lists edits that could not be placed, with enough context to
// resolve them by hand.
func (w *Writer) Unmerged(blocks []merge.UnmergedBlock) {
	if w.jsonMode || len(blocks) == 0 {
		return
	}
	out := w.stdout
	errorColor.Fprintf(out, "\n%s:\n", Plural(len(blocks), "unmerged block"))

	for _, b := range blocks {
		fmt.Fprintln(out)
		headerColor.Fprintf(out, "File: %s", b.FilePath)
		grayColor.Fprintf(out, " (%s, %s)\n", lang.FromPath(b.FilePath), b.Reason)
		if b.Detail != "" {
			grayColor.Fprintln(out, b.Detail)
		}

		fmt.Fprintln(out, panel(fmt.Sprintf("SEARCH (similarity %.2f)", b.Similarity), b.Search))
		if b.Window != "" {
			title := fmt.Sprintf("BEST MATCH (lines %d-%d)", b.StartLine+1, b.EndLine)
			fmt.Fprintln(out, panel(title, b.Window))
		}
		fmt.Fprintln(out, panel("REPLACE", b.Replace))

		if len(b.Suggestions) > 0 {
			warnColor.Fprintf(out, "Did you mean: %s\n", strings.Join(b.Suggestions, ", "))
		}
	}
}

// Report prints the result of a SEARCH/REPLACE run.
func (w *Writer) Report(r *merge.Report, rel func(string) string) error {
	if w.jsonMode {
		return w.JSON(r)
	}

	w.Unmerged(r.Unmerged)
	for _, f := range r.Failures {
		w.Error(fmt.Sprintf("%s: %s", rel(f.Path), f.Error))
	}
	for _, f := range r.Warnings {
		w.Warn(fmt.Sprintf("%s: %s reported:\n%s", rel(f.Path), f.Command, f.Output))
	}
	if !w.quiet {
		for _, f := range r.Files {
			grayColor.Fprintf(w.stdout, "  %s\n", rel(f))
		}
	}

	summary := r.Summary()
	if r.DryRun {
		summary = "(dry run) " + summary
	}
	if r.OK() {
		w.Success(summary)
	} else {
		w.Failure(summary)
	}
	return nil
}

// PatchReport prints the result of a diff run.
func (w *Writer) PatchReport(r *gitdiff.Result) error {
	if w.jsonMode {
		return w.JSON(r)
	}
	for _, b := range r.Blocks {
		files := strings.Join(b.Files, ", ")
		for _, warn := range b.Warnings {
			w.Warn(warn)
		}
		if b.Applied {
			okColor.Fprintf(w.stdout, "  applied  #%d %s\n", b.Index+1, files)
		} else {
			errorColor.Fprintf(w.stdout, "  failed   #%d %s\n", b.Index+1, files)
			grayColor.Fprintf(w.stdout, "           %s\n", b.Error)
		}
	}
	if r.OK() {
		w.Success(r.Summary())
	} else {
		w.Failure(r.Summary())
	}
	return nil
}
