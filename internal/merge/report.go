package merge

import (
	"fmt"

	"github.com/kvit-s/kvit-merge/internal/validate"
)

// UnmergedBlock is an edit left for manual resolution.
type UnmergedBlock struct {
	Index       int      `json:"index"`
	FilePath    string   `json:"file_path"`
	Search      string   `json:"search"`
	Replace     string   `json:"replace"`
	Window      string   `json:"best_window"`
	Similarity  float64  `json:"similarity"`
	StartLine   int      `json:"start_line"`
	EndLine     int      `json:"end_line"`
	Reason      Reason   `json:"reason"`
	Kind        Kind     `json:"kind"`
	Detail      string   `json:"detail,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// FileFailure records a file that could not be written.
type FileFailure struct {
	Path  string `json:"path"`
	Kind  Kind   `json:"kind"`
	Error string `json:"error"`
}

// Report summarises a run.
type Report struct {
	FilesChanged  int                `json:"files_changed"`
	BlocksApplied int                `json:"blocks_applied"`
	BlocksSkipped int                `json:"blocks_skipped"`
	BlocksTotal   int                `json:"blocks_total"`
	Files         []string           `json:"files,omitempty"`
	Unmerged      []UnmergedBlock    `json:"unmerged,omitempty"`
	Aborted       bool               `json:"aborted"`
	DryRun        bool               `json:"dry_run,omitempty"`
	Failures      []FileFailure      `json:"failures,omitempty"`
	Warnings      []validate.Finding `json:"warnings,omitempty"`
}

// NewReport builds the report of a plan that will not be written: counts of
// outcomes plus the unmerged list. Nothing is reported as applied.
func NewReport(plan *Plan) *Report {
	r := &Report{
		BlocksTotal:   len(plan.Decisions),
		BlocksSkipped: plan.Count(Skipped),
		Aborted:       plan.Aborted,
	}
	for _, d := range plan.Decisions {
		if d.Outcome.Kind != Unmerged {
			continue
		}
		r.Unmerged = append(r.Unmerged, UnmergedBlock{
			Index:       d.Index,
			FilePath:    d.Block.FilePath,
			Search:      d.Block.Search,
			Replace:     d.Block.Replace,
			Window:      d.Outcome.Window,
			Similarity:  d.Outcome.Similarity,
			StartLine:   d.Outcome.StartLine,
			EndLine:     d.Outcome.EndLine,
			Reason:      d.Outcome.Reason,
			Kind:        d.Outcome.Reason.Kind(),
			Detail:      d.Outcome.Detail,
			Suggestions: d.Outcome.Suggestions,
		})
	}
	return r
}

// OK reports whether every edit was resolved and written.
func (r *Report) OK() bool {
	return len(r.Unmerged) == 0 && !r.Aborted && len(r.Failures) == 0
}

// Summary is the one-line result shown after a run.
func (r *Report) Summary() string {
	switch {
	case r.Aborted:
		return fmt.Sprintf("Merge aborted, no files changed (%d blocks).", r.BlocksTotal)
	case len(r.Unmerged) > 0:
		return fmt.Sprintf("Merge failed: %d of %d blocks could not be merged, no files changed.", len(r.Unmerged), r.BlocksTotal)
	}
	return fmt.Sprintf("Merged changes in %d files %d/%d blocks.", r.FilesChanged, r.BlocksApplied, r.BlocksTotal)
}
