package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/kvit-s/kvit-merge/internal/logger"
	"github.com/kvit-s/kvit-merge/internal/validate"
)

// Validator runs advisory checks on a written file.
type Validator interface {
	Check(ctx context.Context, path string) (validate.Finding, bool)
}

// Checkpointer keeps the pre-merge content of the files about to be written.
type Checkpointer interface {
	Save(changes []FileChange) error
}

// Executor writes a resolved plan to disk.
type Executor struct {
	FS         FileSystem
	Validator  Validator    // optional
	Checkpoint Checkpointer // optional, skipped on dry runs
	Logger     *logger.Logger
	DryRun     bool
}

// NewExecutor creates an executor without post-write validation.
func NewExecutor(fsys FileSystem) *Executor {
	return &Executor{FS: fsys, Logger: logger.Nop()}
}

// Execute writes every changed file once. It refuses plans with unmerged
// edits (ErrUnresolvedPlan) and writes nothing when a target changed on disk
// since planning (ErrConcurrentModification). Individual write failures are
// recorded in the report and the remaining files are still written.
//
// Cancellation is honoured up to the first write and turns the run into an
// abort. Once writing starts every file is attempted; a cancel after that
// only cuts the advisory validation short.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Report, error) {
	if plan.Blocked() {
		return nil, ErrUnresolvedPlan
	}

	report := NewReport(plan)
	report.DryRun = e.DryRun
	if plan.Aborted {
		return report, nil
	}

	changes := plan.Changes()
	if err := e.preflight(plan, report); err != nil {
		return report, err
	}
	if ctx.Err() != nil {
		e.Logger.Info("merge cancelled before writing")
		report.Aborted = true
		return report, nil
	}
	if e.Checkpoint != nil && !e.DryRun && len(changes) > 0 {
		if err := e.Checkpoint.Save(changes); err != nil {
			return report, &Error{Kind: KindIO, Err: fmt.Errorf("save checkpoint: %w", err)}
		}
	}

	for _, c := range changes {
		if !e.DryRun {
			if err := e.FS.WriteFile(c.Path, c.Content); err != nil {
				report.Failures = append(report.Failures, FileFailure{Path: c.Path, Kind: KindIO, Error: err.Error()})
				e.Logger.Error("write failed", IOError(c.Path, err))
				continue
			}
			e.Logger.FileWritten(c.Path, len(c.Content), c.Created)
		}

		report.FilesChanged++
		report.BlocksApplied += c.Applied
		report.Files = append(report.Files, c.Path)
	}

	if e.Validator != nil && !e.DryRun {
		for _, path := range report.Files {
			if ctx.Err() != nil {
				break
			}
			if f, found := e.Validator.Check(ctx, path); found {
				report.Warnings = append(report.Warnings, f)
			}
		}
	}
	return report, nil
}

// preflight re-reads every target and compares it with what was planned
// against. Any difference fails the whole run before the first write.
func (e *Executor) preflight(plan *Plan, report *Report) error {
	var conflicts []string
	for _, c := range plan.Changes() {
		st := plan.files[c.Path]

		current, err := e.FS.ReadFile(c.Path)
		existsNow := true
		if errors.Is(err, ErrNotExist) {
			existsNow = false
		} else if err != nil {
			report.Failures = append(report.Failures, FileFailure{Path: c.Path, Kind: KindIO, Error: err.Error()})
			return IOError(c.Path, err)
		}

		changed := existsNow != st.existed || (existsNow && ContentHash(current) != st.diskHash)
		if changed {
			conflicts = append(conflicts, c.Path)
			report.Failures = append(report.Failures, FileFailure{
				Path:  c.Path,
				Kind:  KindConcurrentModification,
				Error: ErrConcurrentModification.Error(),
			})
		}
	}

	if len(conflicts) > 0 {
		return &Error{
			Kind:    KindConcurrentModification,
			Err:     fmt.Errorf("%w (%d files)", ErrConcurrentModification, len(conflicts)),
			Details: map[string]any{"paths": conflicts},
		}
	}
	return nil
}
