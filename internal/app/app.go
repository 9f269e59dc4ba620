// Package app runs one merge of a model response into a workspace.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kvit-s/kvit-merge/internal/checkpoint"
	"github.com/kvit-s/kvit-merge/internal/config"
	"github.com/kvit-s/kvit-merge/internal/editblock"
	"github.com/kvit-s/kvit-merge/internal/gitdiff"
	"github.com/kvit-s/kvit-merge/internal/logger"
	"github.com/kvit-s/kvit-merge/internal/merge"
	"github.com/kvit-s/kvit-merge/internal/similarity"
	"github.com/kvit-s/kvit-merge/internal/ui"
	"github.com/kvit-s/kvit-merge/internal/validate"
)

// ErrNoBlocks is returned when the response contains nothing to merge.
var ErrNoBlocks = errors.New("no edit blocks found in response")

// Deps are the collaborators of a run. Zero values select defaults.
type Deps struct {
	Writer   *ui.Writer
	Logger   *logger.Logger
	FS       merge.FileSystem
	Prompter merge.Prompter // asked when merge.confirm is set

	// Checkpoint saves what a search_replace merge overwrites, for undo.
	Checkpoint merge.Checkpointer
	DryRun     bool
}

func (d *Deps) defaults() {
	if d.Writer == nil {
		d.Writer = ui.NewWriter()
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.FS == nil {
		d.FS = merge.OSFileSystem{}
	}
	if d.Prompter == nil {
		d.Prompter = merge.AlwaysConfirm
	}
}

// Result is the outcome of a run in either mode.
type Result struct {
	Mode   string
	Report *merge.Report   // search_replace
	Patch  *gitdiff.Result // git_diff
}

// OK reports whether everything in the response was merged.
func (r *Result) OK() bool {
	switch {
	case r.Report != nil:
		return r.Report.OK()
	case r.Patch != nil:
		return r.Patch.OK()
	}
	return false
}

// Run merges response into the workspace of cfg and prints the report.
func Run(ctx context.Context, cfg *config.Config, response string, deps Deps) (*Result, error) {
	deps.defaults()
	start := time.Now()

	var (
		res *Result
		err error
	)
	switch cfg.Merge.Mode {
	case config.ModeGitDiff:
		res, err = runGitDiff(ctx, cfg, response, deps)
	default:
		res, err = runSearchReplace(ctx, cfg, response, deps)
	}

	elapsed := time.Since(start)
	if res != nil {
		logFinished(deps.Logger, res, elapsed)
		deps.Writer.Info(fmt.Sprintf("finished in %s", ui.FormatDuration(elapsed)))
	}
	return res, err
}

func runSearchReplace(ctx context.Context, cfg *config.Config, response string, deps Deps) (*Result, error) {
	w, log := deps.Writer, deps.Logger

	parser := editblock.NewParser(cfg.Merge.Fence, log.Zap())
	blocks, issues := parser.ParseWithIssues(response)
	log.BlocksParsed(config.ModeSearchReplace, len(blocks), len(issues))
	for _, is := range issues {
		w.Warn(fmt.Sprintf("line %d: dropped edit block for %q: %s", is.Line, is.Path, is.Reason))
	}
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	w.Info(fmt.Sprintf("found %s", ui.Plural(len(blocks), "edit block")))

	matcher, err := newMatcher(cfg.Merge.Metric)
	if err != nil {
		return nil, err
	}

	planner := merge.NewPlanner(deps.FS, cfg, merge.Options{
		Threshold:    cfg.Merge.Threshold(),
		Confirm:      cfg.Merge.Confirm,
		StrictCreate: cfg.Merge.StrictCreate,
	})
	planner.Matcher = matcher
	planner.Prompter = deps.Prompter
	planner.Suggester = &merge.TreeSuggester{Root: cfg.Workspace.Root}
	planner.Logger = log

	plan, err := planner.Plan(ctx, blocks)
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: config.ModeSearchReplace}
	if plan.Blocked() {
		res.Report = merge.NewReport(plan)
		return res, w.Report(res.Report, cfg.RelPath)
	}

	executor := merge.NewExecutor(deps.FS)
	executor.Logger = log
	executor.DryRun = deps.DryRun
	executor.Checkpoint = deps.Checkpoint
	if cfg.Validate.IsEnabled() {
		executor.Validator = validate.NewRunner(cfg.Validate.CheckerMap(), cfg.Validate.Timeout, log.Zap())
	}

	report, execErr := executor.Execute(ctx, plan)
	if report == nil {
		return nil, execErr
	}
	res.Report = report
	if err := w.Report(report, cfg.RelPath); err != nil {
		return res, err
	}
	return res, execErr
}

func runGitDiff(ctx context.Context, cfg *config.Config, response string, deps Deps) (*Result, error) {
	w, log := deps.Writer, deps.Logger

	diffs := gitdiff.Extract(response)
	log.BlocksParsed(config.ModeGitDiff, len(diffs), 0)
	if len(diffs) == 0 {
		return nil, ErrNoBlocks
	}
	w.Info(fmt.Sprintf("found %s", ui.Plural(len(diffs), "diff block")))

	applier, err := gitdiff.NewApplier(cfg.Workspace.Root, log)
	if err != nil {
		return nil, err
	}
	applier.Check = deps.DryRun

	patch, err := applier.Apply(ctx, diffs)
	if patch == nil {
		return nil, err
	}
	res := &Result{Mode: config.ModeGitDiff, Patch: patch}
	if perr := w.PatchReport(patch); perr != nil {
		return res, perr
	}
	return res, err
}

// newMatcher keeps the indexed ratio search for the default metric.
func newMatcher(name string) (*similarity.Matcher, error) {
	metric, err := similarity.MetricByName(name)
	if err != nil {
		return nil, err
	}
	if name == "" || name == similarity.MetricRatio {
		return similarity.NewMatcher(nil), nil
	}
	return similarity.NewMatcher(metric), nil
}

func logFinished(log *logger.Logger, res *Result, elapsed time.Duration) {
	switch {
	case res.Report != nil:
		r := res.Report
		log.RunFinished(res.Mode, r.FilesChanged, r.BlocksApplied, r.BlocksTotal, len(r.Unmerged), r.Aborted, elapsed)
	case res.Patch != nil:
		p := res.Patch
		log.RunFinished(res.Mode, 0, p.Applied(), len(p.Blocks), len(p.Blocks)-p.Applied(), false, elapsed)
	}
}

// Undo restores the files written by the last search_replace merge.
func Undo(store *checkpoint.Manager, cfg *config.Config, w *ui.Writer) error {
	paths, err := store.Restore()
	if errors.Is(err, checkpoint.ErrChanged) {
		for _, p := range paths {
			w.Error(fmt.Sprintf("%s changed after the merge", cfg.RelPath(p)))
		}
		return err
	}
	if err != nil {
		return err
	}
	for _, p := range paths {
		w.Info("restored " + cfg.RelPath(p))
	}
	w.Success(fmt.Sprintf("Restored %s.", ui.Plural(len(paths), "file")))
	return nil
}
