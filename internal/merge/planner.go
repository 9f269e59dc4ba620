// Package merge resolves parsed edit blocks against the working tree and
// writes the results. A batch is atomic: if any edit cannot be placed, no
// file is written.
package merge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kvit-s/kvit-merge/internal/editblock"
	"github.com/kvit-s/kvit-merge/internal/lang"
	"github.com/kvit-s/kvit-merge/internal/logger"
	"github.com/kvit-s/kvit-merge/internal/similarity"
)

// Resolver maps an edit block path to an absolute path, rejecting paths the
// workspace policy does not allow.
type Resolver interface {
	ResolvePath(path string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(path string) (string, error)

func (f ResolverFunc) ResolvePath(path string) (string, error) { return f(path) }

// RootResolver resolves relative paths against root without any policy.
func RootResolver(root string) Resolver {
	return ResolverFunc(func(path string) (string, error) {
		if filepath.IsAbs(path) {
			return filepath.Clean(path), nil
		}
		return filepath.Join(root, path), nil
	})
}

// Options are the per-run merge settings.
type Options struct {
	Threshold    float64
	Confirm      bool
	StrictCreate bool
}

// Planner decides the outcome of each edit against the running file content.
type Planner struct {
	FS        FileSystem
	Resolver  Resolver
	Matcher   *similarity.Matcher
	Prompter  Prompter
	Suggester Suggester // optional, used for missing targets in strict mode
	Options   Options
	Logger    *logger.Logger
}

// NewPlanner creates a planner with defaults for nil collaborators.
func NewPlanner(fsys FileSystem, resolver Resolver, opts Options) *Planner {
	return &Planner{
		FS:       fsys,
		Resolver: resolver,
		Matcher:  similarity.NewMatcher(nil),
		Prompter: AlwaysConfirm,
		Options:  opts,
		Logger:   logger.Nop(),
	}
}

// Plan resolves every block in order. Unreadable targets become unmerged
// edits; the only error returned is from a failing prompter.
func (p *Planner) Plan(ctx context.Context, blocks []editblock.Block) (*Plan, error) {
	plan := newPlan(len(blocks))
	r := &run{Planner: p, plan: plan, total: len(blocks), autoConfirm: !p.Options.Confirm}

	for i, b := range blocks {
		if !plan.Aborted && ctx.Err() != nil {
			plan.Aborted = true
		}
		if plan.Aborted {
			plan.Decisions = append(plan.Decisions, Decision{
				Index:   i,
				Block:   b,
				Outcome: Outcome{Kind: Skipped, Reason: ReasonAborted},
			})
			continue
		}

		d, err := r.resolve(ctx, i, b)
		if err != nil {
			return nil, err
		}
		plan.Decisions = append(plan.Decisions, d)
		r.log(d)
	}
	return plan, nil
}

// run holds the mutable state of one Plan call.
type run struct {
	*Planner
	plan        *Plan
	total       int
	autoConfirm bool
}

func (r *run) resolve(ctx context.Context, i int, b editblock.Block) (Decision, error) {
	d := Decision{Index: i, Block: b}

	path, err := r.Resolver.ResolvePath(b.FilePath)
	d.Path = path
	if err != nil {
		d.Outcome = Outcome{Kind: Unmerged, Reason: ReasonOutsideWorkspace, Detail: err.Error()}
		return d, nil
	}

	st, tracked := r.plan.files[path]
	if !tracked {
		content, err := r.FS.ReadFile(path)
		switch {
		case errors.Is(err, ErrNotExist):
			if r.Options.StrictCreate && b.Search != "" {
				d.Outcome = Outcome{
					Kind:   Unmerged,
					Reason: ReasonTargetMissing,
					Detail: "file does not exist and the search text is not empty",
				}
				if r.Suggester != nil {
					d.Outcome.Suggestions = r.Suggester.Suggest(b.FilePath)
				}
				return d, nil
			}
			st = r.plan.track(path, "", false)
			st.content = b.Replace
			st.applied++
			d.Outcome = Outcome{Kind: Applied, Method: MethodCreate, NewContent: b.Replace, Similarity: 1}
			return d, nil
		case err != nil:
			d.Outcome = Outcome{Kind: Unmerged, Reason: ReasonIOError, Detail: err.Error()}
			return d, nil
		}
		st = r.plan.track(path, content, true)
	}

	running := st.content
	out := Outcome{Kind: Applied, OldContent: running}

	switch {
	case b.Search == "":
		out.Method = MethodAppend
		out.NewContent = running + "\n" + b.Replace
	case strings.Contains(running, b.Search):
		out.Method = MethodExact
		out.Similarity = 1
		out.Window = b.Search
		out.NewContent = strings.Replace(running, b.Search, b.Replace, 1)
	default:
		m := r.Matcher.BestWindow(b.Search, running)
		out.Similarity = m.Similarity
		out.Window = m.Window
		out.StartLine, out.EndLine = m.StartLine, m.EndLine
		if m.Similarity < r.Options.Threshold {
			out.Kind = Unmerged
			out.Reason = ReasonBelowThreshold
			out.OldContent = ""
			d.Outcome = out
			return d, nil
		}
		if m.Ties > 0 {
			r.Logger.AmbiguousMatch(path, m.Similarity, m.Ties, m.StartLine)
		}
		out.Method = MethodFuzzy
		out.NewContent = strings.Replace(running, m.Window, b.Replace, 1)
	}

	if out.NewContent == running {
		d.Outcome = Outcome{Kind: Skipped, Method: out.Method, Similarity: out.Similarity, Reason: ReasonNoChange}
		return d, nil
	}

	// Once the batch is blocked nothing will be written; keep evaluating
	// for the report but stop asking.
	if !r.autoConfirm && !r.plan.Blocked() {
		choice, err := r.Prompter.Prompt(ctx, r.request(i, b, path, out))
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				return d, fmt.Errorf("confirm edit %d: %w", i+1, err)
			}
			choice = Abort
		}
		switch choice {
		case ConfirmAll:
			r.autoConfirm = true
		case Skip:
			d.Outcome = Outcome{Kind: Skipped, Method: out.Method, Similarity: out.Similarity, Reason: ReasonDeclined}
			return d, nil
		case Abort:
			r.plan.Aborted = true
			d.Outcome = Outcome{Kind: Skipped, Method: out.Method, Similarity: out.Similarity, Reason: ReasonAborted}
			return d, nil
		}
	}

	st.content = out.NewContent
	st.applied++
	d.Outcome = out
	return d, nil
}

func (r *run) request(i int, b editblock.Block, path string, out Outcome) Request {
	return Request{
		Index:      i,
		Total:      r.total,
		Path:       b.FilePath,
		AbsPath:    path,
		Language:   lang.FromPath(path),
		Method:     out.Method,
		Search:     b.Search,
		Window:     out.Window,
		Replace:    b.Replace,
		Similarity: out.Similarity,
		OldContent: out.OldContent,
		NewContent: out.NewContent,
	}
}

func (r *run) log(d Decision) {
	if d.Outcome.Kind == Unmerged {
		r.Logger.EditUnmerged(d.Index, d.Path, string(d.Outcome.Reason), d.Outcome.Similarity)
		return
	}
	r.Logger.EditPlanned(d.Index, d.Path, d.Outcome.Kind.String(), string(d.Outcome.Method), d.Outcome.Similarity)
}
