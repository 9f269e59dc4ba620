package gitdiff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/kvit-s/kvit-merge/internal/logger"
	"github.com/kvit-s/kvit-merge/internal/merge"
)

// BlockResult is the outcome of applying one diff block.
type BlockResult struct {
	Index    int      `json:"index"`
	Files    []string `json:"files"`
	Applied  bool     `json:"applied"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Result collects the outcome of every block in one Apply call.
type Result struct {
	Blocks []BlockResult `json:"blocks"`
}

// OK reports whether every block applied.
func (r *Result) OK() bool {
	for _, b := range r.Blocks {
		if !b.Applied {
			return false
		}
	}
	return true
}

// Applied counts the blocks that applied.
func (r *Result) Applied() int {
	n := 0
	for _, b := range r.Blocks {
		if b.Applied {
			n++
		}
	}
	return n
}

// Summary is the one-line result shown after a run.
func (r *Result) Summary() string {
	return fmt.Sprintf("Applied %d/%d diff blocks.", r.Applied(), len(r.Blocks))
}

// Applier runs `git apply -p1` (or `patch -p1` when git is missing) in RepoRoot.
type Applier struct {
	RepoRoot string
	Logger   *logger.Logger
	Check    bool // only test whether each block applies

	repo *git.Repository // nil outside a git repository
}

// NewApplier locates the repository containing workspace. Outside a
// repository the workspace itself is used as the patch root.
func NewApplier(workspace string, log *logger.Logger) (*Applier, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &Applier{RepoRoot: workspace, Logger: log}

	repo, err := git.PlainOpenWithOptions(workspace, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no worktree to patch
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	a.repo = repo
	a.RepoRoot = wt.Filesystem.Root()
	return a, nil
}

// Apply applies each block independently. A failing block is recorded and
// the remaining blocks are still attempted; nothing is rolled back.
func (a *Applier) Apply(ctx context.Context, blocks []string) (*Result, error) {
	dirty, err := a.dirtyFiles()
	if err != nil {
		a.Logger.Warn("could not read worktree status: " + err.Error())
	}

	result := &Result{}
	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		br := BlockResult{Index: i, Files: TargetFiles(block)}
		for _, f := range br.Files {
			if dirty[f] {
				br.Warnings = append(br.Warnings, fmt.Sprintf("%s has uncommitted changes", f))
			}
		}

		err := a.applyOne(ctx, block)
		if err != nil {
			perr := merge.PatchError(err, map[string]any{"index": i, "files": br.Files})
			br.Error = perr.Error()
		} else {
			br.Applied = true
		}
		a.Logger.PatchApplied(i, br.Files, err)
		result.Blocks = append(result.Blocks, br)
	}
	return result, nil
}

func (a *Applier) applyOne(ctx context.Context, block string) error {
	if !strings.HasSuffix(block, "\n") {
		block += "\n"
	}

	scratch, err := os.CreateTemp("", "kvit-merge-*.diff")
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	defer os.Remove(scratch.Name())

	if _, err := scratch.WriteString(block); err != nil {
		scratch.Close()
		return fmt.Errorf("write scratch file: %w", err)
	}
	if err := scratch.Close(); err != nil {
		return fmt.Errorf("close scratch file: %w", err)
	}

	name, args := patchCommand(scratch.Name(), a.Check)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = a.RepoRoot
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			return fmt.Errorf("%s failed: %w", name, err)
		}
		return fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}
	return nil
}

// patchCommand prefers git apply and falls back to patch(1).
func patchCommand(scratch string, check bool) (string, []string) {
	if _, err := exec.LookPath("git"); err == nil {
		args := []string{"apply", "-p1", "--whitespace=nowarn"}
		if check {
			args = append(args, "--check")
		}
		return "git", append(args, scratch)
	}
	args := []string{"-s", "-p1", "--forward", "--no-backup-if-mismatch"}
	if check {
		args = append(args, "--dry-run")
	}
	return "patch", append(args, "-i", scratch)
}

// dirtyFiles returns repository-relative paths with uncommitted changes,
// untracked files included. It is empty outside a repository.
func (a *Applier) dirtyFiles() (map[string]bool, error) {
	dirty := map[string]bool{}
	if a.repo == nil {
		return dirty, nil
	}
	wt, err := a.repo.Worktree()
	if err != nil {
		return dirty, err
	}
	status, err := wt.Status()
	if err != nil {
		return dirty, err
	}
	for path, fs := range status {
		if fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified {
			dirty[filepath.ToSlash(path)] = true
		}
	}
	return dirty, nil
}
