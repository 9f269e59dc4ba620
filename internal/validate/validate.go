// Package validate runs advisory static checks on files after they are written.
package validate

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/kvit-s/kvit-merge/internal/lang"
	"go.uber.org/zap"
)

// FilePlaceholder is replaced by the checked file's path in checker arguments.
const FilePlaceholder = "{file}"

const maxOutput = 4000

// Finding is a diagnostic produced by a checker. It never blocks a write.
type Finding struct {
	Path     string   `json:"path"`
	Language lang.Tag `json:"language"`
	Command  string   `json:"command"`
	Output   string   `json:"output"`
}

// DefaultCheckers restrict each tool to syntax and indentation diagnostics.
func DefaultCheckers() map[lang.Tag][]string {
	return map[lang.Tag][]string{
		lang.Python: {"pylint", "--disable=all", "--enable=E0001,W0311,W0312", FilePlaceholder},
		lang.Go:     {"gofmt", "-e", "-l", FilePlaceholder},
	}
}

// Runner executes the configured checker for a file's language.
type Runner struct {
	Checkers map[lang.Tag][]string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewRunner creates a runner. A nil checkers map selects DefaultCheckers.
func NewRunner(checkers map[lang.Tag][]string, timeout time.Duration, logger *zap.Logger) *Runner {
	if checkers == nil {
		checkers = DefaultCheckers()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Checkers: checkers, Timeout: timeout, Logger: logger}
}

// Check runs the checker for path. It returns a finding when the checker
// exits non-zero or cannot finish. Files without a checker, or whose checker
// is not installed, are skipped.
func (r *Runner) Check(ctx context.Context, path string) (Finding, bool) {
	tag := lang.FromPath(path)
	argv, ok := r.Checkers[tag]
	if !ok || len(argv) == 0 {
		return Finding{}, false
	}

	bin, err := exec.LookPath(argv[0])
	if err != nil {
		r.Logger.Debug("checker not installed", zap.String("checker", argv[0]), zap.String("language", string(tag)))
		return Finding{}, false
	}

	args := make([]string, 0, len(argv)-1)
	for _, a := range argv[1:] {
		args = append(args, strings.ReplaceAll(a, FilePlaceholder, path))
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()
	if err == nil {
		return Finding{}, false
	}

	output := strings.TrimSpace(out.String())
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || output == "" {
		output = strings.TrimSpace(output + "\n" + err.Error())
	}
	if len(output) > maxOutput {
		output = output[:maxOutput] + "\n... (truncated)"
	}

	f := Finding{
		Path:     path,
		Language: tag,
		Command:  strings.Join(append([]string{argv[0]}, args...), " "),
		Output:   output,
	}
	r.Logger.Warn("post-write check reported problems",
		zap.String("path", path),
		zap.String("command", f.Command),
		zap.String("output", output),
	)
	return f, true
}
