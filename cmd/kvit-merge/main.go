package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kvit-s/kvit-merge/internal/app"
	"github.com/kvit-s/kvit-merge/internal/checkpoint"
	"github.com/kvit-s/kvit-merge/internal/config"
	"github.com/kvit-s/kvit-merge/internal/confirm"
	"github.com/kvit-s/kvit-merge/internal/logger"
	"github.com/kvit-s/kvit-merge/internal/merge"
	"github.com/kvit-s/kvit-merge/internal/source"
	"github.com/kvit-s/kvit-merge/internal/ui"
	"github.com/kvit-s/kvit-merge/internal/workspace"
	"github.com/spf13/pflag"
)

// Version info set by ldflags at build time
var (
	version    = "dev"
	commitHash = "dev"
	commitDate = "unknown"
)

// Exit codes
const (
	exitOK    = 0
	exitFail  = 1 // unmerged blocks, failed writes, abort
	exitUsage = 2 // bad flags or configuration
)

type options struct {
	configPath   string
	root         string
	file         string
	clipboard    bool
	lineInput    bool
	mode         string
	metric       string
	threshold    float64
	confirm      bool
	strictCreate bool
	dryRun       bool
	jsonOutput   bool
	quiet        bool
	noColor      bool
	logPath      string
	undo         bool
	showVersion  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, *pflag.FlagSet, error) {
	var opts options
	fs := pflag.NewFlagSet("kvit-merge", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&opts.configPath, "config", "c", "", "config file (default: .kvit-merge.yaml in the workspace, if present)")
	fs.StringVarP(&opts.root, "root", "C", ".", "workspace root")
	fs.StringVarP(&opts.file, "file", "f", "", "read the response from a file ('-' for stdin)")
	fs.BoolVar(&opts.clipboard, "clipboard", false, "read the response from the clipboard")
	fs.BoolVar(&opts.lineInput, "line-input", false, "type the response line by line, ending with a line 'eof'")
	fs.StringVarP(&opts.mode, "mode", "m", "", "merge mode: search_replace or git_diff")
	fs.StringVar(&opts.metric, "metric", "", "similarity metric: ratio, levenshtein or jaro-winkler")
	fs.Float64VarP(&opts.threshold, "threshold", "t", 0.8, "minimum similarity for a fuzzy match")
	fs.BoolVarP(&opts.confirm, "confirm", "i", false, "confirm each edit before it is applied")
	fs.BoolVar(&opts.strictCreate, "strict-create", false, "never create a file for an edit with a non-empty search")
	fs.BoolVarP(&opts.dryRun, "dry-run", "n", false, "report what would change without writing")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print the report as JSON")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "only print the report and errors")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable coloured output")
	fs.StringVar(&opts.logPath, "log", "", "write a JSON log to this file")
	fs.BoolVarP(&opts.undo, "undo", "u", false, "undo the last merge into the workspace")
	fs.BoolVar(&opts.showVersion, "version", false, "show version information and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: kvit-merge [flags]\n\nMerge the edit blocks of a model response into the workspace.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return &opts, fs, nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *options, fs *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.configPath, opts.root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if fs.Changed("root") && opts.configPath != "" {
		root, err := filepath.Abs(opts.root)
		if err != nil {
			return nil, fmt.Errorf("resolve workspace root: %w", err)
		}
		cfg.Workspace.Root = root
	}
	if fs.Changed("mode") {
		cfg.Merge.Mode = opts.mode
	}
	if fs.Changed("metric") {
		cfg.Merge.Metric = opts.metric
	}
	if fs.Changed("threshold") {
		cfg.Merge.SetThreshold(opts.threshold)
	}
	if fs.Changed("confirm") {
		cfg.Merge.Confirm = opts.confirm
	}
	if fs.Changed("strict-create") {
		cfg.Merge.StrictCreate = opts.strictCreate
	}
	if fs.Changed("log") {
		cfg.Log.Path = opts.logPath
	}
	if opts.noColor {
		off := false
		cfg.UI.Color = &off
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) int {
	opts, fs, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "%s-%s-%s\n", version, commitDate, commitHash)
		return exitOK
	}

	writer := ui.NewWriterTo(stdout, stderr)
	writer.SetQuiet(opts.quiet)
	writer.SetJSONMode(opts.jsonOutput)

	cfg, err := loadConfig(opts, fs)
	if err != nil {
		writer.Error(err.Error())
		return exitUsage
	}
	writer.SetColor(cfg.ColorEnabled())

	log, err := logger.New(cfg.Log.Path, cfg.Log.Development)
	if err != nil {
		writer.Error(fmt.Sprintf("open log: %v", err))
		return exitUsage
	}
	defer log.Close()

	if opts.undo {
		return undo(cfg, writer, log)
	}

	response, err := source.Read(source.Options{
		File:      opts.file,
		Clipboard: opts.clipboard,
		LineMode:  opts.lineInput || os.Getenv("TERM") == "dumb",
		Prompt:    stderr,
		Stdin:     stdin,
	})
	if errors.Is(err, ui.ErrInputCancelled) {
		writer.Info("cancelled")
		return exitFail
	}
	if err != nil {
		writer.Error(err.Error())
		return exitFail
	}

	prompter, closePrompter, err := newPrompter(cfg, writer, stdin)
	if err != nil {
		writer.Error(err.Error())
		return exitUsage
	}
	defer closePrompter()

	lock, err := workspace.AcquireLock(cfg.Workspace.Root)
	if err != nil {
		writer.Error(err.Error())
		return exitFail
	}
	defer lock.Release()

	deps := app.Deps{
		Writer:   writer,
		Logger:   log,
		Prompter: prompter,
		DryRun:   opts.dryRun,
	}
	if cfg.CheckpointEnabled() && !opts.dryRun {
		store, err := checkpoint.NewManager(cfg.Workspace.Root, cfg.Checkpoint.Dir, log)
		if err != nil {
			writer.Error(err.Error())
			return exitFail
		}
		deps.Checkpoint = store
	}

	res, err := app.Run(ctx, cfg, response, deps)
	if err != nil {
		log.Error("merge failed", err)
		if writer.IsJSONMode() {
			fmt.Fprintln(stderr, merge.FormatError(err))
		} else {
			writer.Error(err.Error())
		}
		return exitFail
	}
	if !res.OK() {
		return exitFail
	}
	return exitOK
}

func undo(cfg *config.Config, writer *ui.Writer, log *logger.Logger) int {
	lock, err := workspace.AcquireLock(cfg.Workspace.Root)
	if err != nil {
		writer.Error(err.Error())
		return exitFail
	}
	defer lock.Release()

	store, err := checkpoint.NewManager(cfg.Workspace.Root, cfg.Checkpoint.Dir, log)
	if err != nil {
		writer.Error(err.Error())
		return exitFail
	}
	if err := app.Undo(store, cfg, writer); err != nil {
		log.Error("undo failed", err)
		writer.Error(err.Error())
		return exitFail
	}
	return exitOK
}

// newPrompter picks single-key input when stdin is a terminal. When stdin
// carried the response, answers are read line by line from /dev/tty.
func newPrompter(cfg *config.Config, w *ui.Writer, stdin *os.File) (merge.Prompter, func(), error) {
	noop := func() {}
	if !cfg.Merge.Confirm {
		return merge.AlwaysConfirm, noop, nil
	}
	if source.IsTerminal(stdin) {
		return confirm.NewKeyPrompter(w), noop, nil
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, noop, fmt.Errorf("--confirm needs a terminal: %w", err)
	}
	return confirm.NewLinePrompter(tty, w), func() { tty.Close() }, nil
}
