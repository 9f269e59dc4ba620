package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kvit-s/kvit-merge/internal/lang"
	"github.com/kvit-s/kvit-merge/internal/similarity"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the workspace root when no --config is given.
const DefaultFileName = ".kvit-merge.yaml"

// Merge modes.
const (
	ModeSearchReplace = "search_replace"
	ModeGitDiff       = "git_diff"
)

type Config struct {
	Workspace struct {
		Root         string   `yaml:"root"`
		AllowOutside bool     `yaml:"allow_outside"` // edits may target paths outside root
		DeniedPaths  []string `yaml:"denied_paths"`  // never written, relative to root or ~/
	} `yaml:"workspace"`

	Merge MergeConfig `yaml:"merge"`

	Validate ValidateConfig `yaml:"validate"`

	Checkpoint struct {
		Enabled *bool  `yaml:"enabled"` // nil = default true
		Dir     string `yaml:"dir"`     // default: user cache dir
	} `yaml:"checkpoint"`

	Log struct {
		Path        string `yaml:"path"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`

	UI struct {
		Color *bool `yaml:"color"` // nil = default true
	} `yaml:"ui"`
}

// MergeConfig configures how edits are located and applied.
type MergeConfig struct {
	Mode                string   `yaml:"mode"`                 // "search_replace" (default) or "git_diff"
	SimilarityThreshold *float64 `yaml:"similarity_threshold"` // nil = 0.8; 0 is a valid threshold
	Metric              string   `yaml:"metric"`               // "ratio", "levenshtein", "jaro-winkler"
	Confirm             bool     `yaml:"confirm"`
	StrictCreate        bool     `yaml:"strict_create"` // non-empty search against a missing file is unmerged
	Fence               string   `yaml:"fence"`
}

// ValidateConfig configures advisory post-write checks.
type ValidateConfig struct {
	Enabled  *bool               `yaml:"enabled"` // nil = default true
	Timeout  time.Duration       `yaml:"timeout"`
	Checkers map[string][]string `yaml:"checkers"` // language tag -> argv with {file}
}

// Threshold returns the similarity threshold, defaulting to 0.8.
func (m *MergeConfig) Threshold() float64 {
	if m.SimilarityThreshold == nil {
		return 0.8
	}
	return *m.SimilarityThreshold
}

// SetThreshold overrides the similarity threshold.
func (m *MergeConfig) SetThreshold(v float64) {
	m.SimilarityThreshold = &v
}

// IsEnabled reports whether post-write checks run. Defaults to true.
func (v *ValidateConfig) IsEnabled() bool {
	return v.Enabled == nil || *v.Enabled
}

// CheckerMap converts the configured checkers to language tags, ignoring unknown languages.
func (v *ValidateConfig) CheckerMap() map[lang.Tag][]string {
	if len(v.Checkers) == 0 {
		return nil
	}
	out := make(map[lang.Tag][]string, len(v.Checkers))
	for name, argv := range v.Checkers {
		if tag, ok := lang.Parse(name); ok {
			out[tag] = argv
		}
	}
	return out
}

// CheckpointEnabled reports whether merges keep an undo checkpoint. Defaults to true.
func (c *Config) CheckpointEnabled() bool {
	return c.Checkpoint.Enabled == nil || *c.Checkpoint.Enabled
}

// ColorEnabled reports whether coloured output is enabled. Defaults to true.
func (c *Config) ColorEnabled() bool {
	return c.UI.Color == nil || *c.UI.Color
}

// Default returns a configuration rooted at the current directory.
func Default() (*Config, error) {
	var cfg Config
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// A missing or relative root is relative to the config file, not the caller's cwd
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = filepath.Dir(path)
	} else if !filepath.IsAbs(cfg.Workspace.Root) {
		cfg.Workspace.Root = filepath.Join(filepath.Dir(path), cfg.Workspace.Root)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when given, otherwise DefaultFileName in root if it
// exists, otherwise Default().
func LoadOrDefault(path, root string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	candidate := filepath.Join(root, DefaultFileName)
	if _, err := os.Stat(candidate); err == nil {
		return Load(candidate)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
		}
		cfg.Workspace.Root = abs
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Workspace.Root == "" {
		c.Workspace.Root = "."
	}
	absRoot, err := filepath.Abs(c.Workspace.Root)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	c.Workspace.Root = absRoot

	if c.Workspace.DeniedPaths == nil {
		c.Workspace.DeniedPaths = []string{".git"}
	}

	if c.Merge.Mode == "" {
		c.Merge.Mode = ModeSearchReplace
	}
	if c.Merge.Metric == "" {
		c.Merge.Metric = similarity.MetricRatio
	}
	if c.Merge.Fence == "" {
		c.Merge.Fence = "```"
	}
	if c.Validate.Timeout == 0 {
		c.Validate.Timeout = 30 * time.Second
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string

	t := c.Merge.Threshold()
	if t < 0 || t > 1 {
		problems = append(problems, fmt.Sprintf("merge.similarity_threshold must be in [0,1], got %v", t))
	}
	switch c.Merge.Mode {
	case ModeSearchReplace, ModeGitDiff:
	default:
		problems = append(problems, fmt.Sprintf("merge.mode must be %q or %q, got %q", ModeSearchReplace, ModeGitDiff, c.Merge.Mode))
	}
	if _, err := similarity.MetricByName(c.Merge.Metric); err != nil {
		problems = append(problems, "merge.metric: "+err.Error())
	}
	for name, argv := range c.Validate.Checkers {
		if _, ok := lang.Parse(name); !ok {
			problems = append(problems, fmt.Sprintf("validate.checkers: unknown language %q", name))
		}
		if len(argv) == 0 {
			problems = append(problems, fmt.Sprintf("validate.checkers.%s: empty command", name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
