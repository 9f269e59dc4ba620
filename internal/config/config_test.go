package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kvit-s/kvit-merge/internal/lang"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `workspace:
  root: "/tmp/workspace"
  allow_outside: true

merge:
  mode: git_diff
  similarity_threshold: 0.65
  metric: levenshtein
  confirm: true
  strict_create: true

validate:
  enabled: false
  timeout: 5s
  checkers:
    python: ["flake8", "--select=E9", "{file}"]

checkpoint:
  enabled: false
  dir: "/tmp/undo"

log:
  path: "/tmp/merge.log"
  development: true

ui:
  color: false
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workspace.Root != "/tmp/workspace" {
		t.Errorf("Workspace.Root = %q, want %q", cfg.Workspace.Root, "/tmp/workspace")
	}
	if !cfg.Workspace.AllowOutside {
		t.Error("Workspace.AllowOutside should be true")
	}
	if cfg.Merge.Mode != ModeGitDiff {
		t.Errorf("Merge.Mode = %q, want %q", cfg.Merge.Mode, ModeGitDiff)
	}
	if cfg.Merge.Threshold() != 0.65 {
		t.Errorf("Merge.Threshold() = %v, want 0.65", cfg.Merge.Threshold())
	}
	if cfg.Merge.Metric != "levenshtein" {
		t.Errorf("Merge.Metric = %q, want levenshtein", cfg.Merge.Metric)
	}
	if !cfg.Merge.Confirm || !cfg.Merge.StrictCreate {
		t.Error("Merge.Confirm and Merge.StrictCreate should be true")
	}
	if cfg.Validate.IsEnabled() {
		t.Error("Validate.IsEnabled() should be false")
	}
	if cfg.CheckpointEnabled() || cfg.Checkpoint.Dir != "/tmp/undo" {
		t.Errorf("Checkpoint = %+v, want disabled with dir /tmp/undo", cfg.Checkpoint)
	}
	if cfg.Validate.Timeout != 5*time.Second {
		t.Errorf("Validate.Timeout = %v, want 5s", cfg.Validate.Timeout)
	}
	checkers := cfg.Validate.CheckerMap()
	if got := strings.Join(checkers[lang.Python], " "); got != "flake8 --select=E9 {file}" {
		t.Errorf("python checker = %q", got)
	}
	if cfg.Log.Path != "/tmp/merge.log" || !cfg.Log.Development {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.ColorEnabled() {
		t.Error("ColorEnabled() should be false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minimal.yaml")
	if err := os.WriteFile(configPath, []byte("merge:\n  confirm: false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Merge.Threshold() != 0.8 {
		t.Errorf("default threshold = %v, want 0.8", cfg.Merge.Threshold())
	}
	if cfg.Merge.Mode != ModeSearchReplace {
		t.Errorf("default mode = %q, want %q", cfg.Merge.Mode, ModeSearchReplace)
	}
	if cfg.Merge.Fence != "```" {
		t.Errorf("default fence = %q", cfg.Merge.Fence)
	}
	if !cfg.Validate.IsEnabled() || !cfg.ColorEnabled() || !cfg.CheckpointEnabled() {
		t.Error("validation and colour should default to enabled")
	}
	if cfg.Workspace.Root != tmpDir {
		t.Errorf("Workspace.Root = %q, want config dir %q", cfg.Workspace.Root, tmpDir)
	}
	if len(cfg.Workspace.DeniedPaths) != 1 || cfg.Workspace.DeniedPaths[0] != ".git" {
		t.Errorf("DeniedPaths = %v, want [.git]", cfg.Workspace.DeniedPaths)
	}
}

func TestLoadZeroThresholdIsKept(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "zero.yaml")
	if err := os.WriteFile(configPath, []byte("merge:\n  similarity_threshold: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Merge.Threshold() != 0 {
		t.Errorf("Threshold() = %v, want 0", cfg.Merge.Threshold())
	}
}

func TestLoadInvalidPath(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() should fail for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(configPath, []byte("merge: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}

func TestLoadOrDefault(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadOrDefault("", root)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Workspace.Root != root {
		t.Errorf("Workspace.Root = %q, want %q", cfg.Workspace.Root, root)
	}

	if err := os.WriteFile(filepath.Join(root, DefaultFileName), []byte("merge:\n  confirm: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOrDefault("", root)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if !cfg.Merge.Confirm {
		t.Error("workspace config file should have been picked up")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"threshold above one", func(c *Config) { c.Merge.SetThreshold(1.5) }, "similarity_threshold"},
		{"negative threshold", func(c *Config) { c.Merge.SetThreshold(-0.1) }, "similarity_threshold"},
		{"unknown mode", func(c *Config) { c.Merge.Mode = "rebase" }, "merge.mode"},
		{"unknown metric", func(c *Config) { c.Merge.Metric = "cosine" }, "merge.metric"},
		{"unknown checker language", func(c *Config) {
			c.Validate.Checkers = map[string][]string{"cobol": {"cobc"}}
		}, "unknown language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Workspace.Root = "/work/project"

	tests := []struct {
		name         string
		path         string
		allowOutside bool
		want         string
		wantErr      error
	}{
		{"relative", "src/app.py", false, "/work/project/src/app.py", nil},
		{"absolute inside", "/work/project/a.go", false, "/work/project/a.go", nil},
		{"dot segments", "src/../b.go", false, "/work/project/b.go", nil},
		{"escapes root", "../other/c.go", false, "/work/other/c.go", ErrOutsideWorkspace},
		{"prefix sibling is outside", "/work/project2/x", false, "/work/project2/x", ErrOutsideWorkspace},
		{"outside allowed", "/etc/hosts", true, "/etc/hosts", nil},
		{"denied .git", ".git/config", false, "/work/project/.git/config", ErrDeniedPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.Workspace.AllowOutside = tt.allowOutside
			got, err := cfg.ResolvePath(tt.path)
			if got != tt.want {
				t.Errorf("ResolvePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("ResolvePath(%q) error = %v", tt.path, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ResolvePath(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestRelPath(t *testing.T) {
	cfg := &Config{}
	cfg.Workspace.Root = "/work/project"
	if got := cfg.RelPath("/work/project/src/a.go"); got != "src/a.go" {
		t.Errorf("RelPath() = %q, want src/a.go", got)
	}
	if got := cfg.RelPath("/etc/hosts"); got != "/etc/hosts" {
		t.Errorf("RelPath() = %q, want /etc/hosts", got)
	}
}
