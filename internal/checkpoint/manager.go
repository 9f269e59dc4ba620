// Package checkpoint keeps the pre-merge content of written files so the last
// merge into a workspace can be undone.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/kvit-s/kvit-merge/internal/logger"
	"github.com/kvit-s/kvit-merge/internal/merge"
	"go.uber.org/zap"
)

const manifestName = "manifest.json"

var (
	// ErrNoCheckpoint is returned by Restore when there is nothing to undo.
	ErrNoCheckpoint = errors.New("no merge to undo")

	// ErrChanged is returned by Restore when a file was edited after the merge.
	ErrChanged = errors.New("files changed since the merge")
)

// File records one file written by a merge.
type File struct {
	Path        string `json:"path"`
	Existed     bool   `json:"existed"`
	Backup       string `json:"backup,omitempty"` // name inside the checkpoint dir
	OriginalHash string `json:"original_hash,omitempty"`
	WrittenHash  string `json:"written_hash"`
}

// Manifest describes the last merge of a workspace.
type Manifest struct {
	Root    string    `json:"root"`
	Created time.Time `json:"created"`
	Files   []File    `json:"files"`
}

// Manager stores one checkpoint per workspace, replaced by every merge.
type Manager struct {
	mu     sync.Mutex
	root   string
	dir    string
	fs     merge.FileSystem
	logger *logger.Logger
}

// NewManager creates a manager for root. An empty dir selects a directory
// under the user cache dir keyed by the workspace path.
func NewManager(root, dir string, log *logger.Logger) (*Manager, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if dir == "" {
		dir, err = defaultDir(absRoot)
		if err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{root: absRoot, dir: dir, fs: merge.OSFileSystem{}, logger: log}, nil
}

func defaultDir(root string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(base, "kvit-merge", "checkpoints", hex.EncodeToString(sum[:8])), nil
}

// Dir returns where the checkpoint is stored.
func (m *Manager) Dir() string {
	return m.dir
}

// Save replaces the checkpoint with the original content of changes.
func (m *Manager) Save(changes []merge.FileChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	manifest := Manifest{Root: m.root, Created: time.Now()}
	for i, c := range changes {
		f := File{Path: c.Path, Existed: !c.Created, WrittenHash: merge.ContentHash(c.Content)}
		if f.Existed {
			f.Backup = strconv.Itoa(i) + ".orig"
			f.OriginalHash = merge.ContentHash(c.Original)
			if err := os.WriteFile(filepath.Join(m.dir, f.Backup), []byte(c.Original), 0600); err != nil {
				return fmt.Errorf("save %s: %w", c.Path, err)
			}
		}
		manifest.Files = append(manifest.Files, f)
	}

	// manifest last: a checkpoint without one is ignored
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, manifestName), data, 0600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	m.logger.Info("checkpoint saved", zap.String("dir", m.dir), zap.Int("files", len(changes)))
	return nil
}

// Last returns the manifest of the last merge.
func (m *Manager) Last() (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, manifestName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &manifest, nil
}

// Restore undoes the last merge: edited files get their old content back and
// created files are removed. Files the merge failed to write are left alone.
// Nothing is restored when any file changed after the merge. The checkpoint
// is consumed on success.
func (m *Manager) Restore() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	manifest, err := m.Last()
	if err != nil {
		return nil, err
	}

	var changed []string
	pending := make([]File, 0, len(manifest.Files))
	for _, f := range manifest.Files {
		current, err := m.fs.ReadFile(f.Path)
		switch {
		case err == nil && merge.ContentHash(current) == f.WrittenHash:
			pending = append(pending, f)
		case untouched(f, current, err):
			m.logger.Debug("checkpoint file was never written", zap.String("path", f.Path))
		default:
			changed = append(changed, f.Path)
		}
	}
	if len(changed) > 0 {
		return changed, fmt.Errorf("%w: %v", ErrChanged, changed)
	}

	var restored []string
	for _, f := range pending {
		if !f.Existed {
			if err := os.Remove(f.Path); err != nil {
				return restored, fmt.Errorf("remove %s: %w", f.Path, err)
			}
			restored = append(restored, f.Path)
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, f.Backup))
		if err != nil {
			return restored, fmt.Errorf("read backup of %s: %w", f.Path, err)
		}
		if err := m.fs.WriteFile(f.Path, string(data)); err != nil {
			return restored, fmt.Errorf("restore %s: %w", f.Path, err)
		}
		restored = append(restored, f.Path)
	}

	m.logger.Info("checkpoint restored", zap.Int("files", len(restored)))
	return restored, os.RemoveAll(m.dir)
}

// untouched reports whether f is still in its pre-merge state, as happens
// when its write failed.
func untouched(f File, current string, readErr error) bool {
	if !f.Existed {
		return errors.Is(readErr, merge.ErrNotExist)
	}
	return readErr == nil && f.OriginalHash != "" && merge.ContentHash(current) == f.OriginalHash
}
