package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kvit-s/kvit-merge/internal/merge"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	workdir := t.TempDir()
	mgr, err := NewManager(workdir, filepath.Join(t.TempDir(), "cp"), nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr, workdir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// simulateMerge writes the merged content the way the executor would after Save.
func simulateMerge(t *testing.T, mgr *Manager, changes []merge.FileChange) {
	t.Helper()
	if err := mgr.Save(changes); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	for _, c := range changes {
		writeFile(t, c.Path, c.Content)
	}
}

func TestNewManager_DefaultDir(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(mgr.Dir(), filepath.Join("kvit-merge", "checkpoints")) {
		t.Errorf("Dir() = %q", mgr.Dir())
	}

	other, err := NewManager(t.TempDir(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if other.Dir() == mgr.Dir() {
		t.Error("different workspaces share a checkpoint dir")
	}
}

func TestRestore_UndoesLastMerge(t *testing.T) {
	mgr, workdir := newTestManager(t)
	edited := filepath.Join(workdir, "a.txt")
	created := filepath.Join(workdir, "new.txt")
	writeFile(t, edited, "before\n")

	simulateMerge(t, mgr, []merge.FileChange{
		{Path: edited, Original: "before\n", Content: "after\n"},
		{Path: created, Content: "fresh\n", Created: true},
	})

	manifest, err := mgr.Last()
	if err != nil {
		t.Fatalf("Last() error = %v", err)
	}
	if len(manifest.Files) != 2 || manifest.Files[1].Existed {
		t.Errorf("manifest = %+v", manifest)
	}

	restored, err := mgr.Restore()
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(restored) != 2 {
		t.Errorf("restored = %v", restored)
	}
	if got := readFile(t, edited); got != "before\n" {
		t.Errorf("a.txt = %q, want original", got)
	}
	if _, err := os.Stat(created); !os.IsNotExist(err) {
		t.Error("created file should be removed")
	}

	// one-shot
	if _, err := mgr.Restore(); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("second Restore() error = %v, want ErrNoCheckpoint", err)
	}
}

func TestRestore_RefusesWhenFileChanged(t *testing.T) {
	mgr, workdir := newTestManager(t)
	a := filepath.Join(workdir, "a.txt")
	b := filepath.Join(workdir, "b.txt")
	writeFile(t, a, "a0")
	writeFile(t, b, "b0")

	simulateMerge(t, mgr, []merge.FileChange{
		{Path: a, Original: "a0", Content: "a1"},
		{Path: b, Original: "b0", Content: "b1"},
	})
	writeFile(t, b, "b1 plus a later edit")

	changed, err := mgr.Restore()
	if !errors.Is(err, ErrChanged) {
		t.Fatalf("Restore() error = %v, want ErrChanged", err)
	}
	if len(changed) != 1 || changed[0] != b {
		t.Errorf("changed = %v", changed)
	}
	if got := readFile(t, a); got != "a1" {
		t.Errorf("a.txt = %q, nothing should be restored", got)
	}
	if _, err := mgr.Last(); err != nil {
		t.Errorf("checkpoint should survive a refused restore: %v", err)
	}
}

func TestRestore_SkipsFilesWhoseWriteFailed(t *testing.T) {
	mgr, workdir := newTestManager(t)
	a := filepath.Join(workdir, "a.txt")
	b := filepath.Join(workdir, "b.txt")
	created := filepath.Join(workdir, "new.txt")
	writeFile(t, a, "a0")
	writeFile(t, b, "b0")

	if err := mgr.Save([]merge.FileChange{
		{Path: a, Original: "a0", Content: "a1"},
		{Path: b, Original: "b0", Content: "b1"},
		{Path: created, Content: "fresh", Created: true},
	}); err != nil {
		t.Fatal(err)
	}
	// only a.txt made it to disk
	writeFile(t, a, "a1")

	restored, err := mgr.Restore()
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if len(restored) != 1 || restored[0] != a {
		t.Errorf("restored = %v, want only a.txt", restored)
	}
	if got := readFile(t, a); got != "a0" {
		t.Errorf("a.txt = %q, want original", got)
	}
	if got := readFile(t, b); got != "b0" {
		t.Errorf("b.txt = %q, want untouched", got)
	}
}

func TestSave_ReplacesPreviousCheckpoint(t *testing.T) {
	mgr, workdir := newTestManager(t)
	a := filepath.Join(workdir, "a.txt")
	writeFile(t, a, "v1")

	simulateMerge(t, mgr, []merge.FileChange{{Path: a, Original: "v1", Content: "v2"}})
	simulateMerge(t, mgr, []merge.FileChange{{Path: a, Original: "v2", Content: "v3"}})

	if _, err := mgr.Restore(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, a); got != "v2" {
		t.Errorf("a.txt = %q, want v2 (only the last merge is undone)", got)
	}
}

func TestLast_NoCheckpoint(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, err := mgr.Last(); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("Last() error = %v, want ErrNoCheckpoint", err)
	}
}
