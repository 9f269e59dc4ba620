package merge

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Suggester proposes existing paths for an edit whose target is missing.
type Suggester interface {
	Suggest(missing string) []string
}

// skipDirs are never walked when collecting suggestion candidates.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// TreeSuggester fuzzy-matches the missing file name against files under Root.
type TreeSuggester struct {
	Root     string
	Limit    int // max suggestions, default 3
	MaxFiles int // stop walking after this many files, default 5000
}

func (s *TreeSuggester) Suggest(missing string) []string {
	limit := s.Limit
	if limit <= 0 {
		limit = 3
	}
	maxFiles := s.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 5000
	}

	var candidates []string
	_ = filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != s.Root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if rel, err := filepath.Rel(s.Root, path); err == nil {
			candidates = append(candidates, filepath.ToSlash(rel))
		}
		if len(candidates) >= maxFiles {
			return filepath.SkipAll
		}
		return nil
	})

	pattern := filepath.Base(filepath.FromSlash(strings.TrimSpace(missing)))
	matches := fuzzy.Find(pattern, candidates)

	out := make([]string, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
