// Package gitdiff applies fenced unified-diff blocks from a response to the
// working tree. Unlike SEARCH/REPLACE merges this mode is not atomic across
// blocks: a failing block is reported and earlier blocks stay applied.
package gitdiff

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Extract returns the content of every fenced code block tagged "diff", verbatim.
func Extract(response string) []string {
	source := []byte(response)
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	var blocks []string
	_ = ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if string(fcb.Language(source)) != "diff" {
			return ast.WalkSkipChildren, nil
		}

		var content bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		if content.Len() > 0 {
			blocks = append(blocks, content.String())
		}
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

var (
	newFileRe = regexp.MustCompile(`^\+\+\+ (?:b/)?(\S+)`)
	oldFileRe = regexp.MustCompile(`^--- (?:a/)?(\S+)`)
)

// TargetFiles lists the repository-relative paths a diff block touches.
// Deleted files are reported by their old path.
func TargetFiles(diff string) []string {
	var (
		files   []string
		seen    = map[string]bool{}
		oldPath string
	)
	add := func(p string) {
		if p != "" && p != "/dev/null" && !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, line := range strings.Split(diff, "\n") {
		if m := oldFileRe.FindStringSubmatch(line); m != nil {
			oldPath = m[1]
			continue
		}
		if m := newFileRe.FindStringSubmatch(line); m != nil {
			if m[1] == "/dev/null" {
				add(oldPath)
			} else {
				add(m[1])
			}
			oldPath = ""
		}
	}
	return files
}
