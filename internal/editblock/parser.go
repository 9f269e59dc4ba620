// Package editblock extracts SEARCH/REPLACE edit blocks from fenced text.
package editblock

import (
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultFence  = "```"
	FileMarker    = "##File:"
	SearchMarker  = "<<<<<<< SEARCH"
	DividerMarker = "======="
	ReplaceMarker = ">>>>>>> REPLACE"
)

// Block is one proposed change: replace Search with Replace in FilePath.
// An empty Search means append to the end of the file.
type Block struct {
	FilePath string `json:"file_path"`
	Search   string `json:"search"`
	Replace  string `json:"replace"`
}

// Issue describes a fenced block that was dropped while parsing.
type Issue struct {
	Line   int    `json:"line"` // 1-based line of the opening fence
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Parser turns response text into edit blocks.
type Parser struct {
	Fence  string
	Logger *zap.Logger
}

// NewParser creates a parser using the given fence. An empty fence means "```".
func NewParser(fence string, logger *zap.Logger) *Parser {
	if fence == "" {
		fence = DefaultFence
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{Fence: fence, Logger: logger}
}

// Parse is a shortcut for NewParser("", nil).Parse(text).
func Parse(text string) []Block {
	return NewParser("", nil).Parse(text)
}

// Parse returns the edit blocks of text in the order they close.
func (p *Parser) Parse(text string) []Block {
	blocks, _ := p.ParseWithIssues(text)
	return blocks
}

// pairState tracks which section of a SEARCH/REPLACE pair is being read.
type pairState int

const (
	outsidePair pairState = iota
	inHead
	inUpdate
)

type openBlock struct {
	line   int
	path   string
	state  pairState
	head   []string
	update []string
	pairs  []Block
}

// ParseWithIssues is Parse that also reports dropped blocks.
func (p *Parser) ParseWithIssues(text string) ([]Block, []Issue) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var (
		blocks []Block
		issues []Issue
		cur    *openBlock
		depth  int
	)

	drop := func(b *openBlock, reason string) {
		issues = append(issues, Issue{Line: b.line, Path: b.path, Reason: reason})
		p.Logger.Warn("dropped malformed edit block",
			zap.Int("line", b.line),
			zap.String("path", b.path),
			zap.String("reason", reason),
		)
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if p.isOpening(lines, i) {
			if depth > 0 {
				drop(cur, "unterminated block")
			}
			depth = 1
			cur = &openBlock{
				line: i + 1,
				path: strings.TrimSpace(strings.SplitN(lines[i+1], ":", 2)[1]),
			}
			i++ // the ##File: line belongs to the opening
			continue
		}
		if depth == 0 {
			continue
		}

		if p.isClosing(lines, i) {
			if cur.state != outsidePair || len(cur.pairs) == 0 {
				drop(cur, "missing SEARCH/REPLACE pair")
			} else {
				blocks = append(blocks, cur.pairs...)
			}
			depth = 0
			cur = nil
			continue
		}

		switch marker(line) {
		case SearchMarker:
			cur.state = inHead
			cur.head, cur.update = nil, nil
			continue
		case DividerMarker:
			if cur.state == inHead {
				cur.state = inUpdate
				continue
			}
		case ReplaceMarker:
			if cur.state == inUpdate {
				cur.pairs = append(cur.pairs, Block{
					FilePath: cur.path,
					Search:   strings.Join(cur.head, "\n"),
					Replace:  strings.Join(cur.update, "\n"),
				})
				cur.state = outsidePair
				continue
			}
		}

		switch cur.state {
		case inHead:
			cur.head = append(cur.head, line)
		case inUpdate:
			cur.update = append(cur.update, line)
		}
	}

	if depth > 0 {
		drop(cur, "unterminated block")
	}
	return blocks, issues
}

// isOpening reports whether lines[i] is a fence immediately followed by a ##File: line.
func (p *Parser) isOpening(lines []string, i int) bool {
	return strings.HasPrefix(lines[i], p.Fence) &&
		i+1 < len(lines) &&
		strings.HasPrefix(strings.TrimSpace(lines[i+1]), FileMarker)
}

// isClosing reports whether lines[i] is a fence immediately preceded by the REPLACE marker.
func (p *Parser) isClosing(lines []string, i int) bool {
	return strings.HasPrefix(lines[i], p.Fence) &&
		i > 0 &&
		marker(lines[i-1]) == ReplaceMarker
}

// marker normalises a line for marker comparison. Trailing whitespace is ignored.
func marker(line string) string {
	return strings.TrimRight(line, " \t\r")
}
