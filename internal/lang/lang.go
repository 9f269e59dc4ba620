// Package lang maps file extensions to a closed set of language tags.
package lang

import (
	"path/filepath"
	"strings"
)

// Tag identifies a source language. Used for display and post-write checks only.
type Tag string

const (
	Python     Tag = "python"
	Go         Tag = "go"
	JavaScript Tag = "javascript"
	TypeScript Tag = "typescript"
	HTML       Tag = "html"
	CSS        Tag = "css"
	Markdown   Tag = "markdown"
	JSON       Tag = "json"
	YAML       Tag = "yaml"
	Shell      Tag = "shell"
	PlainText  Tag = "plaintext"
)

var byExtension = map[string]Tag{
	".py":   Python,
	".pyi":  Python,
	".go":   Go,
	".js":   JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".jsx":  JavaScript,
	".ts":   TypeScript,
	".tsx":  TypeScript,
	".html": HTML,
	".htm":  HTML,
	".css":  CSS,
	".md":   Markdown,
	".json": JSON,
	".yaml": YAML,
	".yml":  YAML,
	".sh":   Shell,
	".bash": Shell,
	".txt":  PlainText,
}

// FromPath returns the tag for path's extension, PlainText when unknown.
func FromPath(path string) Tag {
	if tag, ok := byExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return tag
	}
	return PlainText
}

// Parse converts a configuration key into a Tag.
func Parse(s string) (Tag, bool) {
	tag := Tag(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All() {
		if tag == known {
			return tag, true
		}
	}
	return PlainText, false
}

// All lists every known tag.
func All() []Tag {
	return []Tag{Python, Go, JavaScript, TypeScript, HTML, CSS, Markdown, JSON, YAML, Shell, PlainText}
}
