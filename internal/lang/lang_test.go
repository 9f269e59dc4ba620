package lang

import "testing"

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Tag
	}{
		{"main.py", Python},
		{"pkg/server.go", Go},
		{"web/app.JS", JavaScript},
		{"index.html", HTML},
		{"style.css", CSS},
		{"README.md", Markdown},
		{"data.json", JSON},
		{"notes.txt", PlainText},
		{"Makefile", PlainText},
		{"archive.tar.gz", PlainText},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FromPath(tt.path); got != tt.want {
				t.Errorf("FromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if tag, ok := Parse(" Python "); !ok || tag != Python {
		t.Errorf("Parse(Python) = %q, %v; want python, true", tag, ok)
	}
	if tag, ok := Parse("cobol"); ok || tag != PlainText {
		t.Errorf("Parse(cobol) = %q, %v; want plaintext, false", tag, ok)
	}
}
