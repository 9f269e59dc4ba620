package ui

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// UnifiedDiff returns a unified diff between old and new content of name.
func UnifiedDiff(oldContent, newContent, name string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	}
	result, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return result
}

// colorizeDiff colours a unified diff line by line.
func colorizeDiff(diff string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			sb.WriteString(headerColor.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			sb.WriteString(grayColor.Sprint(line))
		case strings.HasPrefix(line, "+"):
			sb.WriteString(okColor.Sprint(line))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(errorColor.Sprint(line))
		default:
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// InlineDiff marks where the file's text (got) differs from the search text
// (want): [-removed-] is only in want, {+added+} is only in got. With colour
// enabled the markers are replaced by red and green text.
func InlineDiff(want, got string, colored bool) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(want, got, false))

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			if colored {
				sb.WriteString(errorColor.Sprint(d.Text))
			} else {
				sb.WriteString("[-" + d.Text + "-]")
			}
		case diffmatchpatch.DiffInsert:
			if colored {
				sb.WriteString(okColor.Sprint(d.Text))
			} else {
				sb.WriteString("{+" + d.Text + "+}")
			}
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}
