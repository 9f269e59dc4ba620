package ui

import (
	"fmt"
	"strings"
	"time"
)

// MakePrompt creates a colored prompt with white text on gray background
func MakePrompt(text string) string {
	colorStart := "\033[97;100m"
	colorEnd := "\033[0m"
	return colorStart + text + colorEnd
}

// FormatDuration formats a duration in a human-readable way, omitting zero values
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

// Plural formats n with word, adding "s" unless n is one.
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
