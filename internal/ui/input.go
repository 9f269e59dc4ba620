package ui

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EOFMarker ends a pasted response when typed on a line of its own.
const EOFMarker = "eof"

// ErrInputCancelled is returned when the user leaves the paste area with Ctrl+C.
var ErrInputCancelled = errors.New("input cancelled")

// InputModel is a multi-line paste area for a model response.
type InputModel struct {
	textarea      textarea.Model
	submitted     bool
	cancelled     bool
	value         string
	prompt        string
	width         int
	maxHeight     int
	quitting      bool
	viewportStart int // first visible line
}

// adjustHeight adjusts the textarea height to fit content, up to maxHeight
func (m *InputModel) adjustHeight() {
	newHeight := m.textarea.LineCount()
	if newHeight > m.maxHeight {
		newHeight = m.maxHeight
	}
	if newHeight < 1 {
		newHeight = 1
	}
	m.textarea.SetHeight(newHeight)
}

// NewInputModel creates a paste area shown under prompt.
func NewInputModel(prompt string) InputModel {
	ta := textarea.New()
	ta.Prompt = ""
	ta.Placeholder = "(paste the response; Ctrl+D or a line with \"eof\" to finish)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0

	ta.SetHeight(1)
	ta.SetWidth(80)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ta.FocusedStyle.Text = lipgloss.NewStyle()

	ta.Focus()

	return InputModel{
		textarea:  ta,
		prompt:    prompt,
		width:     80,
		maxHeight: 20,
	}
}

// Init initializes the input model
func (m InputModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles input events
func (m InputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width - 10
		if m.width < 40 {
			m.width = 40
		}
		m.textarea.SetWidth(m.width)

		m.maxHeight = msg.Height - 5
		if m.maxHeight < 5 {
			m.maxHeight = 5
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+d":
			return m.submit(m.textarea.Value())

		case "enter":
			// a finished "eof" line ends the paste
			if value, ok := TrimEOF(m.textarea.Value()); ok {
				return m.submit(value)
			}

		case "ctrl+c":
			m.cancelled = true
			m.quitting = true
			return m, tea.Quit

		case "esc":
			m.textarea.SetValue("")
			m.adjustHeight()
			m.viewportStart = 0
			return m, nil
		}
	}

	m.textarea, cmd = m.textarea.Update(msg)
	m.adjustHeight()

	currentLine := m.textarea.Line()
	visibleHeight := m.textarea.Height()
	if currentLine < m.viewportStart {
		m.viewportStart = currentLine
	} else if currentLine >= m.viewportStart+visibleHeight {
		m.viewportStart = currentLine - visibleHeight + 1
	}
	maxStart := m.textarea.LineCount() - visibleHeight
	if maxStart < 0 {
		maxStart = 0
	}
	if m.viewportStart > maxStart {
		m.viewportStart = maxStart
	}
	if m.viewportStart < 0 {
		m.viewportStart = 0
	}

	return m, cmd
}

func (m InputModel) submit(value string) (tea.Model, tea.Cmd) {
	m.value = value
	m.submitted = true
	m.quitting = true
	return m, tea.Quit
}

// View renders the input model
func (m InputModel) View() string {
	if m.quitting {
		return ""
	}

	lineCount := m.textarea.LineCount()
	visibleHeight := m.textarea.Height()

	scrollInfo := ""
	if lineCount > visibleHeight {
		viewportEnd := m.viewportStart + visibleHeight
		if viewportEnd > lineCount {
			viewportEnd = lineCount
		}
		scrollInfo = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(
			" [" + formatScrollInfo(m.viewportStart, lineCount-viewportEnd, lineCount, visibleHeight) + "]")
	}

	return m.prompt + scrollInfo + "\n" + m.textarea.View()
}

// formatScrollInfo creates a compact scroll indicator
func formatScrollInfo(hiddenAbove, hiddenBelow, total, visible int) string {
	switch {
	case hiddenAbove > 0 && hiddenBelow > 0:
		return "↑" + strconv.Itoa(hiddenAbove) + " ↓" + strconv.Itoa(hiddenBelow)
	case hiddenAbove > 0:
		return "↑" + strconv.Itoa(hiddenAbove)
	case hiddenBelow > 0:
		return "↓" + strconv.Itoa(hiddenBelow)
	}
	return strconv.Itoa(visible) + "/" + strconv.Itoa(total)
}

// Value returns the submitted value
func (m InputModel) Value() string {
	return m.value
}

// Submitted returns whether the input was submitted
func (m InputModel) Submitted() bool {
	return m.submitted
}

// Cancelled returns whether the input was cancelled
func (m InputModel) Cancelled() bool {
	return m.cancelled
}

// TrimEOF reports whether text ends with an EOFMarker line and returns the
// text before it.
func TrimEOF(text string) (string, bool) {
	trimmed := strings.TrimRight(text, " \t\r\n")
	idx := strings.LastIndex(trimmed, "\n")
	last := trimmed[idx+1:]
	if strings.TrimSpace(last) != EOFMarker {
		return text, false
	}
	if idx < 0 {
		return "", true
	}
	return trimmed[:idx+1], true
}

// ReadInteractive shows the paste area on stderr and returns what was pasted.
func ReadInteractive(prompt string) (string, error) {
	p := tea.NewProgram(NewInputModel(MakePrompt(prompt)), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	m := final.(InputModel)
	if m.Cancelled() || !m.Submitted() {
		return "", ErrInputCancelled
	}
	return m.Value(), nil
}
