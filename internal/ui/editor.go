package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const editorPlaceholder = `MSH|^~\&|SENDING_APP|SENDING_FAC|RECEIVING_APP|RECEIVING_FAC|20230101120000||ADT^A01|MSG00001|P|2.5
PID|1||12345^^^HOSPITAL^MR||DOE^JOHN^A||19800101|M|||123 MAIN ST^^ANYTOWN^CA^12345`

// Editor holds the raw message text. Segments are entered one per line.
type Editor struct {
	area    textarea.Model
	editing bool
	width   int
	height  int
}

func NewEditor() Editor {
	ta := textarea.New()
	ta.Placeholder = editorPlaceholder
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Prompt = " "
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(ColorSelectBg)
	ta.FocusedStyle.LineNumber = lipgloss.NewStyle().Foreground(ColorDim)
	ta.FocusedStyle.CursorLineNumber = lipgloss.NewStyle().Foreground(ColorSelect)
	ta.FocusedStyle.Text = lipgloss.NewStyle().Foreground(ColorWhite)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(ColorDim)
	ta.BlurredStyle.LineNumber = lipgloss.NewStyle().Foreground(ColorMuted)
	ta.BlurredStyle.Text = lipgloss.NewStyle().Foreground(ColorWhite)
	ta.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(ColorDim)
	ta.Blur()
	return Editor{area: ta}
}

func (e *Editor) SetSize(w, h int) {
	e.width = w
	e.height = h
	e.area.SetWidth(max(w-3, 10))
	e.area.SetHeight(max(h, 1))
}

// Focus starts editing.
func (e *Editor) Focus() tea.Cmd {
	e.editing = true
	return e.area.Focus()
}

func (e *Editor) Blur() {
	e.editing = false
	e.area.Blur()
}

func (e *Editor) IsEditing() bool {
	return e.editing
}

func (e *Editor) Value() string {
	return e.area.Value()
}

// SetValue replaces the text. CR segment terminators become newlines so a
// captured message displays one segment per row.
func (e *Editor) SetValue(s string) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	e.area.SetValue(s)
}

func (e *Editor) Reset() {
	e.area.Reset()
}

// Update forwards a message to the textarea.
func (e *Editor) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	e.area, cmd = e.area.Update(msg)
	return cmd
}

func (e *Editor) View() string {
	return e.area.View()
}
