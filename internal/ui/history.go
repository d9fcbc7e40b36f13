package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/thinkwright/hl7v/internal/store"
)

// HistoryPane lists previously parsed messages from the store.
type HistoryPane struct {
	items         []store.HistoryEntry
	cursor        int
	width         int
	height        int
	visible       bool
	filtering     bool
	queryInput    textinput.Model
	query         string
	confirmDelete bool
}

func NewHistoryPane() HistoryPane {
	qi := textinput.New()
	qi.Placeholder = "type:ADT segment:OBX age:<1h"
	qi.CharLimit = 256
	qi.Prompt = "find: "
	qi.PromptStyle = lipgloss.NewStyle().Foreground(ColorYellow)
	qi.TextStyle = lipgloss.NewStyle().Foreground(ColorWhite)
	qi.PlaceholderStyle = lipgloss.NewStyle().Foreground(ColorDim)

	return HistoryPane{queryInput: qi}
}

func (h *HistoryPane) SetSize(width, height int) {
	h.width = width
	h.height = height
	h.queryInput.Width = width - 12
}

func (h *HistoryPane) SetItems(items []store.HistoryEntry) {
	h.items = items
	if h.cursor >= len(items) {
		h.cursor = max(len(items)-1, 0)
	}
}

func (h *HistoryPane) Len() int {
	return len(h.items)
}

func (h *HistoryPane) IsVisible() bool {
	return h.visible
}

func (h *HistoryPane) Toggle() {
	h.visible = !h.visible
}

func (h *HistoryPane) Show() {
	h.visible = true
}

func (h *HistoryPane) Up() {
	if h.cursor > 0 {
		h.cursor--
	}
}

func (h *HistoryPane) Down() {
	if h.cursor < len(h.items)-1 {
		h.cursor++
	}
}

func (h *HistoryPane) Selected() *store.HistoryEntry {
	if h.cursor >= 0 && h.cursor < len(h.items) {
		return &h.items[h.cursor]
	}
	return nil
}

// Query is the active history filter; empty means most recent.
func (h *HistoryPane) Query() string {
	return h.query
}

func (h *HistoryPane) IsFiltering() bool {
	return h.filtering
}

func (h *HistoryPane) StartFilter() tea.Cmd {
	h.filtering = true
	h.queryInput.SetValue(h.query)
	h.queryInput.CursorEnd()
	return h.queryInput.Focus()
}

func (h *HistoryPane) CancelFilter() {
	h.filtering = false
	h.queryInput.Blur()
}

// ApplyFilter commits the typed query and returns it.
func (h *HistoryPane) ApplyFilter() string {
	h.filtering = false
	h.queryInput.Blur()
	h.query = strings.TrimSpace(h.queryInput.Value())
	h.cursor = 0
	return h.query
}

func (h *HistoryPane) UpdateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.queryInput, cmd = h.queryInput.Update(msg)
	return cmd
}

func (h *HistoryPane) IsConfirmingDelete() bool {
	return h.confirmDelete
}

func (h *HistoryPane) AskDelete() {
	if h.Selected() != nil {
		h.confirmDelete = true
	}
}

func (h *HistoryPane) CancelDelete() {
	h.confirmDelete = false
}

func (h *HistoryPane) Title() string {
	title := fmt.Sprintf("HISTORY (%d)", len(h.items))
	if h.query != "" {
		title += "  ⚡ " + h.query
	}
	return title
}

func (h *HistoryPane) View() string {
	var lines []string

	if h.filtering {
		lines = append(lines, "  "+h.queryInput.View())
		lines = append(lines, DimStyle.Render("  Enter → apply  Esc → cancel"))
		return strings.Join(lines, "\n")
	}

	if h.confirmDelete {
		label := ""
		if e := h.Selected(); e != nil {
			label = e.Label()
		}
		return lipgloss.NewStyle().Foreground(ColorRed).Render(
			fmt.Sprintf("  Delete \"%s\"?  y/n", label))
	}

	if len(h.items) == 0 {
		if h.query != "" {
			return DimStyle.Render("  No messages match  [f] to change")
		}
		return DimStyle.Render("  No messages yet")
	}

	available := max(h.height-1, 1)

	start := 0
	if h.cursor >= available {
		start = h.cursor - available + 1
	}
	end := min(start+available, len(h.items))

	maxLen := max(h.width-22, 10)
	for i := start; i < end; i++ {
		e := h.items[i]

		label := e.Label()
		if label == "" {
			label = "(unlabelled)"
		}
		if len(label) > maxLen {
			label = label[:maxLen-3] + "..."
		}
		src := sourceGlyph(e.Source)
		age := formatAge(e.CreatedAt, time.Now())

		if i == h.cursor {
			sel := lipgloss.NewStyle().Background(ColorSelectBg)
			marker := sel.Foreground(ColorSelect).Render("▸ ")
			labelStr := sel.Foreground(ColorSelect).Bold(true).Render(label)
			lines = append(lines, fmt.Sprintf("  %s%s %s  %s", marker, sel.Render(src), labelStr, DimStyle.Render(age)))
		} else {
			lines = append(lines, fmt.Sprintf("    %s %s  %s", src, NormalStyle.Render(label), DimStyle.Render(age)))
		}
	}

	return strings.Join(lines, "\n")
}

// sourceGlyph marks where a message came from.
func sourceGlyph(source string) string {
	switch source {
	case store.SourceSerial, store.SourceTCP:
		return lipgloss.NewStyle().Foreground(ColorGreen).Render("◆")
	case store.SourceFile:
		return lipgloss.NewStyle().Foreground(ColorCyan).Render("◇")
	case store.SourceImport:
		return lipgloss.NewStyle().Foreground(ColorYellow).Render("◇")
	case store.SourceAPI:
		return lipgloss.NewStyle().Foreground(ColorAccent).Render("◆")
	default:
		return DimStyle.Render("○")
	}
}

func formatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
