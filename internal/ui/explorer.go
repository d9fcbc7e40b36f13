package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/thinkwright/hl7v/internal/reference"
)

// cardHeight is the rows one catalog card occupies, including its spacer.
const cardHeight = 4

// Explorer browses the segment reference catalog.
type Explorer struct {
	catalog   *reference.Catalog
	input     textinput.Model
	searching bool
	entries   []reference.Entry
	cursor    int
	width     int
	height    int
}

func NewExplorer(catalog *reference.Catalog) Explorer {
	ti := textinput.New()
	ti.Placeholder = "code, name or description... (Enter: done)"
	ti.CharLimit = 64
	ti.Prompt = "/ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(ColorCyan)
	ti.TextStyle = lipgloss.NewStyle().Foreground(ColorWhite)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(ColorDim)

	e := Explorer{catalog: catalog, input: ti}
	e.refilter()
	return e
}

func (e *Explorer) SetSize(w, h int) {
	e.width = w
	e.height = h
	e.input.Width = w - 20
}

func (e *Explorer) StartSearch() tea.Cmd {
	e.searching = true
	return e.input.Focus()
}

func (e *Explorer) StopSearch() {
	e.searching = false
	e.input.Blur()
}

// ClearSearch drops the term and shows the whole catalog again.
func (e *Explorer) ClearSearch() {
	e.StopSearch()
	e.input.SetValue("")
	e.refilter()
}

func (e *Explorer) IsSearching() bool {
	return e.searching
}

func (e *Explorer) Term() string {
	return e.input.Value()
}

func (e *Explorer) SetTerm(term string) {
	e.input.SetValue(term)
	e.refilter()
}

// UpdateInput forwards a key to the search input and refilters on change.
func (e *Explorer) UpdateInput(msg tea.Msg) tea.Cmd {
	prev := e.input.Value()
	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	if e.input.Value() != prev {
		e.refilter()
	}
	return cmd
}

func (e *Explorer) refilter() {
	e.entries = nil
	if e.catalog != nil {
		e.entries = e.catalog.Filter(e.input.Value())
	}
	e.cursor = 0
}

func (e *Explorer) Results() []reference.Entry {
	return e.entries
}

func (e *Explorer) Up() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *Explorer) Down() {
	if e.cursor < len(e.entries)-1 {
		e.cursor++
	}
}

func (e *Explorer) Selected() *reference.Entry {
	if len(e.entries) == 0 {
		return nil
	}
	return &e.entries[e.cursor]
}

func (e *Explorer) Title() string {
	total := 0
	if e.catalog != nil {
		total = e.catalog.Len()
	}
	title := fmt.Sprintf("SEGMENT EXPLORER (%d/%d)", len(e.entries), total)
	if t := strings.TrimSpace(e.input.Value()); t != "" && !e.searching {
		title += fmt.Sprintf("  FILTER %q", t)
	}
	return title
}

func (e *Explorer) View() string {
	var lines []string

	if e.searching {
		lines = append(lines, " "+e.input.View())
	} else {
		lines = append(lines, " "+DimStyle.Render("[/] search  [Enter/o] documentation  [Esc] clear"))
	}
	lines = append(lines, " "+DimStyle.Render(strings.Repeat("─", max(e.width-6, 0))))

	innerW := e.width - 3
	if len(e.entries) == 0 {
		lines = append(lines, "")
		lines = append(lines, "  "+NormalStyle.Render("No segments match your search"))
		lines = append(lines, "  "+DimStyle.Render("Try another segment code or term"))
		return strings.Join(lines, "\n")
	}

	available := max(e.height-len(lines), cardHeight)
	perPage := max(available/cardHeight, 1)

	start := 0
	if e.cursor >= perPage {
		start = e.cursor - perPage + 1
	}
	end := min(start+perPage, len(e.entries))

	var body []string
	for i := start; i < end; i++ {
		body = append(body, e.renderCard(e.entries[i], i == e.cursor, innerW)...)
	}
	for len(body) < available {
		body = append(body, "")
	}

	scrollbar := RenderScrollbar(available, len(e.entries)*cardHeight, start*cardHeight)
	for idx, line := range body[:available] {
		sb := " "
		if idx < len(scrollbar) {
			sb = scrollbar[idx]
		}
		lines = append(lines, padRow(line, innerW, sb))
	}

	return strings.Join(lines, "\n")
}

func (e *Explorer) renderCard(entry reference.Entry, selected bool, width int) []string {
	textW := max(width-6, 10)
	desc := truncatePlain(entry.Description, textW)
	usage := truncatePlain(entry.Usage, textW)

	badge := segmentStyle(entry.Code).Render(entry.Code)
	if selected {
		sel := lipgloss.NewStyle().Background(ColorSelectBg)
		head := fmt.Sprintf(" %s %s  %s", sel.Foreground(ColorSelect).Render("▸"),
			sel.Foreground(segmentColor(entry.Code)).Bold(true).Render(entry.Code),
			sel.Foreground(ColorSelect).Bold(true).Render(entry.Name))
		pad := max(width-visibleLen(head), 0)
		return []string{
			head + sel.Render(strings.Repeat(" ", pad)),
			"     " + NormalStyle.Render(desc),
			"     " + DimStyle.Render(usage),
			"",
		}
	}
	return []string{
		fmt.Sprintf("   %s  %s", badge, NormalStyle.Bold(true).Render(entry.Name)),
		"     " + NormalStyle.Render(desc),
		"     " + DimStyle.Render(usage),
		"",
	}
}

// truncatePlain shortens unstyled text to width runes with an ellipsis.
func truncatePlain(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
