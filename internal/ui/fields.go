package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/thinkwright/hl7v/internal/hl7"
	"github.com/thinkwright/hl7v/internal/reference"
)

// FieldPane lists every field of the selected segment.
type FieldPane struct {
	segment *hl7.Segment
	entry   *reference.Entry
	scroll  int
	width   int
	height  int
	lines   []string // pre-rendered lines
}

func NewFieldPane() FieldPane {
	return FieldPane{}
}

// SetSegment shows seg. entry is the catalog description for its type and
// may be nil for codes the catalog does not know.
func (f *FieldPane) SetSegment(seg *hl7.Segment, entry *reference.Entry) {
	f.segment = seg
	f.entry = entry
	f.scroll = 0
	f.renderLines()
}

func (f *FieldPane) Clear() {
	f.SetSegment(nil, nil)
}

func (f *FieldPane) SetSize(w, h int) {
	f.width = w
	f.height = h
	f.renderLines()
}

func (f *FieldPane) maxScroll() int {
	return max(len(f.lines)-f.height, 0)
}

func (f *FieldPane) ScrollUp(n int) {
	f.scroll = max(f.scroll-n, 0)
}

func (f *FieldPane) ScrollDown(n int) {
	f.scroll = min(f.scroll+n, f.maxScroll())
}

func (f *FieldPane) ScrollToTop() {
	f.scroll = 0
}

// Title is the panel title for the current segment.
func (f *FieldPane) Title() string {
	if f.segment == nil {
		return "FIELDS"
	}
	title := fmt.Sprintf("FIELDS  %s", f.segment.Type)
	if f.entry != nil {
		title += " · " + strings.ToUpper(f.entry.Name)
	}
	if f.maxScroll() > 0 {
		title += fmt.Sprintf("  L%d/%d", f.scroll+1, len(f.lines))
	}
	return title
}

func (f *FieldPane) renderLines() {
	f.lines = nil
	if f.segment == nil {
		return
	}

	contentWidth := max(f.width-16, 20)
	accent := segmentStyle(f.segment.Type)

	if f.entry != nil {
		f.lines = append(f.lines, accent.Render("  ┃ ")+NormalStyle.Render(f.entry.Description))
		f.lines = append(f.lines, accent.Render("  ┃ ")+DimStyle.Render("[o] documentation"))
		f.lines = append(f.lines, "")
	}

	labelW := len(fmt.Sprintf("Field %d", len(f.segment.Fields)-1))
	for i, value := range f.segment.Fields {
		label := fmt.Sprintf("%-*s", labelW, fmt.Sprintf("Field %d", i))
		labelStr := lipgloss.NewStyle().Foreground(ColorCyanDim).Render(label)
		indent := strings.Repeat(" ", labelW+4)

		if value == "" {
			f.lines = append(f.lines, "  "+labelStr+"  "+DimStyle.Render("(empty)"))
			continue
		}

		style := NormalStyle
		if i == 0 {
			style = accent
		}
		for j, part := range wrapText(value, contentWidth) {
			if j == 0 {
				f.lines = append(f.lines, "  "+labelStr+"  "+style.Render(part))
			} else {
				f.lines = append(f.lines, indent+style.Render(part))
			}
		}
	}
}

func (f *FieldPane) View() string {
	if f.segment == nil {
		return "\n" + DimStyle.Render("  Select a segment to view its fields")
	}

	available := max(f.height, 1)
	scrollbar := RenderScrollbar(available, len(f.lines), f.scroll)
	innerW := f.width - 3

	lines := make([]string, 0, available)
	for idx := 0; idx < available; idx++ {
		content := ""
		if i := f.scroll + idx; i < len(f.lines) {
			content = f.lines[i]
		}
		sb := " "
		if idx < len(scrollbar) {
			sb = scrollbar[idx]
		}
		lines = append(lines, padRow(content, innerW, sb))
	}
	return strings.Join(lines, "\n")
}

// wrapText hard-wraps text at width, preferring to break on spaces or
// component separators.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		if paragraph == "" {
			lines = append(lines, "")
			continue
		}

		runes := []rune(paragraph)
		for len(runes) > width {
			cut := width
			for i := width; i > width/2; i-- {
				if runes[i] == ' ' || runes[i] == '^' {
					cut = i
					break
				}
			}
			lines = append(lines, string(runes[:cut]))
			runes = []rune(strings.TrimLeft(string(runes[cut:]), " "))
		}
		if len(runes) > 0 {
			lines = append(lines, string(runes))
		}
	}

	return lines
}
