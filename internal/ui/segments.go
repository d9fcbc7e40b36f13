package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/thinkwright/hl7v/internal/hl7"
)

// SegmentList shows the split segments of the current workspace.
type SegmentList struct {
	segments []hl7.Segment
	cursor   int
	width    int
	height   int
}

func NewSegmentList() SegmentList {
	return SegmentList{}
}

// SetSegments replaces the list and moves the cursor to selected, or to the
// top when selected is out of range.
func (s *SegmentList) SetSegments(segments []hl7.Segment, selected int) {
	s.segments = segments
	s.cursor = 0
	if selected >= 0 && selected < len(segments) {
		s.cursor = selected
	}
}

func (s *SegmentList) SetSize(w, h int) {
	s.width = w
	s.height = h
}

func (s *SegmentList) Up() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *SegmentList) Down() {
	if s.cursor < len(s.segments)-1 {
		s.cursor++
	}
}

func (s *SegmentList) Cursor() int {
	if len(s.segments) == 0 {
		return -1
	}
	return s.cursor
}

func (s *SegmentList) Len() int {
	return len(s.segments)
}

// fieldGlyph is a bar whose height grows with the field count.
func fieldGlyph(count int) string {
	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇'}
	idx := 0
	switch {
	case count > 30:
		idx = 6
	case count > 20:
		idx = 5
	case count > 15:
		idx = 4
	case count > 10:
		idx = 3
	case count > 5:
		idx = 2
	case count > 2:
		idx = 1
	}
	color := ColorDim
	if idx >= 4 {
		color = ColorCyan
	} else if idx >= 2 {
		color = ColorCyanDim
	}
	return lipgloss.NewStyle().Foreground(color).Render(string(bars[idx]))
}

func (s *SegmentList) View() string {
	if len(s.segments) == 0 {
		return "\n" + DimStyle.Render("  No message parsed") + "\n\n" +
			DimStyle.Render("  [e] edit  [p] paste")
	}

	available := max(s.height-1, 1)

	start := 0
	if s.cursor >= available {
		start = s.cursor - available + 1
	}
	end := min(start+available, len(s.segments))

	innerW := s.width - 3
	scrollbar := RenderScrollbar(available, len(s.segments), start)

	lines := make([]string, 0, available)
	for idx := 0; idx < available; idx++ {
		i := start + idx
		sb := " "
		if idx < len(scrollbar) {
			sb = scrollbar[idx]
		}

		if i >= end {
			lines = append(lines, strings.Repeat(" ", innerW)+sb)
			continue
		}

		seg := s.segments[i]
		bar := fieldGlyph(seg.Len())
		segType := seg.Type
		if segType == "" {
			segType = "(none)"
		}
		count := fmt.Sprintf("%d fields", seg.Len())

		if i == s.cursor {
			sel := lipgloss.NewStyle().Background(ColorSelectBg)
			marker := sel.Foreground(ColorSelect).Render("▸")
			typeStr := sel.Foreground(segmentColor(seg.Type)).Bold(true).Render(fmt.Sprintf("%-4s", segType))
			countStr := sel.Foreground(ColorSelect).Render(count)
			line := fmt.Sprintf(" %s %s %s %s", marker, sel.Render(bar), typeStr, countStr)
			pad := max(innerW-visibleLen(line), 0)
			lines = append(lines, line+sel.Render(strings.Repeat(" ", pad))+sb)
			continue
		}

		typeStr := segmentStyle(seg.Type).Render(fmt.Sprintf("%-4s", segType))
		line := fmt.Sprintf("   %s %s %s", bar, typeStr, DimStyle.Render(count))
		lines = append(lines, padRow(line, innerW, sb))
	}

	return strings.Join(lines, "\n")
}
