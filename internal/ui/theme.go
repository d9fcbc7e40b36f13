package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Monitor-green terminal palette
var (
	ColorCyan      = lipgloss.Color("#5a9ab5")
	ColorCyanDim   = lipgloss.Color("#3a6678")
	ColorAccent    = lipgloss.Color("#7fcfdf") // focus accent, distinct from base cyan
	ColorGreen     = lipgloss.Color("#5aaa7a")
	ColorGreenDim  = lipgloss.Color("#3a6648")
	ColorRed       = lipgloss.Color("#b56a6a")
	ColorYellow    = lipgloss.Color("#b5a05a")
	ColorYellowDim = lipgloss.Color("#5a5030")
	ColorMagenta   = lipgloss.Color("#a57ab5")
	ColorDim       = lipgloss.Color("#3a5565")
	ColorMuted     = lipgloss.Color("#1a2a35")
	ColorBg        = lipgloss.Color("#000000")
	ColorBarBg     = lipgloss.Color("#0f1e28") // status/header bar background
	ColorBarText   = lipgloss.Color("#d0dde5")
	ColorWhite     = lipgloss.Color("#8899a5")
	ColorSelect    = lipgloss.Color("#c8d84a") // selected items
	ColorSelectBg  = lipgloss.Color("#1a2a1a") // selected row background

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorSelect).
			Bold(true)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(ColorYellowDim)

	SearchHighlightStyle = lipgloss.NewStyle().
				Foreground(ColorBg).
				Background(ColorYellow).
				Bold(true)
)

// segmentColors tints the common segment types; anything else is drawn dim.
var segmentColors = map[string]lipgloss.Color{
	"MSH": ColorCyan,
	"PID": ColorMagenta,
	"OBR": ColorAccent,
	"OBX": ColorGreen,
	"NK1": ColorYellow,
}

// segmentColor returns the colour for a segment type.
func segmentColor(segType string) lipgloss.Color {
	if c, ok := segmentColors[segType]; ok {
		return c
	}
	return ColorWhite
}

// segmentStyle is the bold type badge for a segment.
func segmentStyle(segType string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(segmentColor(segType)).Bold(true)
}

// ─── Custom Border Rendering ──────────────────────────────────────────
// Renders panels with inline title in the top border:
//   ┏━━╸ SEGMENTS ╺━━━━━━━━━━━━━┓
//   ┃                             ┃
//   ┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛

// RenderPanel draws a panel with an inline title in the top border.
func RenderPanel(title string, content string, w, h int, focused bool) string {
	borderColor := ColorCyanDim
	titleColor := ColorCyan
	if focused {
		borderColor = lipgloss.Color("#70cc90")
		titleColor = lipgloss.Color("#a0ffbb")
	}

	bc := lipgloss.NewStyle().Foreground(borderColor)
	tc := lipgloss.NewStyle().Foreground(titleColor).Bold(true)

	innerW := w - 2

	titleText := " " + title + " "
	titleVisLen := utf8.RuneCountInString(titleText)
	fillLen := max(w-5-titleVisLen, 0)

	var topBorder, bottomBorder, side string
	if focused {
		topBorder = bc.Render("╔═╸") + tc.Render(titleText) + bc.Render("╺"+strings.Repeat("═", fillLen)+"╗")
		bottomBorder = bc.Render("╚" + strings.Repeat("═", innerW) + "╝")
		side = bc.Render("║")
	} else {
		topBorder = bc.Render("┏━╸") + tc.Render(titleText) + bc.Render("╺"+strings.Repeat("━", fillLen)+"┓")
		bottomBorder = bc.Render("┗" + strings.Repeat("━", innerW) + "┛")
		side = bc.Render("┃")
	}

	lines := strings.Split(content, "\n")
	for len(lines) < h {
		lines = append(lines, "")
	}
	if len(lines) > h {
		lines = lines[:h]
	}

	rows := make([]string, 0, len(lines)+2)
	rows = append(rows, topBorder)
	for _, line := range lines {
		visible := visibleLen(line)
		if visible > innerW {
			line = truncateToWidth(line, innerW)
			visible = innerW
		}
		pad := ""
		if visible < innerW {
			pad = strings.Repeat(" ", innerW-visible)
		}
		rows = append(rows, side+line+pad+side)
	}
	rows = append(rows, bottomBorder)

	return strings.Join(rows, "\n")
}

// RenderScrollbar returns one scrollbar character per visible row. height is
// the visible rows, totalLines the content length and offset the first
// visible line.
func RenderScrollbar(height, totalLines, offset int) []string {
	track := make([]string, max(height, 0))

	if totalLines <= height || height < 1 {
		for i := range track {
			track[i] = " "
		}
		return track
	}

	thumbSize := max((height*height)/totalLines, 1)
	maxOffset := max(totalLines-height, 1)
	thumbPos := (offset * (height - thumbSize)) / maxOffset

	thumbChar := lipgloss.NewStyle().Foreground(ColorAccent).Render("┃")
	trackChar := lipgloss.NewStyle().Foreground(ColorMuted).Render("╎")

	for i := range track {
		if i >= thumbPos && i < thumbPos+thumbSize {
			track[i] = thumbChar
		} else {
			track[i] = trackChar
		}
	}

	return track
}

// padRow pads a rendered line to width and appends the scrollbar glyph.
func padRow(line string, width int, sb string) string {
	pad := max(width-visibleLen(line), 0)
	return line + strings.Repeat(" ", pad) + sb
}
