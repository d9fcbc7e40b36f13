package ui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

const toastDuration = 3 * time.Second

type toastKind int

const (
	toastSuccess toastKind = iota
	toastError
)

// toast is a transient notification shown in the status bar.
type toast struct {
	text  string
	kind  toastKind
	until time.Time
}

func (t toast) active(now time.Time) bool {
	return t.text != "" && now.Before(t.until)
}

func (t toast) render(bg lipgloss.Style) string {
	if t.kind == toastError {
		return bg.Foreground(ColorRed).Bold(true).Render("✖ " + t.text)
	}
	return bg.Foreground(ColorGreen).Bold(true).Render("✔ " + t.text)
}
