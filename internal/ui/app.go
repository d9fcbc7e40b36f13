package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/thinkwright/hl7v/internal/capture"
	"github.com/thinkwright/hl7v/internal/config"
	"github.com/thinkwright/hl7v/internal/hl7"
	"github.com/thinkwright/hl7v/internal/launcher"
	"github.com/thinkwright/hl7v/internal/reference"
	"github.com/thinkwright/hl7v/internal/store"
	"github.com/thinkwright/hl7v/internal/watcher"
)

type tab int

const (
	tabParser tab = iota
	tabExplorer
)

func (t tab) String() string {
	switch t {
	case tabParser:
		return "PARSER"
	case tabExplorer:
		return "EXPLORER"
	}
	return ""
}

type pane int

const (
	paneSegments pane = iota
	paneFields
	paneHistory
	paneEditor
)

type tickMsg time.Time

// captureMsg carries one message from a serial or TCP listener.
type captureMsg capture.Capture

type fileLoadedMsg struct {
	path    string
	content string
	err     error
}

type pasteMsg struct {
	text string
	err  error
}

type openedMsg struct {
	code string
	err  error
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForCapture blocks until the next captured message. A closed channel
// ends the loop.
func waitForCapture(ch <-chan capture.Capture) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return captureMsg(c)
	}
}

func loadFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		return fileLoadedMsg{path: path, content: string(data), err: err}
	}
}

// Options wires the model to its data sources. Zero values are valid: a nil
// Store disables history and a nil Captures channel disables live capture.
type Options struct {
	Store        *store.Store
	Catalog      *reference.Catalog
	Config       config.Config
	File         string
	Captures     <-chan capture.Capture
	CaptureLabel string // e.g. "TCP :2575", shown in the status bar
	Log          *slog.Logger

	OpenURL       func(url string) error
	ReadClipboard func() (string, error)
}

type Model struct {
	workspace hl7.Workspace
	editor    Editor
	segments  SegmentList
	fields    FieldPane
	explorer  Explorer
	history   HistoryPane

	store        *store.Store
	catalog      *reference.Catalog
	cfg          config.Config
	file         string
	captures     <-chan capture.Capture
	captureLabel string
	log          *slog.Logger
	openURL      func(string) error
	readClip     func() (string, error)

	tab         tab
	focus       pane
	width       int
	height      int
	ready       bool
	frame       int
	toast       toast
	confirmQuit bool
	now         func() time.Time
}

func NewModel(opts Options) Model {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	openURL := opts.OpenURL
	if openURL == nil {
		openURL = launcher.Open
	}
	readClip := opts.ReadClipboard
	if readClip == nil {
		readClip = clipboard.ReadAll
	}

	m := Model{
		workspace:    hl7.ClearWorkspace(),
		editor:       NewEditor(),
		segments:     NewSegmentList(),
		fields:       NewFieldPane(),
		explorer:     NewExplorer(opts.Catalog),
		history:      NewHistoryPane(),
		store:        opts.Store,
		catalog:      opts.Catalog,
		cfg:          opts.Config,
		file:         opts.File,
		captures:     opts.Captures,
		captureLabel: opts.CaptureLabel,
		log:          log,
		openURL:      openURL,
		readClip:     readClip,
		focus:        paneSegments,
		now:          time.Now,
	}
	if opts.Config.DefaultTab == "explorer" {
		m.tab = tabExplorer
	}
	if opts.Config.HistoryVisible && opts.Store != nil {
		m.history.Show()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.file != "" {
		cmds = append(cmds, loadFileCmd(m.file), watcher.WatchFile(m.file))
	}
	if m.captures != nil {
		cmds = append(cmds, waitForCapture(m.captures))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		firstReady := !m.ready
		m.ready = true
		m.layoutPanes()
		if firstReady {
			m.refreshHistory()
		}
		return m, nil

	case tickMsg:
		m.frame++
		if m.toast.text != "" && !m.toast.active(time.Time(msg)) {
			m.toast = toast{}
		}
		return m, tickCmd()

	case fileLoadedMsg:
		if msg.err != nil {
			m.notifyError(fmt.Sprintf("read %s: %v", msg.path, msg.err))
			return m, nil
		}
		m.parse(msg.content, store.SourceFile)
		return m, nil

	case watcher.FileChangedMsg:
		return m, tea.Batch(loadFileCmd(msg.Path), watcher.WatchFile(m.file))

	case captureMsg:
		if m.parse(msg.Message, msg.Source) {
			m.tab = tabParser
			label := "message"
			if info, ok := hl7.MessageInfo(m.workspace.Segments); ok && info.MessageType != "" {
				label = info.MessageType
			}
			m.notify(fmt.Sprintf("Received %s via %s", label, msg.Source))
		}
		return m, waitForCapture(m.captures)

	case pasteMsg:
		if msg.err != nil {
			m.notifyError("clipboard: " + msg.err.Error())
			return m, nil
		}
		m.parse(msg.text, store.SourcePaste)
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.notifyError(fmt.Sprintf("open %s documentation: %v", msg.code, msg.err))
		}
		return m, nil

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress || m.confirmQuit {
			return m, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.moveUp(1)
		case tea.MouseButtonWheelDown:
			m.moveDown(1)
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirmQuit {
			return m.handleConfirmQuit(msg)
		}
		if m.editor.IsEditing() {
			return m.handleEditorKey(msg)
		}
		if m.explorer.IsSearching() {
			return m.handleExplorerSearchKey(msg)
		}
		if m.history.IsFiltering() {
			return m.handleHistoryFilterKey(msg)
		}
		if m.history.IsConfirmingDelete() {
			return m.handleHistoryDeleteConfirm(msg)
		}
		return m.handleKey(msg)
	}

	// Cursor blink and similar messages for whichever input is active.
	var cmd tea.Cmd
	switch {
	case m.editor.IsEditing():
		cmd = m.editor.Update(msg)
	case m.explorer.IsSearching():
		cmd = m.explorer.UpdateInput(msg)
	case m.history.IsFiltering():
		cmd = m.history.UpdateInput(msg)
	}
	return m, cmd
}

func (m Model) handleConfirmQuit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "q", "enter", "ctrl+c":
		return m, tea.Quit
	default:
		m.confirmQuit = false
	}
	return m, nil
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.editor.Blur()
		m.focus = paneSegments
		return m, nil
	case "ctrl+s":
		if m.parse(m.editor.Value(), store.SourcePaste) {
			m.editor.Blur()
			m.focus = paneSegments
		}
		return m, nil
	}
	cmd := m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleExplorerSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.explorer.ClearSearch()
		return m, nil
	case "enter":
		m.explorer.StopSearch()
		if strings.TrimSpace(m.explorer.Term()) != "" {
			m.notify(fmt.Sprintf("%d segments found", len(m.explorer.Results())))
		}
		return m, nil
	case "up":
		m.explorer.Up()
		return m, nil
	case "down":
		m.explorer.Down()
		return m, nil
	}
	cmd := m.explorer.UpdateInput(msg)
	return m, cmd
}

func (m Model) handleHistoryFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.history.CancelFilter()
		return m, nil
	case "enter":
		m.history.ApplyFilter()
		m.refreshHistory()
		return m, nil
	}
	cmd := m.history.UpdateInput(msg)
	return m, cmd
}

func (m Model) handleHistoryDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if e := m.history.Selected(); e != nil && m.store != nil {
			if err := m.store.Delete(e.ID); err != nil {
				m.notifyError("delete: " + err.Error())
			}
			m.refreshHistory()
		}
	}
	m.history.CancelDelete()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		m.confirmQuit = true
		return m, nil
	case "1":
		m.tab = tabParser
		return m, nil
	case "2":
		m.tab = tabExplorer
		return m, nil
	case "tab":
		if m.tab == tabParser {
			m.tab = tabExplorer
		} else {
			m.tab = tabParser
		}
		return m, nil
	case "h":
		if m.store == nil {
			m.notifyError("history is unavailable")
			return m, nil
		}
		m.history.Toggle()
		if m.history.IsVisible() {
			m.refreshHistory()
		} else if m.focus == paneHistory {
			m.focus = paneSegments
		}
		m.saveConfig()
		m.layoutPanes()
		return m, nil
	}

	if m.tab == tabExplorer {
		return m.handleExplorerKey(msg)
	}
	return m.handleParserKey(msg)
}

func (m Model) handleExplorerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "/":
		cmd := m.explorer.StartSearch()
		return m, cmd
	case "esc":
		m.explorer.ClearSearch()
	case "up", "k":
		m.explorer.Up()
	case "down", "j":
		m.explorer.Down()
	case "enter", "o":
		if e := m.explorer.Selected(); e != nil {
			cmd := m.openDocs(e.Code)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleParserKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "e":
		m.focus = paneEditor
		cmd := m.editor.Focus()
		return m, cmd
	case "p":
		return m, m.pasteCmd()
	case "x":
		m.clear()
	case "o":
		if seg, ok := m.workspace.SelectedSegment(); ok {
			cmd := m.openDocs(seg.Type)
			return m, cmd
		}
		m.notifyError("Select a segment first")
	case "shift+tab", "right", "l":
		m.focus = m.nextPane(1)
	case "left":
		m.focus = m.nextPane(-1)
	case "up", "k":
		m.moveUp(1)
	case "down", "j":
		m.moveDown(1)
	case "pgup":
		m.moveUp(m.fields.height / 2)
	case "pgdown":
		m.moveDown(m.fields.height / 2)
	case "home", "g":
		if m.focus == paneFields {
			m.fields.ScrollToTop()
		}
	case "enter":
		switch m.focus {
		case paneHistory:
			if e := m.history.Selected(); e != nil {
				if m.parse(e.Raw, "") {
					m.focus = paneSegments
				}
			}
		case paneSegments:
			if !m.workspace.IsEmpty() {
				m.focus = paneFields
			}
		}
	case "f":
		if m.focus == paneHistory {
			cmd := m.history.StartFilter()
			return m, cmd
		}
	case "d":
		if m.focus == paneHistory {
			m.history.AskDelete()
		}
	}
	return m, nil
}

func (m Model) nextPane(dir int) pane {
	panes := []pane{paneSegments, paneFields}
	if m.history.IsVisible() {
		panes = []pane{paneSegments, paneHistory, paneFields}
	}
	cur := 0
	for i, p := range panes {
		if p == m.focus {
			cur = i
		}
	}
	return panes[(cur+dir+len(panes))%len(panes)]
}

func (m *Model) moveUp(n int) {
	if m.tab == tabExplorer {
		m.explorer.Up()
		return
	}
	switch m.focus {
	case paneSegments:
		m.segments.Up()
		m.selectCursor()
	case paneFields:
		m.fields.ScrollUp(max(n, 1))
	case paneHistory:
		m.history.Up()
	}
}

func (m *Model) moveDown(n int) {
	if m.tab == tabExplorer {
		m.explorer.Down()
		return
	}
	switch m.focus {
	case paneSegments:
		m.segments.Down()
		m.selectCursor()
	case paneFields:
		m.fields.ScrollDown(max(n, 1))
	case paneHistory:
		m.history.Down()
	}
}

// selectCursor makes the segment under the list cursor the selected one.
func (m *Model) selectCursor() {
	m.workspace = hl7.SelectSegment(m.workspace, m.segments.Cursor())
	m.syncFields()
}

func (m *Model) syncFields() {
	seg, ok := m.workspace.SelectedSegment()
	if !ok {
		m.fields.Clear()
		return
	}
	var entry *reference.Entry
	if m.catalog != nil {
		if e, found := m.catalog.Lookup(seg.Type); found {
			entry = &e
		}
	}
	m.fields.SetSegment(&seg, entry)
}

// parse replaces the workspace with message. A non-empty source records the
// message in history. Blank input keeps the previous workspace and reports
// an error toast.
func (m *Model) parse(message, source string) bool {
	ws, err := hl7.ParseWorkspace(m.workspace, message)
	if err != nil {
		if errors.Is(err, hl7.ErrEmptyInput) {
			m.notifyError("Please enter an HL7 message")
		} else {
			m.notifyError("Error parsing the HL7 message")
			m.log.Error("parse failed", "error", err)
		}
		return false
	}

	m.workspace = hl7.SelectSegment(ws, 0)
	m.editor.SetValue(message)
	m.segments.SetSegments(m.workspace.Segments, m.workspace.Selected)
	m.syncFields()

	if source != "" && m.store != nil {
		if _, err := m.store.Save(message, source); err != nil {
			m.log.Warn("history save failed", "source", source, "error", err)
		} else {
			m.refreshHistory()
		}
	}

	m.notify(fmt.Sprintf("%d segments parsed successfully", len(ws.Segments)))
	return true
}

func (m *Model) clear() {
	m.workspace = hl7.ClearWorkspace()
	m.editor.Reset()
	m.segments.SetSegments(nil, -1)
	m.fields.Clear()
	m.notify("Cleared")
}

func (m *Model) refreshHistory() {
	if m.store == nil {
		return
	}
	entries, err := m.store.Search(m.history.Query(), m.cfg.HistoryLimit)
	if err != nil {
		m.notifyError("history: " + err.Error())
		return
	}
	m.history.SetItems(entries)
}

func (m *Model) openDocs(code string) tea.Cmd {
	url := m.cfg.DocURL(code)
	open := m.openURL
	m.notify(fmt.Sprintf("Opening official documentation for %s", code))
	return func() tea.Msg {
		return openedMsg{code: code, err: open(url)}
	}
}

func (m Model) pasteCmd() tea.Cmd {
	read := m.readClip
	return func() tea.Msg {
		text, err := read()
		return pasteMsg{text: text, err: err}
	}
}

func (m *Model) notify(text string) {
	m.toast = toast{text: text, kind: toastSuccess, until: m.now().Add(toastDuration)}
}

func (m *Model) notifyError(text string) {
	m.toast = toast{text: text, kind: toastError, until: m.now().Add(toastDuration)}
}

func (m Model) saveConfig() {
	m.cfg.HistoryVisible = m.history.IsVisible()
	if err := config.Save(m.cfg); err != nil {
		m.log.Warn("config save failed", "error", err)
	}
}

// layout holds the outer panel sizes for the current window.
type layout struct {
	leftW, rightW int
	segH, histH   int
	editH, fieldH int
	fullH         int
}

func (m Model) computeLayout() layout {
	leftW := max(m.width*30/100, 28)
	rightW := max(m.width-leftW, 20)
	rows := max(m.height-2, 8) // header + status bar

	l := layout{leftW: leftW, rightW: rightW, fullH: rows - 2}
	if m.history.IsVisible() {
		l.histH = max((rows-4)*40/100, 3)
		l.segH = max(rows-4-l.histH, 1)
	} else {
		l.segH = rows - 2
	}
	l.editH = max((rows-4)*35/100, 3)
	l.fieldH = max(rows-4-l.editH, 1)
	return l
}

func (m *Model) layoutPanes() {
	l := m.computeLayout()
	m.segments.SetSize(l.leftW, l.segH)
	m.history.SetSize(l.leftW, l.histH)
	m.editor.SetSize(l.rightW, l.editH)
	m.fields.SetSize(l.rightW, l.fieldH)
	m.explorer.SetSize(m.width, l.fullH)
}

func (m Model) View() string {
	if !m.ready {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	l := m.computeLayout()
	if m.tab == tabExplorer {
		b.WriteString(RenderPanel(m.explorer.Title(), m.explorer.View(), m.width, l.fullH, true))
	} else {
		segTitle := fmt.Sprintf("SEGMENTS (%d)", m.segments.Len())
		left := RenderPanel(segTitle, m.segments.View(), l.leftW, l.segH, m.focus == paneSegments)
		if m.history.IsVisible() {
			hist := RenderPanel(m.history.Title(), m.history.View(), l.leftW, l.histH, m.focus == paneHistory)
			left = lipgloss.JoinVertical(lipgloss.Left, left, hist)
		}

		editTitle := "MESSAGE  [e] edit  [p] paste  [x] clear"
		if m.editor.IsEditing() {
			editTitle = "MESSAGE  [ctrl+s] parse  [esc] done"
		}
		editBox := RenderPanel(editTitle, m.editor.View(), l.rightW, l.editH, m.focus == paneEditor)
		fieldBox := RenderPanel(m.fields.Title(), m.fields.View(), l.rightW, l.fieldH, m.focus == paneFields)
		right := lipgloss.JoinVertical(lipgloss.Left, editBox, fieldBox)

		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	if m.confirmQuit {
		return overlayCenter(b.String(), m.renderConfirmQuit(), m.width, m.height)
	}
	return b.String()
}

func (m Model) renderHeader() string {
	bg := lipgloss.NewStyle().Background(ColorBarBg)

	pulse := 0.7 + 0.3*math.Sin(float64(m.frame)*0.06)
	glyphColor := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x",
		min(int(80*pulse), 255), min(int(255*pulse), 255), min(int(120*pulse), 255)))
	glyph := bg.Foreground(glyphColor).Bold(true).Render("◆")
	title := bg.Foreground(ColorCyan).Bold(true).Render("HL7V")

	tabs := ""
	for i, t := range []tab{tabParser, tabExplorer} {
		label := fmt.Sprintf(" [%d] %s ", i+1, t)
		if t == m.tab {
			tabs += lipgloss.NewStyle().Background(ColorSelectBg).Foreground(ColorSelect).Bold(true).Render(label)
		} else {
			tabs += bg.Foreground(ColorDim).Render(label)
		}
	}

	left := bg.Render(" ") + glyph + bg.Render(" ") + title + bg.Render("  ") + tabs

	stats := ""
	if info, ok := hl7.MessageInfo(m.workspace.Segments); ok {
		sep := bg.Foreground(ColorDim).Render(" │ ")
		parts := []string{bg.Foreground(ColorCyan).Render(orDash(info.MessageType))}
		if info.ControlID != "" {
			parts = append(parts, bg.Foreground(ColorWhite).Render("#"+info.ControlID))
		}
		if info.Version != "" {
			parts = append(parts, bg.Foreground(ColorGreen).Render("v"+info.Version))
		}
		parts = append(parts, bg.Foreground(ColorYellow).Render(fmt.Sprintf("SEG %d", len(m.workspace.Segments))))
		stats = bg.Render("  ") + strings.Join(parts, sep)
	}

	clockText := fmt.Sprintf("TIME %s  ", m.now().Format("15:04:05"))
	clock := bg.Foreground(ColorBarText).Render(clockText)

	spacerLen := max(m.width-visibleLen(left)-visibleLen(stats)-len(clockText), 1)
	return left + stats + bg.Render(strings.Repeat(" ", spacerLen)) + clock
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (m Model) renderConfirmQuit() string {
	bc := lipgloss.NewStyle().Foreground(ColorYellow)
	tc := lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	dim := lipgloss.NewStyle().Foreground(ColorDim)

	innerW := 30
	side := bc.Render("┃")

	var rows []string
	title := " QUIT "
	fillLen := max(innerW-3-len(title), 0)
	rows = append(rows, bc.Render("┏━╸")+tc.Render(title)+bc.Render("╺"+strings.Repeat("━", fillLen)+"┓"))
	rows = append(rows, side+strings.Repeat(" ", innerW)+side)

	q := lipgloss.NewStyle().Foreground(ColorWhite).Bold(true).Render("  Exit hl7v?")
	rows = append(rows, side+q+strings.Repeat(" ", max(innerW-visibleLen(q), 0))+side)
	rows = append(rows, side+strings.Repeat(" ", innerW)+side)

	opts := fmt.Sprintf("  %s yes  %s no", SelectedStyle.Render("[y/q]"), dim.Render("[n]"))
	rows = append(rows, side+opts+strings.Repeat(" ", max(innerW-visibleLen(opts), 0))+side)

	rows = append(rows, side+strings.Repeat(" ", innerW)+side)
	rows = append(rows, bc.Render("┗"+strings.Repeat("━", innerW)+"┛"))

	return strings.Join(rows, "\n")
}

func (m Model) renderStatusBar() string {
	bg := lipgloss.NewStyle().Background(ColorBarBg)

	var leftText string
	switch {
	case m.tab == tabExplorer:
		leftText = "  [/] Search  [↑↓] Move  [o] Docs  [Tab] Parser  [q] Quit"
	case m.focus == paneHistory:
		leftText = "  [Enter] Load  [f] Find  [d] Delete  [h] Hide  [q] Quit"
	default:
		leftText = "  [e] Edit  [p] Paste  [x] Clear  [o] Docs  [h] History  [Tab] Explorer  [q] Quit"
	}
	left := bg.Foreground(ColorBarText).Render(leftText)

	var rightParts []string
	if m.toast.active(m.now()) {
		rightParts = append(rightParts, m.toast.render(bg))
	}
	if m.captureLabel != "" {
		rightParts = append(rightParts, bg.Foreground(ColorGreen).Render("● "+m.captureLabel))
	}
	if m.file != "" {
		rightParts = append(rightParts, bg.Foreground(ColorCyan).Render("WATCH "+m.file))
	}

	right := ""
	if len(rightParts) > 0 {
		right = strings.Join(rightParts, bg.Foreground(ColorDim).Render(" │ ")) + bg.Render("  ")
	}

	spacerLen := max(m.width-visibleLen(left)-visibleLen(right), 1)
	return left + bg.Render(strings.Repeat(" ", spacerLen)) + right
}

// overlayCenter composites a small modal on top of a rendered background,
// replacing lines in the center while keeping the dashboard visible around it.
func overlayCenter(bg, modal string, width, height int) string {
	bgLines := strings.Split(bg, "\n")
	modalLines := strings.Split(modal, "\n")

	for len(bgLines) < height {
		bgLines = append(bgLines, "")
	}

	modalW := 0
	for _, ml := range modalLines {
		modalW = max(modalW, visibleLen(ml))
	}

	topOff := max((height-len(modalLines))/2, 0)
	leftOff := max((width-modalW)/2, 0)

	for i, ml := range modalLines {
		row := topOff + i
		if row < len(bgLines) {
			bgLines[row] = spliceAnsiLine(bgLines[row], ml, leftOff)
		}
	}

	return strings.Join(bgLines, "\n")
}

// ansiSeg is either an ANSI escape sequence (visible=false) or a single
// visible rune.
type ansiSeg struct {
	text    string
	visible bool
}

func splitAnsiSegments(s string) []ansiSeg {
	var segs []ansiSeg
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' {
			// letter terminates the sequence
			j := i + 1
			for j < len(s) && !((s[j] >= 'a' && s[j] <= 'z') || (s[j] >= 'A' && s[j] <= 'Z')) {
				j++
			}
			if j < len(s) {
				j++
			}
			segs = append(segs, ansiSeg{s[i:j], false})
			i = j
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		segs = append(segs, ansiSeg{s[i : i+size], true})
		i += size
	}
	return segs
}

// spliceAnsiLine composites modalLine on top of bgLine starting at visible
// column leftOff, keeping the background on both sides.
func spliceAnsiLine(bgLine, modalLine string, leftOff int) string {
	modalVisW := visibleLen(modalLine)
	segs := splitAnsiSegments(bgLine)

	var out strings.Builder
	col := 0
	for _, seg := range segs {
		if col >= leftOff {
			break
		}
		out.WriteString(seg.text)
		if seg.visible {
			col++
		}
	}
	for col < leftOff {
		out.WriteByte(' ')
		col++
	}

	out.WriteString("\x1b[0m")
	out.WriteString(modalLine)

	rightStart := leftOff + modalVisW
	bgCol := 0
	writing := false
	for _, seg := range segs {
		if !seg.visible {
			if writing {
				out.WriteString(seg.text)
			}
			continue
		}
		bgCol++
		if bgCol <= rightStart {
			continue
		}
		writing = true
		out.WriteString(seg.text)
	}

	return out.String()
}

// truncateToWidth cuts a styled line to width visible columns.
func truncateToWidth(s string, width int) string {
	var out strings.Builder
	col := 0
	for _, seg := range splitAnsiSegments(s) {
		if !seg.visible {
			out.WriteString(seg.text)
			continue
		}
		w := runewidth.StringWidth(seg.text)
		if col+w > width {
			break
		}
		out.WriteString(seg.text)
		col += w
	}
	out.WriteString("\x1b[0m")
	return out.String()
}

func visibleLen(s string) int {
	return runewidth.StringWidth(stripAnsi(s))
}

func stripAnsi(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		if r == '\x1b' {
			inEsc = true
			continue
		}
		if inEsc {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEsc = false
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
