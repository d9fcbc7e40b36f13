package watcher

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// FileChangedMsg is sent once the watched file has been written, created or
// renamed into place and writes have settled.
type FileChangedMsg struct {
	Path string
}

const debounceDelay = 300 * time.Millisecond

// WatchFile returns a command that blocks until path changes. The parent
// directory is watched so editors that replace the file are seen too.
// Re-issue the command after each FileChangedMsg to keep watching.
func WatchFile(path string) tea.Cmd {
	return func() tea.Msg {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil
		}
		defer w.Close()

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return nil
		}

		// Debounce: wait for writes to settle
		debounce := time.NewTimer(time.Hour)
		debounce.Stop()

		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if !Relevant(ev, abs) {
					continue
				}
				debounce.Reset(debounceDelay)
			case <-debounce.C:
				return FileChangedMsg{Path: path}
			case _, ok := <-w.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

// Relevant reports whether ev is a content change to the file at abs.
func Relevant(ev fsnotify.Event, abs string) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(abs) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
