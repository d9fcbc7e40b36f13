package hl7

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseWorkspace(t *testing.T) {
	ws, err := ParseWorkspace(ClearWorkspace(), admitMessage)
	if err != nil {
		t.Fatal(err)
	}
	if len(ws.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(ws.Segments))
	}
	if ws.Selected != -1 {
		t.Errorf("selected = %d, want -1", ws.Selected)
	}
	if ws.Message != admitMessage {
		t.Error("message not kept")
	}
}

func TestParseWorkspace_EmptyKeepsPrevious(t *testing.T) {
	prev, err := ParseWorkspace(ClearWorkspace(), admitMessage)
	if err != nil {
		t.Fatal(err)
	}
	prev = SelectSegment(prev, 1)

	next, err := ParseWorkspace(prev, "   \n  ")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if !reflect.DeepEqual(next, prev) {
		t.Error("previous workspace should be returned unchanged")
	}
}

func TestParseWorkspace_ResetsSelection(t *testing.T) {
	ws, _ := ParseWorkspace(ClearWorkspace(), admitMessage)
	ws = SelectSegment(ws, 2)
	ws, err := ParseWorkspace(ws, "MSH|x")
	if err != nil {
		t.Fatal(err)
	}
	if ws.Selected != -1 {
		t.Errorf("selected = %d after re-parse, want -1", ws.Selected)
	}
	if len(ws.Segments) != 1 {
		t.Errorf("segments = %d, want 1", len(ws.Segments))
	}
}

func TestSelectSegment(t *testing.T) {
	ws, _ := ParseWorkspace(ClearWorkspace(), admitMessage)

	if _, ok := ws.SelectedSegment(); ok {
		t.Error("nothing should be selected after parse")
	}

	ws = SelectSegment(ws, 1)
	s, ok := ws.SelectedSegment()
	if !ok || s.Type != "PID" {
		t.Errorf("selected = %+v, ok=%v; want PID", s, ok)
	}

	same := SelectSegment(ws, 99)
	if same.Selected != 1 {
		t.Errorf("out-of-range select changed selection to %d", same.Selected)
	}
	same = SelectSegment(ws, -2)
	if same.Selected != 1 {
		t.Errorf("negative select changed selection to %d", same.Selected)
	}
}

func TestClearWorkspace(t *testing.T) {
	ws := ClearWorkspace()
	if !ws.IsEmpty() {
		t.Error("cleared workspace should be empty")
	}
	if ws.Message != "" || ws.Selected != -1 {
		t.Errorf("cleared workspace = %+v", ws)
	}
}
