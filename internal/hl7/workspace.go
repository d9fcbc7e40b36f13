package hl7

// Workspace is the parser state shown by a viewer: the message last parsed,
// its segments and the selected segment index (-1 for none).
type Workspace struct {
	Message  string
	Segments []Segment
	Selected int
}

// ClearWorkspace returns an empty workspace.
func ClearWorkspace() Workspace {
	return Workspace{Selected: -1}
}

// ParseWorkspace splits message into a fresh workspace. When the message is
// blank the previous workspace is returned unchanged together with the error.
func ParseWorkspace(prev Workspace, message string) (Workspace, error) {
	if err := CheckInput(message); err != nil {
		return prev, err
	}
	segments, err := Split(message)
	if err != nil {
		return prev, err
	}
	return Workspace{
		Message:  message,
		Segments: segments,
		Selected: -1,
	}, nil
}

// SelectSegment selects segment i. Out-of-range indices leave ws unchanged.
func SelectSegment(ws Workspace, i int) Workspace {
	if i < 0 || i >= len(ws.Segments) {
		return ws
	}
	ws.Selected = i
	return ws
}

// SelectedSegment returns the selected segment, if any.
func (ws Workspace) SelectedSegment() (Segment, bool) {
	if ws.Selected < 0 || ws.Selected >= len(ws.Segments) {
		return Segment{}, false
	}
	return ws.Segments[ws.Selected], true
}

// IsEmpty reports whether the workspace holds no segments.
func (ws Workspace) IsEmpty() bool {
	return len(ws.Segments) == 0
}
