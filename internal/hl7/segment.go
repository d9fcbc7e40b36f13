package hl7

import (
	"strings"
)

// FieldSeparator is the only delimiter the splitter understands. Component,
// repetition, escape and sub-component characters stay inside field values.
const FieldSeparator = "|"

// Segment is one line of an HL7 message split on the field separator.
type Segment struct {
	Type   string   `json:"type"`
	Fields []string `json:"fields"`
	Raw    string   `json:"raw"`
}

// EmptyInputError reports a message with no non-blank lines.
type EmptyInputError struct{}

func (EmptyInputError) Error() string {
	return "hl7: message is empty"
}

// ErrEmptyInput is returned by Split and CheckInput for blank messages.
var ErrEmptyInput error = EmptyInputError{}

// CheckInput rejects blank or whitespace-only messages.
func CheckInput(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyInput
	}
	return nil
}

// Split breaks message into segments, one per non-blank line, in input order.
// Any run of CR/LF characters ends a line, so \r, \n and \r\n all work and
// blank lines collapse.
func Split(message string) ([]Segment, error) {
	lines := Lines(message)
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}

	segments := make([]Segment, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, FieldSeparator)
		segments = append(segments, Segment{
			Type:   fields[0],
			Fields: fields,
			Raw:    line,
		})
	}
	return segments, nil
}

// Lines returns the non-blank lines of message without altering their text.
func Lines(message string) []string {
	candidates := strings.FieldsFunc(message, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
	lines := candidates[:0]
	for _, line := range candidates {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Field returns field i, or "" when the segment is shorter.
func (s Segment) Field(i int) string {
	if i < 0 || i >= len(s.Fields) {
		return ""
	}
	return s.Fields[i]
}

// Len returns the number of fields, including the type field.
func (s Segment) Len() int {
	return len(s.Fields)
}

// Info holds the header values used to label a message.
type Info struct {
	MessageType string
	ControlID   string
	Version     string
}

// MessageInfo reads the message type, control id and version from the first
// MSH segment. Indices count the type as field 0, so MSH-9 is Fields[8].
func MessageInfo(segments []Segment) (Info, bool) {
	for _, s := range segments {
		if s.Type != "MSH" {
			continue
		}
		return Info{
			MessageType: s.Field(8),
			ControlID:   s.Field(9),
			Version:     s.Field(11),
		}, true
	}
	return Info{}, false
}
