package capture

import (
	"strings"
	"time"

	"github.com/thinkwright/hl7v/internal/hl7"
)

// BuildACK returns an accept acknowledgement (MSA|AA) for a received message.
// Sender and receiver are swapped and the control id is echoed back. It
// returns "" when the message has no MSH segment.
func BuildACK(segments []hl7.Segment, now time.Time) string {
	var msh hl7.Segment
	found := false
	for _, s := range segments {
		if s.Type == "MSH" {
			msh = s
			found = true
			break
		}
	}
	if !found {
		return ""
	}

	encoding := msh.Field(1)
	if encoding == "" {
		encoding = `^~\&`
	}
	controlID := msh.Field(9)

	header := []string{
		"MSH",
		encoding,
		msh.Field(4), // receiving app becomes sender
		msh.Field(5),
		msh.Field(2),
		msh.Field(3),
		now.Format("20060102150405"),
		"",
		"ACK",
		controlID,
		msh.Field(10),
		msh.Field(11),
	}
	ack := []string{"MSA", "AA", controlID}

	return strings.Join(header, hl7.FieldSeparator) + "\r" + strings.Join(ack, hl7.FieldSeparator) + "\r"
}
