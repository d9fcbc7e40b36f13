package capture

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// MLLP block characters.
const (
	VT = 0x0B // start block
	FS = 0x1C // end block
	CR = 0x0D
)

// ErrTruncatedFrame is returned when the stream ends inside a frame.
var ErrTruncatedFrame = errors.New("mllp: stream ended inside a frame")

// FrameReader reads MLLP-framed messages from a byte stream.
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadFrame returns the next framed message. Bytes outside a frame are
// skipped. It returns io.EOF once the stream ends between frames.
func (fr *FrameReader) ReadFrame() (string, error) {
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == VT {
			break
		}
	}

	var buf bytes.Buffer
	for {
		b, err := fr.r.ReadByte()
		if err == io.EOF {
			return "", ErrTruncatedFrame
		}
		if err != nil {
			return "", err
		}
		switch b {
		case FS:
			if next, err := fr.r.Peek(1); err == nil && next[0] == CR {
				fr.r.ReadByte()
			}
			return buf.String(), nil
		case VT:
			// A new start block restarts the frame.
			buf.Reset()
		default:
			buf.WriteByte(b)
		}
	}
}

// WriteFrame writes msg wrapped in an MLLP block.
func WriteFrame(w io.Writer, msg string) error {
	frame := make([]byte, 0, len(msg)+3)
	frame = append(frame, VT)
	frame = append(frame, msg...)
	frame = append(frame, FS, CR)
	_, err := w.Write(frame)
	return err
}
