package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/thinkwright/hl7v/internal/hl7"
)

// Capture is one message received from an external source.
type Capture struct {
	Source  string
	Message string
}

// Listener reads MLLP frames from a connection, acknowledges each one and
// forwards the message text.
type Listener struct {
	Source string
	Log    *slog.Logger
	Now    func() time.Time
}

// Serve reads frames from rw until the stream ends or ctx is cancelled.
// Frames with no segments are logged and skipped. A clean end of stream
// returns nil.
func (l *Listener) Serve(ctx context.Context, rw io.ReadWriter, out chan<- Capture) error {
	log := l.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	now := l.Now
	if now == nil {
		now = time.Now
	}

	fr := NewFrameReader(rw)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := fr.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		segments, err := hl7.Split(msg)
		if err != nil {
			log.Warn("empty frame", "source", l.Source)
			continue
		}

		if ack := BuildACK(segments, now()); ack != "" {
			if err := WriteFrame(rw, ack); err != nil {
				log.Warn("ack write failed", "source", l.Source, "error", err)
			}
		}
		log.Info("message received", "source", l.Source, "segments", len(segments))

		select {
		case out <- Capture{Source: l.Source, Message: msg}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
