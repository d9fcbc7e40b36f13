package capture

import (
	"context"
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

const DefaultBaudRate = 9600

// SerialMode returns the 8N1 mode used by bedside and lab instruments.
func SerialMode(baud int) *serial.Mode {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// ListenSerial opens the named port and forwards every framed message to out
// until ctx is cancelled.
func ListenSerial(ctx context.Context, name string, baud int, log *slog.Logger, out chan<- Capture) error {
	port, err := serial.Open(name, SerialMode(baud))
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", name, err)
	}

	// Closing the port unblocks a pending read.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()
	defer port.Close()

	log.Info("serial listener active", "port", name, "baud", SerialMode(baud).BaudRate)

	l := &Listener{Source: "serial", Log: log}
	if err := l.Serve(ctx, port, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serial %s: %w", name, err)
	}
	return nil
}
