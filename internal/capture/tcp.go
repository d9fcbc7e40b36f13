package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// ListenTCP accepts MLLP connections on addr and forwards framed messages to
// out until ctx is cancelled. Each connection is served on its own goroutine.
func ListenTCP(ctx context.Context, addr string, log *slog.Logger, out chan<- Capture) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return ServeTCP(ctx, ln, log, out)
}

// ServeTCP runs the accept loop on an existing listener. The listener is
// closed when ctx is cancelled.
func ServeTCP(ctx context.Context, ln net.Listener, log *slog.Logger, out chan<- Capture) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	log.Info("tcp listener active", "addr", ln.Addr().String())

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			connStop := context.AfterFunc(ctx, func() { conn.Close() })
			defer connStop()

			remote := conn.RemoteAddr().String()
			l := &Listener{Source: "tcp", Log: log.With("remote", remote)}
			if err := l.Serve(ctx, conn, out); err != nil && ctx.Err() == nil {
				log.Warn("connection closed with error", "remote", remote, "error", err)
			}
		}()
	}
}
