package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/thinkwright/hl7v/internal/api"
	"github.com/thinkwright/hl7v/internal/archive"
	"github.com/thinkwright/hl7v/internal/capture"
	"github.com/thinkwright/hl7v/internal/config"
	"github.com/thinkwright/hl7v/internal/reference"
	"github.com/thinkwright/hl7v/internal/store"
	"github.com/thinkwright/hl7v/internal/ui"
	"golang.org/x/term"
)

var version = "dev"

type options struct {
	file         string
	serialPort   string
	baud         int
	listenAddr   string
	serveAddr    string
	exportPath   string
	importPath   string
	clearHistory bool
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: hl7v [flags]

  --file PATH        load a message file and reload it on change
  --serial PORT      capture MLLP messages from a serial port
  --baud N           serial baud rate (default from config, 9600)
  --listen ADDR      capture MLLP messages over TCP, e.g. :2575
  --serve ADDR       run the HTTP API instead of the terminal UI
  --export PATH      write history to a compressed archive and exit
  --import PATH      load messages from an archive into history and exit
  --clear-history    delete all saved messages and exit
  --version          print the version and exit`)
}

func main() {
	cfg := config.Load()
	opts := options{baud: cfg.SerialBaud}

	args := os.Args[1:]
	value := func(i int, flag string) string {
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires an argument\n", flag)
			os.Exit(1)
		}
		return args[i+1]
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v":
			fmt.Printf("hl7v %s\n", version)
			os.Exit(0)
		case "--help", "-h":
			usage()
			os.Exit(0)
		case "--file":
			opts.file = value(i, args[i])
			i++
		case "--serial":
			opts.serialPort = value(i, args[i])
			i++
		case "--baud":
			n, err := strconv.Atoi(value(i, args[i]))
			if err != nil || n <= 0 {
				fmt.Fprintf(os.Stderr, "invalid baud rate: %s\n", args[i+1])
				os.Exit(1)
			}
			opts.baud = n
			i++
		case "--listen":
			opts.listenAddr = value(i, args[i])
			i++
		case "--serve":
			opts.serveAddr = value(i, args[i])
			i++
		case "--export":
			opts.exportPath = value(i, args[i])
			i++
		case "--import":
			opts.importPath = value(i, args[i])
			i++
		case "--clear-history":
			opts.clearHistory = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", args[i])
			usage()
			os.Exit(1)
		}
	}

	catalog, err := reference.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading segment catalog: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(store.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening history: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if opts.clearHistory || opts.importPath != "" || opts.exportPath != "" {
		if err := runHistoryCommands(db, opts); err != nil {
			db.Close()
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if opts.serveAddr != "" {
		log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		if err := runServer(log, catalog, db, cfg, opts); err != nil {
			log.Error("server error", "error", err)
			db.Close()
			os.Exit(1)
		}
		return
	}

	if err := runTUI(catalog, db, cfg, opts); err != nil {
		db.Close()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runHistoryCommands(db *store.Store, opts options) error {
	if opts.clearHistory {
		if err := db.Reset(); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Println("history cleared")
	}

	if opts.importPath != "" {
		messages, err := archive.Import(opts.importPath)
		if err != nil {
			return err
		}
		saved := 0
		for _, msg := range messages {
			if _, err := db.Save(msg, store.SourceImport); err != nil {
				fmt.Fprintf(os.Stderr, "skipping message: %v\n", err)
				continue
			}
			saved++
		}
		fmt.Printf("imported %d of %d messages from %s\n", saved, len(messages), opts.importPath)
	}

	if opts.exportPath != "" {
		messages, err := db.Messages()
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		path, err := archive.Export(opts.exportPath, messages)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d messages to %s\n", len(messages), path)
	}
	return nil
}

// startCapture launches the configured listeners. The returned channel is
// closed once every listener has stopped; it is nil when none are configured.
func startCapture(ctx context.Context, log *slog.Logger, opts options) (<-chan capture.Capture, string) {
	if opts.serialPort == "" && opts.listenAddr == "" {
		return nil, ""
	}

	out := make(chan capture.Capture, 16)
	var labels []string
	done := make(chan struct{}, 2)
	running := 0

	if opts.serialPort != "" {
		running++
		labels = append(labels, "SERIAL "+opts.serialPort)
		go func() {
			defer func() { done <- struct{}{} }()
			if err := capture.ListenSerial(ctx, opts.serialPort, opts.baud, log, out); err != nil {
				log.Error("serial capture stopped", "port", opts.serialPort, "error", err)
			}
		}()
	}
	if opts.listenAddr != "" {
		running++
		labels = append(labels, "TCP "+opts.listenAddr)
		go func() {
			defer func() { done <- struct{}{} }()
			if err := capture.ListenTCP(ctx, opts.listenAddr, log, out); err != nil {
				log.Error("tcp capture stopped", "addr", opts.listenAddr, "error", err)
			}
		}()
	}

	go func() {
		for range running {
			<-done
		}
		close(out)
	}()

	return out, strings.Join(labels, " · ")
}

func runServer(log *slog.Logger, catalog *reference.Catalog, db *store.Store, cfg config.Config, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Captured messages go straight to history when there is no UI.
	if captures, label := startCapture(ctx, log, opts); captures != nil {
		log.Info("capturing", "listeners", label)
		go func() {
			for c := range captures {
				entry, err := db.Save(c.Message, c.Source)
				if err != nil {
					log.Warn("capture not saved", "source", c.Source, "error", err)
					continue
				}
				log.Info("captured message", "source", c.Source, "id", entry.ID,
					"type", entry.MessageType, "control_id", entry.ControlID)
			}
		}()
	}

	srv := api.NewServer(catalog, db, log, cfg)
	httpServer := &http.Server{
		Addr:         opts.serveAddr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting hl7v api", "addr", opts.serveAddr, "version", version)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runTUI(catalog *reference.Catalog, db *store.Store, cfg config.Config, opts options) error {
	// The terminal belongs to the UI, so logs go to a file.
	if err := os.MkdirAll(filepath.Dir(store.LogPath()), 0o755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(store.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	log := slog.New(slog.NewJSONHandler(logFile, nil))

	if opts.file != "" {
		abs, err := filepath.Abs(opts.file)
		if err != nil {
			return err
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("message file: %w", err)
		}
		opts.file = abs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	captures, label := startCapture(ctx, log, opts)

	// Ensure terminal is large enough for the split layout
	const minCols, minRows = 100, 30
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		if w < minCols || h < minRows {
			fmt.Fprintf(os.Stdout, "\x1b[8;%d;%dt", max(h, minRows), max(w, minCols))
		}
	}

	log.Info("starting hl7v", "version", version, "file", opts.file, "capture", label)

	p := tea.NewProgram(
		ui.NewModel(ui.Options{
			Store:        db,
			Catalog:      catalog,
			Config:       cfg,
			File:         opts.file,
			Captures:     captures,
			CaptureLabel: label,
			Log:          log,
		}),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
