package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/thinkwright/hl7v/internal/capture"
)

// Extension is appended by Export when the path has no extension.
const Extension = ".hl7.zst"

// Export writes messages to path as a zstd-compressed stream of MLLP frames.
// Returns the path written.
func Export(path string, messages []string) (string, error) {
	if filepath.Ext(path) == "" {
		path += Extension
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create archive dir: %w", err)
		}
	}

	dest, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer dest.Close()

	if err := Write(dest, messages); err != nil {
		return "", err
	}
	if err := dest.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	return path, nil
}

// Write compresses messages onto w. An empty list still produces a valid
// zstd frame.
func Write(w io.Writer, messages []string) error {
	encoder, err := zstd.NewWriter(w, zstd.WithZeroFrames(true))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	for _, msg := range messages {
		if err := capture.WriteFrame(encoder, msg); err != nil {
			encoder.Close()
			return fmt.Errorf("compress: %w", err)
		}
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}
	return nil
}

// Import reads every message from an archive written by Export.
func Import(path string) ([]string, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()
	return Read(src)
}

// Read decompresses r and returns the framed messages in order.
func Read(r io.Reader) ([]string, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	fr := capture.NewFrameReader(decoder)
	var messages []string
	for {
		msg, err := fr.ReadFrame()
		if errors.Is(err, io.EOF) {
			return messages, nil
		}
		if err != nil {
			return messages, fmt.Errorf("decompress: %w", err)
		}
		messages = append(messages, msg)
	}
}
