package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/thinkwright/hl7v/internal/hl7"
)

const oruMessage = "MSH|^~\\&|HRJ-BIO|LAB|LIS|HOSPITAL|202602130930||ORU^R01|123456|P|2.3\r" +
	"PID|1||12345||DOE^JOHN\r" +
	"OBR|1||54321|TEST^Blood Test\r" +
	"OBX|1|NM|GLU^Glucose||5.6|mmol/L|3.9-6.1|N\r"

func frame(msg string) []byte {
	var b bytes.Buffer
	WriteFrame(&b, msg)
	return b.Bytes()
}

func TestFrameReader_RoundTrip(t *testing.T) {
	var stream bytes.Buffer
	WriteFrame(&stream, "first")
	WriteFrame(&stream, oruMessage)

	fr := NewFrameReader(&stream)
	got, err := fr.ReadFrame()
	if err != nil || got != "first" {
		t.Fatalf("frame 1 = %q, %v", got, err)
	}
	got, err = fr.ReadFrame()
	if err != nil || got != oruMessage {
		t.Fatalf("frame 2 = %q, %v", got, err)
	}
	if _, err := fr.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFrameReader_SkipsNoise(t *testing.T) {
	data := append([]byte("noise\r\n"), frame("MSH|1")...)
	data = append(data, []byte("trailing")...)
	fr := NewFrameReader(bytes.NewReader(data))

	got, err := fr.ReadFrame()
	if err != nil || got != "MSH|1" {
		t.Fatalf("frame = %q, %v", got, err)
	}
	if _, err := fr.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF after noise, got %v", err)
	}
}

func TestFrameReader_Truncated(t *testing.T) {
	fr := NewFrameReader(bytes.NewReader([]byte{VT, 'M', 'S', 'H'}))
	if _, err := fr.ReadFrame(); !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("expected ErrTruncatedFrame, got %v", err)
	}
}

func TestFrameReader_RestartOnStartBlock(t *testing.T) {
	data := []byte{VT, 'x', 'x', VT, 'o', 'k', FS}
	fr := NewFrameReader(bytes.NewReader(data))
	got, err := fr.ReadFrame()
	if err != nil || got != "ok" {
		t.Errorf("frame = %q, %v; want ok", got, err)
	}
}

func TestFrameReader_MissingCR(t *testing.T) {
	data := []byte{VT, 'a', FS, VT, 'b', FS, CR}
	fr := NewFrameReader(bytes.NewReader(data))
	a, _ := fr.ReadFrame()
	b, _ := fr.ReadFrame()
	if a != "a" || b != "b" {
		t.Errorf("frames = %q, %q", a, b)
	}
}

func TestBuildACK(t *testing.T) {
	segs, err := hl7.Split(oruMessage)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 2, 13, 9, 31, 0, 0, time.UTC)
	ack := BuildACK(segs, now)

	ackSegs, err := hl7.Split(ack)
	if err != nil {
		t.Fatal(err)
	}
	if len(ackSegs) != 2 {
		t.Fatalf("expected 2 ack segments, got %d: %q", len(ackSegs), ack)
	}
	msh, msa := ackSegs[0], ackSegs[1]
	if msh.Field(2) != "LIS" || msh.Field(3) != "HOSPITAL" {
		t.Errorf("sender = %q/%q, want LIS/HOSPITAL", msh.Field(2), msh.Field(3))
	}
	if msh.Field(4) != "HRJ-BIO" || msh.Field(5) != "LAB" {
		t.Errorf("receiver = %q/%q, want HRJ-BIO/LAB", msh.Field(4), msh.Field(5))
	}
	if msh.Field(6) != "20260213093100" {
		t.Errorf("timestamp = %q", msh.Field(6))
	}
	if msh.Field(8) != "ACK" {
		t.Errorf("message type = %q", msh.Field(8))
	}
	if msa.Field(1) != "AA" || msa.Field(2) != "123456" {
		t.Errorf("MSA = %q", msa.Raw)
	}
}

func TestBuildACK_NoHeader(t *testing.T) {
	segs, _ := hl7.Split("PID|1")
	if ack := BuildACK(segs, time.Now()); ack != "" {
		t.Errorf("expected no ack, got %q", ack)
	}
}

type pipeRW struct {
	io.Reader
	written bytes.Buffer
}

func (p *pipeRW) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func TestListenerServe(t *testing.T) {
	var in bytes.Buffer
	WriteFrame(&in, oruMessage)
	WriteFrame(&in, "  \r ")
	WriteFrame(&in, "PID|2")
	rw := &pipeRW{Reader: &in}

	out := make(chan Capture, 4)
	l := &Listener{
		Source: "test",
		Log:    slog.New(slog.DiscardHandler),
		Now:    func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
	if err := l.Serve(context.Background(), rw, out); err != nil {
		t.Fatal(err)
	}
	close(out)

	var got []Capture
	for c := range out {
		got = append(got, c)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 captures (blank frame skipped), got %d", len(got))
	}
	if got[0].Message != oruMessage || got[0].Source != "test" {
		t.Errorf("capture 0 = %+v", got[0])
	}
	if got[1].Message != "PID|2" {
		t.Errorf("capture 1 = %+v", got[1])
	}

	// Only the message with an MSH is acknowledged.
	acks := NewFrameReader(&rw.written)
	ack, err := acks.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ack, "MSA|AA|123456") {
		t.Errorf("ack = %q", ack)
	}
	if _, err := acks.ReadFrame(); err != io.EOF {
		t.Errorf("expected a single ack, got err %v", err)
	}
}

func TestListenerServe_Truncated(t *testing.T) {
	rw := &pipeRW{Reader: bytes.NewReader([]byte{VT, 'P', 'I', 'D'})}
	l := &Listener{Source: "test"}
	err := l.Serve(context.Background(), rw, make(chan Capture, 1))
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("expected ErrTruncatedFrame, got %v", err)
	}
}

func TestServeTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Capture, 1)
	done := make(chan error, 1)
	go func() {
		done <- ServeTCP(ctx, ln, slog.New(slog.DiscardHandler), out)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	defer conn.Close()
	if err := WriteFrame(conn, oruMessage); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-out:
		if c.Source != "tcp" || c.Message != oruMessage {
			t.Errorf("capture = %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for capture")
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	ack, err := NewFrameReader(conn).ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ack, "MSH|") {
		t.Errorf("ack = %q", ack)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeTCP returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ServeTCP did not stop")
	}
}

func TestSerialMode(t *testing.T) {
	if m := SerialMode(0); m.BaudRate != DefaultBaudRate || m.DataBits != 8 {
		t.Errorf("default mode = %+v", m)
	}
	if m := SerialMode(19200); m.BaudRate != 19200 {
		t.Errorf("baud = %d", m.BaudRate)
	}
}
