package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestExportImport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	messages := []string{
		"MSH|^~\\&|A|B|C|D|20230101||ADT^A01|1|P|2.5\rPID|1||12345",
		"MSH|^~\\&|X|Y|Z|W|20230102||ORU^R01|2|P|2.3\rOBX|1|NM|GLU||5.6",
	}

	path, err := Export(filepath.Join(dir, "history"), messages)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, Extension) {
		t.Errorf("path = %q, want %s suffix", path, Extension)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("archive not created: %v", err)
	}

	got, err := Import(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, messages) {
		t.Errorf("import = %q, want %q", got, messages)
	}
}

func TestExport_KeepsExplicitExtension(t *testing.T) {
	path, err := Export(filepath.Join(t.TempDir(), "out.zst"), []string{"MSH|1"})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "out.zst" {
		t.Errorf("path = %q", path)
	}
}

func TestExport_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "a.hl7.zst")
	if _, err := Export(path, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("archive not created: %v", err)
	}
}

func TestRead_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no messages, got %d", len(got))
	}
}

func TestImport_Missing(t *testing.T) {
	if _, err := Import(filepath.Join(t.TempDir(), "missing.zst")); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestRead_NotCompressed(t *testing.T) {
	if _, err := Read(strings.NewReader("plain text, not zstd")); err == nil {
		t.Error("expected error for non-zstd input")
	}
}
