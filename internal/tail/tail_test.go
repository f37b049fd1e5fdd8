package tail

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPollSeesAppendedBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delivery.log")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	u, err := f.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if len(u.NewBytes) != 0 {
		t.Errorf("Poll before any append returned %d bytes, want 0", len(u.NewBytes))
	}

	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fh.WriteString("second\n"); err != nil {
		t.Fatal(err)
	}
	fh.Close()

	u, err = f.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if string(u.NewBytes) != "second\n" {
		t.Errorf("Poll after append = %q, want %q", u.NewBytes, "second\n")
	}
	if u.Rotated {
		t.Error("Poll after a plain append should not report Rotated")
	}
}

func TestPollDetectsRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delivery.log")
	if err := os.WriteFile(path, []byte("old-content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.Poll(); err != nil {
		t.Fatal(err)
	}

	rotatedAside := filepath.Join(dir, "delivery.log.0")
	if err := os.Rename(path, rotatedAside); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("new-content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	u, err := f.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if !u.Rotated {
		t.Fatal("Poll after rotation should report Rotated")
	}
	if string(u.NewBytes) != "new-content\n" {
		t.Errorf("NewBytes after rotation = %q, want %q", u.NewBytes, "new-content\n")
	}
}
