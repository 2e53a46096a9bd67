package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOverwriteReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.srt")
	if err := os.WriteFile(path, []byte("stale content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Overwrite(path, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, "fresh")
		return err
	})
	if err != nil {
		t.Fatalf("Overwrite: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fresh" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestOverwriteRemovesPartialFileOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.srt")
	boom := errors.New("boom")

	err := Overwrite(path, 0o644, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fill error, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial file to be removed, stat err=%v", statErr)
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.wav")
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("RemoveIfExists: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, err=%v", err)
	}
}

func TestNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	full := filepath.Join(dir, "full.mp4")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if ok, err := NonEmptyFile(full); err != nil || !ok {
		t.Fatalf("expected full file to count, got %v %v", ok, err)
	}
	if ok, err := NonEmptyFile(empty); err != nil || ok {
		t.Fatalf("expected empty file to be rejected, got %v %v", ok, err)
	}
	if ok, err := NonEmptyFile(filepath.Join(dir, "missing.mp4")); err != nil || ok {
		t.Fatalf("expected missing file to be rejected, got %v %v", ok, err)
	}
	if ok, _ := NonEmptyFile(dir); ok {
		t.Fatal("directories are not output files")
	}
}
