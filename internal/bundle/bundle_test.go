package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRestoreRoundTrip(t *testing.T) {
	src := t.TempDir()
	ckpt := filepath.Join(src, "adversarial.net")
	mustWrite(t, ckpt, []byte("weights"))
	mustWrite(t, filepath.Join(src, "aug", "0.jpg"), []byte("jpeg-0"))
	mustWrite(t, filepath.Join(src, "aug", "deep", "1.JPG"), []byte("jpeg-1"))
	mustWrite(t, filepath.Join(src, "aug", "skip.txt"), []byte("nope"))

	buf := &bytes.Buffer{}
	stats, err := Write(buf, ckpt, filepath.Join(src, "aug"), "jpg")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if stats.Networks != 1 || stats.Images != 2 {
		t.Fatalf("unexpected write stats %+v", stats)
	}

	dst := t.TempDir()
	networks, restored, err := Restore(context.Background(), buf, filepath.Join(dst, "network"), filepath.Join(dst, "aug"))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored != stats {
		t.Fatalf("restore stats %+v differ from write stats %+v", restored, stats)
	}
	if len(networks) != 1 || filepath.Base(networks[0]) != "adversarial.net" {
		t.Fatalf("unexpected networks %v", networks)
	}
	got, err := os.ReadFile(filepath.Join(dst, "aug", "1.JPG"))
	if err != nil || string(got) != "jpeg-1" {
		t.Fatalf("image not restored: %q %v", got, err)
	}
}

func TestWriteRejectsDuplicateImageNames(t *testing.T) {
	src := t.TempDir()
	mustWrite(t, filepath.Join(src, "aug", "a", "0.jpg"), []byte("first"))
	mustWrite(t, filepath.Join(src, "aug", "b", "0.jpg"), []byte("second"))

	_, err := Write(&bytes.Buffer{}, "", filepath.Join(src, "aug"), "jpg")
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRestoreIgnoresUnknownAndFlattensNames(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	addTarEntry(t, tw, "other/readme", []byte("x"))
	addTarEntry(t, tw, "images/../../escape.jpg", []byte("y"))
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}

	dst := t.TempDir()
	_, stats, err := Restore(context.Background(), buf, filepath.Join(dst, "net"), filepath.Join(dst, "img"))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if stats.Images != 1 || stats.Networks != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(dst, "img", "escape.jpg")); err != nil {
		t.Fatalf("entry not flattened into image dir: %v", err)
	}
}

func TestRestoreHonorsCancellation(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	addTarEntry(t, tw, "images/a.jpg", []byte("a"))
	tw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Restore(ctx, buf, t.TempDir(), t.TempDir()); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func addTarEntry(t *testing.T, tw *tar.Writer, name string, data []byte) {
	t.Helper()
	hdr := &tar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatalf("write data: %v", err)
	}
}
