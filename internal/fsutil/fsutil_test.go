package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.json")

	if err := WriteFileAtomic(path, []byte("hello"), AtomicWriteOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.json")

	if err := WriteFileAtomic(path, []byte("a"), AtomicWriteOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("b"), AtomicWriteOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteFileAtomic_BackupOnlyWhenPriorExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.json")

	// First write: no prior file, so no backup.
	if err := WriteFileAtomic(path, []byte("v1"), AtomicWriteOptions{CreateBackup: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FileExists(path + BackupSuffix) {
		t.Fatal("backup created with no prior file")
	}

	// Second write: prior bytes preserved in the backup.
	if err := WriteFileAtomic(path, []byte("v2"), AtomicWriteOptions{CreateBackup: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bak, err := os.ReadFile(path + BackupSuffix)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(bak) != "v1" {
		t.Errorf("backup holds %q, want v1", bak)
	}

	// Third write overwrites the backup, never accumulates more.
	if err := WriteFileAtomic(path, []byte("v3"), AtomicWriteOptions{CreateBackup: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bak, _ = os.ReadFile(path + BackupSuffix)
	if string(bak) != "v2" {
		t.Errorf("backup holds %q, want v2", bak)
	}
}

func TestWriteFileAtomic_BackupFailureDoesNotAbortWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.json")

	if err := WriteFileAtomic(path, []byte("v1"), AtomicWriteOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Occupy the backup path with a directory so the copy fails.
	if err := os.Mkdir(path+BackupSuffix, 0o755); err != nil {
		t.Fatal(err)
	}

	var backupErr error
	err := WriteFileAtomic(path, []byte("v2"), AtomicWriteOptions{
		CreateBackup:  true,
		OnBackupError: func(e error) { backupErr = e },
	})
	if err != nil {
		t.Fatalf("primary write failed: %v", err)
	}
	if backupErr == nil {
		t.Error("expected backup error to be reported")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "v2" {
		t.Errorf("target holds %q, want v2", data)
	}
}

func TestSafeReadFile_NotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := SafeReadFile(filepath.Join(dir, "missing.json"), 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSafeReadFile_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.json")
	if err := os.WriteFile(path, make([]byte, 100), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := SafeReadFile(path, 99); !errors.Is(err, ErrSizeLimit) {
		t.Errorf("expected ErrSizeLimit, got %v", err)
	}
	if _, err := SafeReadFile(path, 100); err != nil {
		t.Errorf("read at exact limit failed: %v", err)
	}
	if _, err := SafeReadFile(path, 0); err != nil {
		t.Errorf("unbounded read failed: %v", err)
	}
}

func TestSafeDeleteFile_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.json")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := SafeDeleteFile(path); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := SafeDeleteFile(path); err != nil {
		t.Fatalf("second delete should succeed silently: %v", err)
	}
	if FileExists(path) {
		t.Error("file still exists")
	}
}

func TestChecksum_Format(t *testing.T) {
	digest := Checksum([]byte("session payload"))
	if len(digest) != 64 {
		t.Errorf("digest length %d, want 64", len(digest))
	}
	if digest != strings.ToLower(digest) {
		t.Error("digest is not lowercase")
	}
	if Checksum([]byte("session payload")) != digest {
		t.Error("digest is not deterministic")
	}
	if Checksum([]byte("session payloaD")) == digest {
		t.Error("digest unchanged for different content")
	}
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte(`{"id":"abc"}`)
	digest := Checksum(data)

	if !VerifyChecksum(data, digest) {
		t.Error("valid digest rejected")
	}
	if VerifyChecksum([]byte(`{"id":"abd"}`), digest) {
		t.Error("tampered data accepted")
	}
}

func TestCompressor_RoundTrip(t *testing.T) {
	c := NewCompressor(3)

	cases := []string{
		"",
		"hello",
		"日本語のテキスト with mixed ascii",
		strings.Repeat("pattern ", 500),
	}
	for _, in := range cases {
		out, err := c.Decompress(c.Compress([]byte(in)))
		if err != nil {
			t.Fatalf("decompress %q: %v", in, err)
		}
		if string(out) != in {
			t.Errorf("round trip mismatch for %q", in)
		}
	}
}

func TestCompressor_RepetitiveInputShrinks(t *testing.T) {
	c := NewCompressor(3)
	in := []byte(strings.Repeat(strings.Repeat("abcdefghij", 10), 10))

	out := c.Compress(in)
	if len(out) >= len(in) {
		t.Errorf("compressed size %d not smaller than input %d", len(out), len(in))
	}
}

func TestCompressor_RejectsGarbage(t *testing.T) {
	c := NewCompressor(3)
	if _, err := c.Decompress([]byte("not a zstd frame")); err == nil {
		t.Error("expected error decompressing garbage")
	}
}
