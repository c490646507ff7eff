package photostore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFS_PutIsContentAddressed(t *testing.T) {
	dir := t.TempDir()
	s := NewFS(dir, "uploads/students/")

	ref, err := s.Put([]byte("jpeg-bytes"), "jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "uploads/students/") || !strings.HasSuffix(ref, ".jpg") {
		t.Fatalf("ref = %q", ref)
	}
	name := strings.TrimPrefix(ref, "uploads/students/")
	if len(name) != 40+len(".jpg") {
		t.Errorf("file name %q is not <sha1>.jpg", name)
	}

	got, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil || string(got) != "jpeg-bytes" {
		t.Fatalf("stored content = %q, %v", got, err)
	}
}

func TestFS_PutDoesNotRewriteExisting(t *testing.T) {
	dir := t.TempDir()
	s := NewFS(dir, "uploads/students")

	ref1, err := s.Put([]byte("same"), ".PNG")
	if err != nil {
		t.Fatal(err)
	}
	full := filepath.Join(dir, filepath.Base(ref1))
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(full, old, old); err != nil {
		t.Fatal(err)
	}

	ref2, err := s.Put([]byte("same"), "png")
	if err != nil {
		t.Fatal(err)
	}
	if ref1 != ref2 {
		t.Errorf("refs differ: %q vs %q", ref1, ref2)
	}
	fi, err := os.Stat(full)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.ModTime().Equal(old) {
		t.Error("existing photo was rewritten")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (no temp leftovers)", len(entries))
	}
}

func TestFS_PutRejects(t *testing.T) {
	s := NewFS(t.TempDir(), "uploads")
	if _, err := s.Put(nil, "jpg"); err == nil {
		t.Error("empty data accepted")
	}
	if _, err := s.Put([]byte("x"), "../evil"); err == nil {
		t.Error("path in extension accepted")
	}
}
