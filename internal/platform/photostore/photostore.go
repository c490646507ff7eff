// Package photostore keeps uploaded profile photos addressed by their content hash.
package photostore

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"academy-backend/internal/platform/metrics"
)

// Store puts photo bytes and hands back a reference the database can hold.
// Putting identical bytes twice yields the same reference without rewriting.
type Store interface {
	Put(data []byte, ext string) (ref string, err error)
}

// FS stores files as <sha1>.<ext> under Dir. Refs are RefPrefix + filename.
type FS struct {
	Dir       string
	RefPrefix string
}

func NewFS(dir, refPrefix string) *FS {
	return &FS{Dir: dir, RefPrefix: strings.TrimSuffix(refPrefix, "/") + "/"}
}

func (s *FS) Put(data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty photo")
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("invalid extension %q", ext)
	}

	sum := sha1.Sum(data)
	name := hex.EncodeToString(sum[:]) + "." + ext
	ref := path.Join(s.RefPrefix, name)
	full := filepath.Join(s.Dir, name)

	if _, err := os.Stat(full); err == nil {
		metrics.PhotosStored.WithLabelValues("deduplicated").Inc()
		return ref, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat photo: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	// write-then-rename so a concurrent reader never sees a half-written file
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp photo: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close photo: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}

	metrics.PhotosStored.WithLabelValues("written").Inc()
	return ref, nil
}
