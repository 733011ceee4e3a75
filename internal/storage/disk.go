// Package storage persists compressed note images on local disk.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/VamLeovr/rednote-mind-skills/internal/batch"
	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Disk writes images under <root>/images/<noteID>/image_<n>.<ext>.
type Disk struct {
	root string
}

var _ batch.Storage = (*Disk)(nil)

// NewDisk creates a store rooted at root. The directory is created lazily.
func NewDisk(root string) *Disk {
	return &Disk{root: root}
}

// Root returns the storage root.
func (d *Disk) Root() string {
	return d.root
}

// Save writes data and returns its path relative to the root.
func (d *Disk) Save(ctx context.Context, noteID string, index int, data []byte, format string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if index < 1 {
		return "", fmt.Errorf("storage: image index %d out of range", index)
	}
	id := unsafeChars.ReplaceAllString(noteID, "_")
	if id == "" {
		return "", fmt.Errorf("storage: empty note id")
	}

	rel := filepath.Join("images", id, fmt.Sprintf("image_%d.%s", index, Extension(format, data)))
	abs := filepath.Join(d.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp := abs + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("storage: rename %s: %w", rel, err)
	}
	return filepath.ToSlash(rel), nil
}

// Extension picks a file extension from a format name or mime type.
// Passed-through originals are sniffed from their magic bytes.
func Extension(format string, data []byte) string {
	switch strings.TrimPrefix(strings.ToLower(format), "image/") {
	case "jpeg", "jpg":
		return "jpg"
	case "png":
		return "png"
	case "webp":
		return "webp"
	case "gif":
		return "gif"
	case corpus.FormatOriginal, "":
		return sniff(data)
	default:
		return "bin"
	}
}

func sniff(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpg"
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "png"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return "gif"
	}
	return "bin"
}
