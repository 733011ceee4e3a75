package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VamLeovr/rednote-mind-skills/internal/corpus"
)

func TestDiskSave(t *testing.T) {
	root := t.TempDir()
	d := NewDisk(root)

	rel, err := d.Save(context.Background(), "66a1b2c3", 2, []byte("jpegdata"), "jpeg")
	require.NoError(t, err)
	assert.Equal(t, "images/66a1b2c3/image_2.jpg", rel)

	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))

	_, err = os.Stat(filepath.Join(root, rel+".tmp"))
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestDiskSaveSanitizesID(t *testing.T) {
	d := NewDisk(t.TempDir())
	rel, err := d.Save(context.Background(), "../evil/id", 1, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, corpus.FormatOriginal)
	require.NoError(t, err)
	assert.Equal(t, "images/___evil_id/image_1.png", rel)
}

func TestDiskSaveRejectsBadInput(t *testing.T) {
	d := NewDisk(t.TempDir())

	_, err := d.Save(context.Background(), "", 1, []byte("x"), "jpeg")
	assert.Error(t, err)

	_, err = d.Save(context.Background(), "a", 0, []byte("x"), "jpeg")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Save(ctx, "a", 1, []byte("x"), "jpeg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtension(t *testing.T) {
	cases := []struct {
		format string
		data   []byte
		want   string
	}{
		{"jpeg", nil, "jpg"},
		{"image/jpeg", nil, "jpg"},
		{"image/png", nil, "png"},
		{"PNG", nil, "png"},
		{"webp", nil, "webp"},
		{corpus.FormatOriginal, []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpg"},
		{corpus.FormatOriginal, []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{corpus.FormatOriginal, []byte("GIF89a..."), "gif"},
		{corpus.FormatOriginal, []byte("???"), "bin"},
		{"tiff", nil, "bin"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Extension(tc.format, tc.data), tc.format)
	}
}
