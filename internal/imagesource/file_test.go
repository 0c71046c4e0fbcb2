package imagesource

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 12, 7))))
	good := filepath.Join(dir, "screen.png")
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0644))

	img, err := LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Width)
	assert.Equal(t, 7, img.Height)
	assert.Equal(t, OriginFileUpload, img.Origin)

	_, err = LoadFile(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("hello"), 0644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrInvalidInputKind)
}
