package flac_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	goflac "github.com/go-flac/go-flac/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/coverfetch/tageditor"
	"go.senan.xyz/coverfetch/tageditor/flac"
)

// a stream with only an empty STREAMINFO block
func emptyFLAC() []byte {
	data := []byte("fLaC")
	data = append(data, 0x80, 0x00, 0x00, 34)
	data = append(data, make([]byte, 34)...)
	return data
}

func writePNG(t *testing.T, path string, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := range 4 {
		for y := range 4 {
			img.Set(x, y, c)
		}
	}
	var buff bytes.Buffer
	require.NoError(t, png.Encode(&buff, img))
	require.NoError(t, os.WriteFile(path, buff.Bytes(), 0o644))
	return buff.Bytes()
}

func TestWriteCover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	media := filepath.Join(dir, "01 track.flac")
	require.NoError(t, os.WriteFile(media, emptyFLAC(), 0o644))

	ed, err := tageditor.New("flac", "")
	require.NoError(t, err)
	assert.True(t, ed.Available())

	red := writePNG(t, filepath.Join(dir, "red.png"), color.RGBA{R: 255, A: 255})
	require.NoError(t, ed.WriteCover(context.Background(), media, filepath.Join(dir, "red.png")))

	data, mime, err := flac.FrontCover(media)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, red, data)

	// a second write replaces the first
	blue := writePNG(t, filepath.Join(dir, "blue.png"), color.RGBA{B: 255, A: 255})
	require.NoError(t, ed.WriteCover(context.Background(), media, filepath.Join(dir, "blue.png")))

	data, _, err = flac.FrontCover(media)
	require.NoError(t, err)
	assert.Equal(t, blue, data)

	f, err := goflac.ParseFile(media)
	require.NoError(t, err)
	defer f.Close()

	var pictures int
	for _, block := range f.Meta {
		if block.Type == goflac.Picture {
			pictures++
		}
	}
	assert.Equal(t, 1, pictures)

	_, err = os.Stat(media + ".coverfetch.tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteCoverNotFLAC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "cover.png"), color.Black)

	err := flac.Editor{}.WriteCover(context.Background(), filepath.Join(dir, "track.mp3"), filepath.Join(dir, "cover.png"))
	require.ErrorIs(t, err, flac.ErrUnsupportedFormat)
}

func TestFrontCoverNone(t *testing.T) {
	t.Parallel()

	media := filepath.Join(t.TempDir(), "a.flac")
	require.NoError(t, os.WriteFile(media, emptyFLAC(), 0o644))

	data, _, err := flac.FrontCover(media)
	require.NoError(t, err)
	assert.Nil(t, data)
}
