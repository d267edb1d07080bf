package coverimage_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/coverfetch/coverimage"
)

func newPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buff bytes.Buffer
	require.NoError(t, png.Encode(&buff, img))
	return buff.Bytes()
}

func TestDecodeInvalid(t *testing.T) {
	t.Parallel()

	_, _, err := coverimage.Decode(nil)
	require.ErrorIs(t, err, coverimage.ErrInvalidImage)

	_, _, err = coverimage.Decode([]byte("<html>not an image</html>"))
	require.ErrorIs(t, err, coverimage.ErrInvalidImage)
}

func TestToJPEG(t *testing.T) {
	t.Parallel()

	data, err := coverimage.ToJPEG(newPNG(t, 40, 20), 0, 90)
	require.NoError(t, err)

	info, err := coverimage.Describe(data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, "image/jpeg", info.MIME)
	assert.Equal(t, 40, info.Width)
	assert.Equal(t, 20, info.Height)
}

func TestToPNGScaled(t *testing.T) {
	t.Parallel()

	data, err := coverimage.ToPNG(newPNG(t, 100, 50), 10)
	require.NoError(t, err)

	info, err := coverimage.Describe(data)
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 10, info.Width)
	assert.Equal(t, 5, info.Height)
}

func TestScaleNoop(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	assert.Same(t, img, coverimage.Scale(img, 0).(*image.RGBA))
	assert.Same(t, img, coverimage.Scale(img, 8).(*image.RGBA))
}
