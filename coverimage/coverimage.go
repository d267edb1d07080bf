// Package coverimage validates and re-encodes downloaded artwork.
package coverimage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	// decoders for formats we may be handed by the archive or embedded tags
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
)

var ErrInvalidImage = errors.New("invalid cover image format")

// DefaultJPEGQuality matches what we use for folder covers.
const DefaultJPEGQuality = 90

// Decode parses data as an image. Anything the registered decoders can't read
// is reported as [ErrInvalidImage].
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrInvalidImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return img, format, nil
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buff bytes.Buffer
	if err := jpeg.Encode(&buff, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buff.Bytes(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buff bytes.Buffer
	if err := png.Encode(&buff, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buff.Bytes(), nil
}

// Scale shrinks img to maxWidth pixels wide, keeping its aspect ratio. Images that
// are already narrow enough, or a maxWidth <= 0, are returned untouched.
func Scale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	if maxWidth <= 0 || bounds.Dx() <= maxWidth {
		return img
	}
	height := bounds.Dy() * maxWidth / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// ToJPEG decodes data, optionally scales it, and re-encodes it as JPEG.
func ToJPEG(data []byte, maxWidth, quality int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(Scale(img, maxWidth), quality)
}

// ToPNG decodes data, optionally scales it, and re-encodes it as PNG.
func ToPNG(data []byte, maxWidth int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(Scale(img, maxWidth))
}

type Info struct {
	Format string
	MIME   string
	Width  int
	Height int
	Size   int
}

func (i Info) String() string {
	return fmt.Sprintf("%s %dx%d (%d bytes)", i.Format, i.Width, i.Height, i.Size)
}

// Describe reads just enough of data to report its format and dimensions.
func Describe(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return Info{
		Format: format,
		MIME:   http.DetectContentType(data),
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   len(data),
	}, nil
}
