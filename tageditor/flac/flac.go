// Package flac is a built in tag editor that embeds front covers in FLAC files.
package flac

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-flac/flacpicture/v2"
	"github.com/go-flac/go-flac/v2"
	"go.senan.xyz/coverfetch/tageditor"
)

func init() {
	tageditor.Register("flac", New)
}

var ErrUnsupportedFormat = errors.New("not a flac file")

type Editor struct{}

func New(string) (Editor, error) {
	return Editor{}, nil
}

// WriteCover replaces any front cover pictures in mediaPath with the image at coverPath.
func (Editor) WriteCover(ctx context.Context, mediaPath, coverPath string) error {
	if !strings.EqualFold(filepath.Ext(mediaPath), ".flac") {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaPath)
	}
	data, err := os.ReadFile(coverPath)
	if err != nil {
		return fmt.Errorf("read cover: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", data, http.DetectContentType(data))
	if err != nil {
		return fmt.Errorf("make picture: %w", err)
	}

	f, err := flac.ParseFile(mediaPath)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}
	defer f.Close()

	var meta []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if isFrontCover(block) {
			continue
		}
		meta = append(meta, block)
	}
	picBlock := pic.Marshal()
	f.Meta = append(meta, &picBlock)

	// the original is still being read from, so save beside it and swap
	tmp := mediaPath + ".coverfetch.tmp"
	if err := f.Save(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save flac: %w", err)
	}
	if err := os.Rename(tmp, mediaPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace flac: %w", err)
	}
	return nil
}

func (Editor) Available() bool { return true }

func (Editor) String() string { return "flac" }

func isFrontCover(block *flac.MetaDataBlock) bool {
	if block.Type != flac.Picture {
		return false
	}
	pic, err := flacpicture.ParseFromMetaDataBlock(*block)
	if err != nil {
		return false
	}
	return pic.PictureType == flacpicture.PictureTypeFrontCover
}

// FrontCover returns the embedded front cover of the FLAC file at path, if any.
func FrontCover(path string) ([]byte, string, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("parse flac: %w", err)
	}
	defer f.Close()

	for _, block := range f.Meta {
		if !isFrontCover(block) {
			continue
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(*block)
		if err != nil {
			continue
		}
		return pic.ImageData, pic.MIME, nil
	}
	return nil, "", nil
}
