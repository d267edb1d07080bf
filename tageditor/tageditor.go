// Package tageditor hands fetched covers to programs that embed them in media tags.
package tageditor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/pborman/uuid"
	"github.com/spf13/afero"
	"go.senan.xyz/coverfetch/coverimage"
)

var ErrNotInstalled = errors.New("tag editor is not installed")

// Editor embeds a cover image file into a media file's tags.
type Editor interface {
	WriteCover(ctx context.Context, mediaPath, coverPath string) error
	// Available reports whether the editor can be used at all.
	Available() bool
}

var registry = map[string]func(conf string) (Editor, error){}
var registryMu sync.Mutex

// Register adds an editor to the global editor registry
func Register[E Editor](name string, ed func(conf string) (E, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[name]; ok {
		panic(fmt.Errorf("tag editor %q already registered", name))
	}

	registry[name] = func(conf string) (Editor, error) {
		return ed(conf)
	}
}

// New initialises a new editor from the registry with the provided conf.
func New(name string, conf string) (Editor, error) {
	registryMu.Lock()
	newEditor, ok := registry[name]
	registryMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("tag editor not found")
	}
	return newEditor(conf)
}

const stageDir = "covers"

// Stage writes data to a fresh file under cacheDir, removing covers staged before it.
func Stage(fsys afero.Fs, cacheDir string, data []byte) (string, error) {
	dir := filepath.Join(cacheDir, stageDir)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("make stage dir: %w", err)
	}

	old, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("read stage dir: %w", err)
	}
	for _, f := range old {
		if err := fsys.RemoveAll(filepath.Join(dir, f.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("remove old cover: %w", err)
		}
	}

	path := filepath.Join(dir, uuid.New()+".png")
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write cover: %w", err)
	}
	return path, nil
}

// Handoff re-encodes data as PNG, stages it, and asks ed to embed it into mediaPath.
// It returns the path of the staged file.
func Handoff(ctx context.Context, ed Editor, fsys afero.Fs, cacheDir string, data []byte, mediaPath string) (string, error) {
	if !ed.Available() {
		return "", ErrNotInstalled
	}

	pngData, err := coverimage.ToPNG(data, 0)
	if err != nil {
		return "", err
	}
	path, err := Stage(fsys, cacheDir, pngData)
	if err != nil {
		return "", fmt.Errorf("stage: %w", err)
	}
	if err := Send(ctx, ed, mediaPath, path); err != nil {
		return "", err
	}
	return path, nil
}

// Send asks ed to embed the cover already staged at coverPath into mediaPath.
func Send(ctx context.Context, ed Editor, mediaPath, coverPath string) error {
	if !ed.Available() {
		return ErrNotInstalled
	}
	if err := ed.WriteCover(ctx, mediaPath, coverPath); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}
	return nil
}
