// Package storage writes cover images next to media files.
//
// Writes go straight to the filesystem first. Where that is denied, and the user
// has granted a document tree, the write is retried through the tree instead.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
)

var (
	ErrMediaMissing     = errors.New("media file missing")
	ErrTreeAccessNeeded = errors.New("write access denied, grant a document tree first")
)

const DefaultCoverName = "folder.jpg"

// FolderTarget returns the path of the cover file for mediaPath. The media file must exist.
// A directory is taken to be the album directory itself.
func FolderTarget(fsys afero.Fs, mediaPath, name string) (string, error) {
	if name == "" {
		name = DefaultCoverName
	}
	info, err := fsys.Stat(mediaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrMediaMissing, mediaPath)
	}
	if err != nil {
		return "", fmt.Errorf("stat media: %w", err)
	}
	if info.IsDir() {
		return filepath.Join(mediaPath, name), nil
	}
	return filepath.Join(filepath.Dir(mediaPath), name), nil
}

type Method string

const (
	MethodDirect Method = "direct"
	MethodTree   Method = "tree"
)

type Writer struct {
	Direct afero.Fs
	Tree   *Tree
}

// Write writes data to target, overwriting anything there.
func (w *Writer) Write(target string, data []byte) (Method, error) {
	err := afero.WriteFile(w.Direct, target, data, 0o644)
	if err == nil {
		return MethodDirect, nil
	}
	if !writeDenied(err) {
		return "", fmt.Errorf("write file: %w", err)
	}
	if w.Tree == nil {
		return "", fmt.Errorf("%w: %w", ErrTreeAccessNeeded, err)
	}

	slog.Debug("direct write denied, using document tree", "target", target, "tree", w.Tree.Root)

	if err := w.Tree.Write(target, data); err != nil {
		return "", fmt.Errorf("write through tree: %w", err)
	}
	return MethodTree, nil
}

// writeDenied reports whether err means the direct path can't be written, either for lack of
// permission or because the mount is read-only. A granted tree may reach the same files
// through another mount.
func writeDenied(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EROFS)
}
