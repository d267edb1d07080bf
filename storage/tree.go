package storage

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

var ErrNotInTree = errors.New("target is not inside the granted tree")

// Tree is a directory the user has granted write access to. Fs is rooted at the
// top of the tree, so it knows nothing of where the tree lives. Paths are found by
// matching directory names against the target's path segments.
type Tree struct {
	Root string
	Fs   afero.Fs
}

func NewTree(fsys afero.Fs, root string) *Tree {
	return &Tree{Root: root, Fs: afero.NewBasePathFs(fsys, root)}
}

// Find returns the directory inside the tree that holds target.
func (t *Tree) Find(target string) (string, error) {
	segments := splitPath(filepath.Dir(target))

	// skip past the segments leading up to the tree itself, if we can spot them
	if base := filepath.Base(t.Root); base != "" && base != string(filepath.Separator) {
		if i := slices.Index(segments, base); i >= 0 {
			segments = segments[i+1:]
		}
	}

	dir := "/"
	for len(segments) > 0 {
		entries, err := afero.ReadDir(t.Fs, dir)
		if err != nil {
			return "", fmt.Errorf("read tree dir: %w", err)
		}

		next := -1
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if i := slices.Index(segments, e.Name()); i >= 0 {
				dir, next = path.Join(dir, e.Name()), i
				break
			}
		}
		if next < 0 {
			return "", fmt.Errorf("%w: %s", ErrNotInTree, target)
		}
		segments = segments[next+1:]
	}
	return dir, nil
}

// Write creates or truncates target inside the tree.
func (t *Tree) Write(target string, data []byte) error {
	dir, err := t.Find(target)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(t.Fs, path.Join(dir, filepath.Base(target)), data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(filepath.ToSlash(filepath.Clean(p)), "/") {
		if s != "" && s != "." {
			segments = append(segments, s)
		}
	}
	return segments
}
