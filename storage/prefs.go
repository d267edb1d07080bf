package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// Prefs are settings that outlive a single run. A granted tree stays granted.
type Prefs struct {
	TreeRoot string `yaml:"tree root,omitempty"`
}

// LoadPrefs reads prefs from path. A missing file is the same as empty prefs.
func LoadPrefs(fsys afero.Fs, path string) (*Prefs, error) {
	f, err := fsys.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Prefs{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open prefs: %w", err)
	}
	defer f.Close()

	var p Prefs
	if err := yaml.NewDecoder(f).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse prefs: %w", err)
	}
	return &p, nil
}

func (p *Prefs) Save(fsys afero.Fs, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("make prefs dir: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// GrantTree records dir as the document tree to write through when direct writes are denied.
func (p *Prefs) GrantTree(fsys afero.Fs, dir string) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("abs: %w", err)
	}
	info, err := fsys.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat tree: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("tree %q is not a directory", dir)
	}
	p.TreeRoot = dir
	return nil
}

// Tree returns the granted tree, or nil if none was granted.
func (p *Prefs) Tree(fsys afero.Fs) *Tree {
	if p.TreeRoot == "" {
		return nil
	}
	return NewTree(fsys, p.TreeRoot)
}
