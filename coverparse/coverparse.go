// Package coverparse recognises cover images already sitting in an album directory, so
// that a folder cover isn't written where one exists.
package coverparse

import (
	"cmp"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

type Kind int

const (
	// Front art, named like "cover.jpg" or "folder.png".
	Front Kind = iota
	// Other images with no hint at what they show. An album dir with only
	// these most likely keeps its cover in one of them.
	Other
	// Back art, booklet scans, disc art and artist photos. Never a front cover.
	Back
)

func (k Kind) String() string {
	switch k {
	case Front:
		return "front"
	case Other:
		return "other"
	case Back:
		return "back"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// checked as word prefixes, so "albumartsmall" and "coverart" are front art
var (
	frontWords = []string{"front", "cover", "folder", "album"}
	backWords  = []string{"back", "artist", "booklet", "inlay", "inside", "tray", "disc", "cd", "matrix", "spine", "obi"}
)

var formats = map[string]int{
	".png":  0,
	".jpg":  1,
	".jpeg": 1,
	".webp": 2,
	".gif":  3,
	".bmp":  3,
}

func IsCover(path string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

var (
	wordsExpr   = regexp.MustCompile(`[a-z]+`)
	numbersExpr = regexp.MustCompile(`\d+`)
)

// Classify reports what the image at path looks like it shows, going by its name.
func Classify(path string) Kind {
	name := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	kind := Other
	for _, w := range wordsExpr.FindAllString(name, -1) {
		switch {
		case hasAnyPrefix(w, backWords):
			return Back
		case hasAnyPrefix(w, frontWords):
			kind = Front
		}
	}
	return kind
}

// Compare ranks two cover paths, best first, suitable for [slices.SortFunc]. Front art
// comes before other images and back art, then lower numbers (so "cover 1.jpg" beats
// "cover 2.jpg"), then PNG over JPEG over the rest.
func Compare(a, b string) int {
	return cmp.Or(
		cmp.Compare(Classify(a), Classify(b)),
		slices.Compare(numbers(a), numbers(b)),
		cmp.Compare(format(a), format(b)),
		strings.Compare(a, b),
	)
}

// Find returns the best cover image directly in dir that isn't back art, or "" if there
// is none.
func Find(fsys afero.Fs, dir string) (string, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsCover(e.Name()) || Classify(e.Name()) == Back {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", nil
	}
	return filepath.Join(dir, slices.MinFunc(names, Compare)), nil
}

func numbers(path string) []int {
	matches := numbersExpr.FindAllString(filepath.Base(path), -1)
	r := make([]int, len(matches))
	for i, m := range matches {
		r[i], _ = strconv.Atoi(m)
	}
	return r
}

func format(path string) int {
	if p, ok := formats[strings.ToLower(filepath.Ext(path))]; ok {
		return p
	}
	return len(formats)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
