package fileutil

import (
	"path/filepath"
	"strings"

	"github.com/rainycape/unidecode"
)

var safePathReplacer = strings.NewReplacer(
	"\x00", "",
	":", "",
	string(filepath.Separator), " ",
)

// SafePath makes path usable as a single ASCII file name.
func SafePath(path string) string {
	path = unidecode.Unidecode(path)
	path = safePathReplacer.Replace(path)
	path = strings.Join(strings.Fields(path), " ")
	return path
}

// CoverName is the file name for a cover saved outside of an album directory.
func CoverName(artist, album, ext string) string {
	var parts []string
	for _, p := range []string{artist, album} {
		if p = SafePath(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "cover")
	}
	return strings.Join(parts, " - ") + ext
}
