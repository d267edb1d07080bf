// Package mediatags reads what we need to know about a media file from its tags.
package mediatags

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
	"go.senan.xyz/coverfetch/musicbrainz"
	"golang.org/x/text/unicode/norm"
)

var ErrNoCover = errors.New("no embedded cover")

type Query struct {
	Artist         string
	Album          string
	Title          string
	ReleaseGroupID string
}

// ReadQuery reads the artist, album, and title of the media file at path. The album
// artist stands in for a missing artist.
func ReadQuery(path string) (Query, error) {
	m, err := read(path)
	if err != nil {
		return Query{}, err
	}

	artist := m.Artist()
	if artist == "" {
		artist = m.AlbumArtist()
	}
	q := Query{
		Artist:         normalise(artist),
		Album:          normalise(m.Album()),
		Title:          normalise(m.Title()),
		ReleaseGroupID: releaseGroupID(m.Raw()),
	}
	return q, nil
}

// ReadCover returns the embedded picture of the media file at path and its MIME type.
func ReadCover(path string) ([]byte, string, error) {
	m, err := read(path)
	if err != nil {
		return nil, "", err
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, "", ErrNoCover
	}
	return pic.Data, pic.MIMEType, nil
}

func read(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	return m, nil
}

func normalise(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// keys differ per format, "MUSICBRAINZ_RELEASEGROUPID" in vorbis comments and
// "MusicBrainz Release Group Id" in ID3 user text frames for example
const releaseGroupKey = "musicbrainzreleasegroupid"

func releaseGroupID(raw map[string]any) string {
	for k, v := range raw {
		var key, value string
		switch v := v.(type) {
		case string:
			key, value = k, v
		case *tag.Comm:
			key, value = v.Description, v.Text
		default:
			continue
		}
		if normKey(key) != releaseGroupKey {
			continue
		}
		if value = strings.TrimSpace(value); musicbrainz.IsMBID(value) {
			return strings.ToLower(value)
		}
	}
	return ""
}

var keyReplacer = strings.NewReplacer(" ", "", "_", "", "-", "")

func normKey(k string) string {
	if i := strings.LastIndex(k, ":"); i >= 0 {
		k = k[i+1:]
	}
	return strings.ToLower(keyReplacer.Replace(k))
}
