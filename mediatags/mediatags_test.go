package mediatags_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/coverfetch/mediatags"
)

const rgID = "4741866d-c3a5-47ca-944d-732c2cc9e651"

func id3Frame(id string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(id)
	_ = binary.Write(&b, binary.BigEndian, uint32(len(body)))
	b.Write([]byte{0, 0})
	b.Write(body)
	return b.Bytes()
}

func textFrame(id, text string) []byte {
	return id3Frame(id, append([]byte{0}, text...))
}

func userTextFrame(desc, text string) []byte {
	body := append([]byte{0}, desc...)
	body = append(body, 0)
	body = append(body, text...)
	return id3Frame("TXXX", body)
}

func pictureFrame(mime string, data []byte) []byte {
	body := append([]byte{0}, mime...)
	body = append(body, 0, 3, 0) // front cover, empty description
	body = append(body, data...)
	return id3Frame("APIC", body)
}

// writeMP3 writes an ID3v2.3 tag followed by some junk in place of audio
func writeMP3(t *testing.T, frames ...[]byte) string {
	t.Helper()

	var body bytes.Buffer
	for _, f := range frames {
		body.Write(f)
	}
	body.Write(make([]byte, 16)) // padding

	size := body.Len()
	var b bytes.Buffer
	b.WriteString("ID3")
	b.Write([]byte{3, 0, 0})
	b.Write([]byte{byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)})
	b.Write(body.Bytes())
	b.Write(bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x00}, 8))

	path := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func TestReadQuery(t *testing.T) {
	t.Parallel()

	path := writeMP3(t,
		textFrame("TPE1", "Linkin Park"),
		textFrame("TALB", "Minutes to Midnight"),
		textFrame("TIT2", "What I've Done"),
		userTextFrame("MusicBrainz Release Group Id", rgID),
	)

	q, err := mediatags.ReadQuery(path)
	require.NoError(t, err)
	assert.Equal(t, mediatags.Query{
		Artist:         "Linkin Park",
		Album:          "Minutes to Midnight",
		Title:          "What I've Done",
		ReleaseGroupID: rgID,
	}, q)
}

func TestReadQueryAlbumArtist(t *testing.T) {
	t.Parallel()

	path := writeMP3(t,
		textFrame("TPE2", "Various Artists"),
		textFrame("TALB", "Compilation"),
		userTextFrame("MusicBrainz Release Group Id", "not an id"),
	)

	q, err := mediatags.ReadQuery(path)
	require.NoError(t, err)
	assert.Equal(t, "Various Artists", q.Artist)
	assert.Empty(t, q.ReleaseGroupID)
}

func TestReadCover(t *testing.T) {
	t.Parallel()

	img := []byte("\x89PNG\r\n\x1a\nnot really")
	path := writeMP3(t, textFrame("TIT2", "x"), pictureFrame("image/png", img))

	data, mime, err := mediatags.ReadCover(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, img, data)
}

func TestReadCoverNone(t *testing.T) {
	t.Parallel()

	path := writeMP3(t, textFrame("TIT2", "x"))

	_, _, err := mediatags.ReadCover(path)
	require.ErrorIs(t, err, mediatags.ErrNoCover)
}

func TestReadMissing(t *testing.T) {
	t.Parallel()

	_, err := mediatags.ReadQuery(filepath.Join(t.TempDir(), "nope.mp3"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
