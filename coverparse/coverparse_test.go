package coverparse_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/coverfetch/coverparse"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		kind coverparse.Kind
	}{
		{"folder.jpg", coverparse.Front},
		{"Cover.PNG", coverparse.Front},
		{"AlbumArtSmall.jpg", coverparse.Front},
		{"AlbumArt_{5E3B2C31}_Large.jpg", coverparse.Front},
		{"scans/front 01.png", coverparse.Front},
		{"Linkin Park - Minutes to Midnight.jpg", coverparse.Other},
		{"00.png", coverparse.Other},
		{"back.jpg", coverparse.Back},
		{"back cover.jpg", coverparse.Back},
		{"artist.png", coverparse.Back},
		{"CD1.jpg", coverparse.Back},
		{"Booklet 03.jpg", coverparse.Back},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, coverparse.Classify(c.path), c.path)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	cases := [][]string{
		{"front.png", "scan.jpg", "back.png"},
		{"cover 1.jpg", "cover 2.jpg", "cover 10.jpg"},
		{"folder.png", "folder.jpg", "folder.webp", "folder.gif"},
		{"cover.jpg", "Linkin Park - Minutes to Midnight.png", "artist.jpg"},
		{"front 9 1.png", "front 10 2.png", "front 10 2.jpeg"},
	}

	r := rand.New(rand.NewPCG(1, 2))
	for _, expected := range cases {
		inp := slices.Clone(expected)
		r.Shuffle(len(inp), func(i, j int) {
			inp[i], inp[j] = inp[j], inp[i]
		})
		slices.SortFunc(inp, coverparse.Compare)
		assert.Equal(t, expected, inp)
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	for _, p := range []string{
		"/album/01.flac", "/album/back.jpg", "/album/folder.jpg", "/album/cover 2.png", "/album/scans/front.png",
		"/backonly/01.flac", "/backonly/back.jpg", "/backonly/artist.png",
		"/other/01.flac", "/other/minutes.jpg",
		"/empty/01.flac",
	} {
		require.NoError(t, afero.WriteFile(fsys, p, nil, 0o644))
	}

	cases := []struct {
		dir, expected string
	}{
		{"/album", "/album/folder.jpg"},
		{"/backonly", ""},
		{"/other", "/other/minutes.jpg"},
		{"/empty", ""},
	}
	for _, c := range cases {
		path, err := coverparse.Find(fsys, c.dir)
		require.NoError(t, err)
		assert.Equal(t, c.expected, path, c.dir)
	}

	_, err := coverparse.Find(fsys, "/missing")
	require.Error(t, err)
}

func TestIsCover(t *testing.T) {
	t.Parallel()

	assert.True(t, coverparse.IsCover("folder.JPG"))
	assert.True(t, coverparse.IsCover("cover.webp"))
	assert.False(t, coverparse.IsCover("01.flac"))
	assert.False(t, coverparse.IsCover("cover"))
}
