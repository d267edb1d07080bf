package researchlink_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/coverfetch/researchlink"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	var b researchlink.Builder
	require.NoError(t, b.AddSource("musicbrainz", `https://musicbrainz.org/search?type=release_group&query={{ query .Album }}+{{ query .Artist }}`))
	require.NoError(t, b.AddSource("discogs", `https://www.discogs.com/search/?q={{ query .Terms }}`))
	require.Error(t, b.AddSource("bad", `{{ .Artist `))
	require.ErrorIs(t, b.AddSource("discogs", `https://example.com`), researchlink.ErrDuplicateSource)

	links, err := b.Build(researchlink.Query{Artist: "Linkin Park", Album: "Minutes to Midnight"})
	require.NoError(t, err)
	assert.Equal(t, []researchlink.Link{
		{Name: "musicbrainz", URL: "https://musicbrainz.org/search?type=release_group&query=Minutes+to+Midnight+Linkin+Park"},
		{Name: "discogs", URL: "https://www.discogs.com/search/?q=Linkin+Park+Minutes+to+Midnight"},
	}, links)
	assert.Equal(t, []string{"musicbrainz", "discogs"}, b.Names())
}

func TestBuildError(t *testing.T) {
	t.Parallel()

	var b researchlink.Builder
	require.NoError(t, b.AddSource("broken", `{{ .Nope }}`))
	require.NoError(t, b.AddSource("relative", `/search/{{ path .Track }}`))
	require.NoError(t, b.AddSource("fine", `https://example.com/{{ path (lower .Track) }}`))

	links, err := b.Build(researchlink.Query{Track: "Totally Wired"})
	require.Error(t, err)
	require.ErrorIs(t, err, researchlink.ErrNotURL)
	assert.Equal(t, []researchlink.Link{{Name: "fine", URL: "https://example.com/totally%20wired"}}, links)
}

func TestTerms(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "The Fall Totally Wired", researchlink.Query{Artist: "The Fall", Track: " Totally Wired "}.Terms())
	assert.Empty(t, researchlink.Query{}.Terms())
}
