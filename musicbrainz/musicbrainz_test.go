package musicbrainz

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMBID(t *testing.T) {
	t.Parallel()

	assert.False(t, IsMBID(""))
	assert.False(t, IsMBID("123"))
	assert.False(t, IsMBID("uhh dd720ac8-1c68-4484-abb7-0546413a55e3"))
	assert.False(t, IsMBID("urn:uuid:dd720ac8-1c68-4484-abb7-0546413a55e3"))
	assert.False(t, IsMBID("dd720ac8x1c68-4484-abb7-0546413a55e3"))
	assert.True(t, IsMBID("dd720ac8-1c68-4484-abb7-0546413a55e3"))
	assert.True(t, IsMBID("DD720AC8-1C68-4484-ABB7-0546413A55E3"))
}

func TestQueryString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		q    ReleaseGroupQuery
		exp  string
	}{
		{"empty", ReleaseGroupQuery{}, ""},
		{"album and artist", ReleaseGroupQuery{Artist: "Linkin Park", Album: "New Divide"}, `releasegroup:(new divide) AND artistname:(linkin park)`},
		{"track fallback", ReleaseGroupQuery{Artist: "The Fall", Track: "Totally Wired"}, `releasegroup:(totally wired) AND artistname:(the fall)`},
		{"album wins over track", ReleaseGroupQuery{Album: "Grotesque", Track: "Totally Wired"}, `releasegroup:(grotesque)`},
		{"escaped", ReleaseGroupQuery{Artist: "AC/DC", Album: "High Voltage!"}, `releasegroup:(high voltage\!) AND artistname:(ac\/dc)`},
		{"raw", ReleaseGroupQuery{Artist: "ignored", Raw: "rgid:123"}, `rgid:123`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.exp, c.q.String())
		})
	}
}

const rgID1 = "4741866d-c3a5-47ca-944d-732c2cc9e651"
const rgID2 = "dd720ac8-1c68-4484-abb7-0546413a55e3"

func TestSearchReleaseGroups(t *testing.T) {
	t.Parallel()

	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery, gotUA = r.URL.RawQuery, r.UserAgent()
		assert.Equal(t, "/ws/2/release-group", r.URL.Path)
		_, _ = io.WriteString(w, `{"release-groups": [
			{"id": "`+rgID1+`", "score": 100, "title": "Minutes to Midnight", "first-release-date": "2007-05-14",
			 "artist-credit": [{"name": "Linkin Park", "joinphrase": ""}]},
			{"id": "not-a-uuid", "title": "bad"},
			{"id": "`+rgID2+`", "score": 80, "title": "New Divide", "first-release-date": "2009"}
		]}`)
	}))
	t.Cleanup(srv.Close)

	c := MBClient{BaseURL: srv.URL + "/ws/2/", UserAgent: "coverfetch/test", HTTPClient: srv.Client()}
	groups, err := c.SearchReleaseGroups(context.Background(), ReleaseGroupQuery{Artist: "Linkin Park", Album: "New Divide"}, 3)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, rgID1, groups[0].ID)
	assert.Equal(t, 2007, groups[0].FirstReleaseDate.Year())
	assert.Equal(t, time.May, groups[0].FirstReleaseDate.Month())
	assert.Equal(t, "Linkin Park", ArtistsCreditString(groups[0].Artists))
	assert.Equal(t, rgID2, groups[1].ID)

	assert.Contains(t, gotQuery, "limit=3")
	assert.Contains(t, gotQuery, "fmt=json")
	assert.Equal(t, "coverfetch/test", gotUA)
}

func TestSearchReleaseGroupsMissingKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"created": "2017-01-01T00:00:00Z", "count": 0}`)
	}))
	t.Cleanup(srv.Close)

	c := MBClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.SearchReleaseGroups(context.Background(), ReleaseGroupQuery{Album: "x"}, 3)
	require.ErrorIs(t, err, ErrNoResults)
}

func TestSearchReleaseGroupsNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := MBClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.SearchReleaseGroups(context.Background(), ReleaseGroupQuery{Album: "x"}, 3)

	var se StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusError(http.StatusServiceUnavailable), se)
}

func TestSearchReleaseGroupsMalformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"release-groups": [`)
	}))
	t.Cleanup(srv.Close)

	c := MBClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := c.SearchReleaseGroups(context.Background(), ReleaseGroupQuery{Album: "x"}, 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResults)
}

func TestSearchReleaseGroupsEmptyQuery(t *testing.T) {
	t.Parallel()

	var c MBClient
	_, err := c.SearchReleaseGroups(context.Background(), ReleaseGroupQuery{}, 3)
	require.ErrorIs(t, err, ErrNoResults)
}

func TestSearchReleases(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/release", r.URL.Path)
		_, _ = io.WriteString(w, `{"releases": [{"id": "`+rgID2+`", "score": 97}, {"id": "", "score": 90}]}`)
	}))
	t.Cleanup(srv.Close)

	c := MBClient{BaseURL: srv.URL, HTTPClient: srv.Client()}
	keys, err := c.SearchReleases(context.Background(), "The Fall", "Grotesque", 5)
	require.NoError(t, err)
	assert.Equal(t, []ReleaseKey{{ID: rgID2, Score: 97}}, keys)
}

func TestGetReleaseGroupFront(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/release-group/" + rgID1 + "/front-500":
			_, _ = io.WriteString(w, "image bytes")
		case "/release-group/" + rgID2 + "/front":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c := CAAClient{BaseURL: srv.URL, HTTPClient: srv.Client()}

	data, err := c.GetReleaseGroupFront(context.Background(), rgID1, Size500)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)

	_, err = c.GetReleaseGroupFront(context.Background(), rgID2, Size500)
	require.ErrorIs(t, err, ErrNotFound)

	// empty body
	_, err = c.GetReleaseGroupFront(context.Background(), rgID2, SizeOriginal)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetReleaseGroupFront(context.Background(), "nope", Size500)
	require.Error(t, err)
}
