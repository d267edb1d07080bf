package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pborman/uuid"
	"go.senan.xyz/coverfetch/clientutil"
)

var ErrNoResults = errors.New("no results")

const mbCacheSize = 4 << 20

type StatusError int

func (se StatusError) Error() string {
	return strconv.Itoa(int(se))
}

type MBClient struct {
	BaseURL   string
	RateLimit time.Duration
	UserAgent string

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (c *MBClient) request(ctx context.Context, r *http.Request, dest any) error {
	c.initOnce.Do(func() {
		c.HTTPClient = clientutil.WrapClient(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(mbCacheSize),
			clientutil.WithHeader("Accept", "application/json"),
			clientutil.WithUserAgent(c.UserAgent),
			clientutil.WithRateLimit(c.RateLimit),
		))
	})

	r = r.WithContext(ctx)
	resp, err := c.HTTPClient.Do(r)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	// redirects are followed by the client, so anything else is an error
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("musicbrainz returned non 200: %w", StatusError(resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ReleaseGroupQuery describes what we know about the album we want a cover for.
// Raw, if set, is sent as the query verbatim.
type ReleaseGroupQuery struct {
	Artist string
	Album  string
	Track  string
	Raw    string
}

func (q ReleaseGroupQuery) String() string {
	if q.Raw != "" {
		return q.Raw
	}

	// https://musicbrainz.org/doc/MusicBrainz_API/Search#Release_Group
	var params []string
	switch {
	case q.Album != "":
		params = append(params, field("releasegroup", strings.ToLower(q.Album)))
	case q.Track != "":
		// singles are usually named after their track
		params = append(params, field("releasegroup", strings.ToLower(q.Track)))
	}
	if q.Artist != "" {
		params = append(params, field("artistname", strings.ToLower(q.Artist)))
	}
	return strings.Join(params, " AND ")
}

// SearchReleaseGroups returns up to limit release groups matching q, in the order the
// search API ranks them.
func (c *MBClient) SearchReleaseGroups(ctx context.Context, q ReleaseGroupQuery, limit int) ([]ReleaseGroup, error) {
	groups, err := search(ctx, c, "release-group", q.String(), limit, func(rg ReleaseGroup) string { return rg.ID })
	if err != nil {
		return nil, fmt.Errorf("request release groups: %w", err)
	}
	return groups, nil
}

type ReleaseKey struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// SearchReleases returns release keys for an artist and album, best match first.
func (c *MBClient) SearchReleases(ctx context.Context, artist, album string, limit int) ([]ReleaseKey, error) {
	var params []string
	if album != "" {
		params = append(params, field("release", strings.ToLower(album)))
	}
	if artist != "" {
		params = append(params, field("artist", strings.ToLower(artist)))
	}
	keys, err := search(ctx, c, "release", strings.Join(params, " AND "), limit, func(r ReleaseKey) string { return r.ID })
	if err != nil {
		return nil, fmt.Errorf("request releases: %w", err)
	}
	return keys, nil
}

// search runs a query against an entity's search endpoint. Results come back under the
// pluralised entity name, and those without a valid MBID are dropped.
func search[T any](ctx context.Context, c *MBClient, entity, query string, limit int, id func(T) string) ([]T, error) {
	if query == "" {
		return nil, ErrNoResults
	}

	u, err := url.Parse(joinPath(c.BaseURL, entity))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u.RawQuery = url.Values{
		"query": {query},
		"limit": {strconv.Itoa(limit)},
		"fmt":   {"json"},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("make request: %w", err)
	}

	var resp map[string]json.RawMessage
	if err := c.request(ctx, req, &resp); err != nil {
		return nil, err
	}
	var all []T
	if raw, ok := resp[entity+"s"]; ok {
		if err := json.Unmarshal(raw, &all); err != nil {
			return nil, fmt.Errorf("decode %ss: %w", entity, err)
		}
	}

	var results []T
	for _, r := range all {
		if IsMBID(id(r)) {
			results = append(results, r)
		}
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

type ArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     Artist `json:"artist"`
}

type Artist struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SortName       string `json:"sort-name"`
	Disambiguation string `json:"disambiguation"`
}

type ReleaseGroup struct {
	ID               string         `json:"id"`
	Score            int            `json:"score"`
	Title            string         `json:"title"`
	PrimaryType      string         `json:"primary-type"`
	FirstReleaseDate AnyTime        `json:"first-release-date"`
	Disambiguation   string         `json:"disambiguation"`
	Artists          []ArtistCredit `json:"artist-credit"`
}

func ArtistsCreditString(credits []ArtistCredit) string {
	var sb strings.Builder
	for _, c := range credits {
		fmt.Fprintf(&sb, "%s%s", c.Name, c.JoinPhrase)
	}
	return sb.String()
}

type AnyTime struct {
	time.Time
}

func (at *AnyTime) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		return nil
	}
	// partial dates like "2009" or "2009-06" are common
	for _, layout := range []string{"2006", "2006-01"} {
		if t, err := time.Parse(layout, str); err == nil {
			at.Time = t
			return nil
		}
	}
	var err error
	at.Time, err = dateparse.ParseAny(str)
	if err != nil {
		return fmt.Errorf("parse any: %w", err)
	}
	return nil
}

// IsMBID reports whether s is a MusicBrainz identifier, a UUID in its plain 36 character form.
func IsMBID(s string) bool {
	return len(s) == 36 && uuid.Parse(s) != nil
}

// https://lucene.apache.org/core/7_7_2/queryparser/org/apache/lucene/queryparser/classic/package-summary.html#Escaping_Special_Characters
var escapeLucene *strings.Replacer

func init() {
	var pairs []string
	for _, c := range []string{`&&`, `||`, `+`, `-`, `!`, `(`, `)`, `{`, `}`, `[`, `]`, `^`, `"`, `~`, `*`, `?`, `:`, `\`, `/`} {
		pairs = append(pairs, c, `\`+c)
	}
	escapeLucene = strings.NewReplacer(pairs...)
}

func field(k string, v any) string {
	vstr := fmt.Sprint(v)
	vstr = escapeLucene.Replace(vstr)
	return fmt.Sprintf("%s:(%v)", k, vstr)
}

func joinPath(base string, p ...string) string {
	r, _ := url.JoinPath(base, p...)
	return r
}
