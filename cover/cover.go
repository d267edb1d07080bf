// Package cover finds front cover artwork for an album.
//
// The release group engine works in two steps. A MusicBrainz release group search
// yields a short list of candidate identifiers, and then the Cover Art Archive is
// asked for each candidate's front image until one of them has it. Candidates can
// be walked in the order the search ranks them, or sampled at random so that
// repeated fetches can turn up a different cover.
package cover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"go.senan.xyz/coverfetch/musicbrainz"
)

var ErrCoverNotFound = errors.New("cover not found")

type Strategy int

const (
	// Ordered tries candidates in search rank order.
	Ordered Strategy = iota
	// Random draws candidates at random from a wider search.
	Random
)

func (s Strategy) String() string {
	switch s {
	case Ordered:
		return "ordered"
	case Random:
		return "random"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "ordered", "":
		return Ordered, nil
	case "random":
		return Random, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

const (
	OrderedSearchLimit = 3
	RandomSearchLimit  = 25
	MaxRandomDraws     = 15
)

type Query struct {
	Artist string
	Album  string
	Track  string

	// Raw is sent to the search API as is, ignoring the fields above.
	Raw string

	// ReleaseGroupID is tried before searching, if known.
	ReleaseGroupID string
}

func (q Query) IsZero() bool {
	return q.Artist == "" && q.Album == "" && q.Track == "" && q.Raw == "" && q.ReleaseGroupID == ""
}

type Cover struct {
	Data []byte

	// MBID of the release group or release the image belongs to.
	MBID string
}

type Engine interface {
	GetCover(ctx context.Context, q Query) (*Cover, error)
}

// ByName looks up the cover of an album by artist and title. The track title stands
// in for a missing album title.
func ByName(ctx context.Context, e Engine, artist, album, track string) (*Cover, error) {
	return e.GetCover(ctx, Query{Artist: artist, Album: album, Track: track})
}

// ByQuery looks up a cover with a search query written by the user.
func ByQuery(ctx context.Context, e Engine, query string) (*Cover, error) {
	return e.GetCover(ctx, Query{Raw: query})
}

type ReleaseGroupSearcher interface {
	SearchReleaseGroups(ctx context.Context, q musicbrainz.ReleaseGroupQuery, limit int) ([]musicbrainz.ReleaseGroup, error)
}

type ReleaseGroupFrontGetter interface {
	GetReleaseGroupFront(ctx context.Context, mbid string, size int) ([]byte, error)
}

var _ Engine = (*ArchiveEngine)(nil)

// ArchiveEngine fetches release group covers from the Cover Art Archive.
type ArchiveEngine struct {
	Search ReleaseGroupSearcher
	Front  ReleaseGroupFrontGetter

	Strategy Strategy
	Size     int

	// MinSimilarity drops candidates whose title is less similar than this to
	// the requested album. Zero disables the check.
	MinSimilarity float64

	// Rand is used by the Random strategy, the global source if nil.
	Rand *rand.Rand
}

func (e *ArchiveEngine) GetCover(ctx context.Context, q Query) (*Cover, error) {
	if q.ReleaseGroupID != "" {
		cov, err := e.fetch(ctx, q.ReleaseGroupID)
		switch {
		case err == nil:
			return cov, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		slog.DebugContext(ctx, "tagged release group has no cover, searching", "mbid", q.ReleaseGroupID, "err", err)
	}

	groups, err := e.Candidates(ctx, q)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, rg := range groups {
		ids = append(ids, rg.ID)
	}

	switch e.Strategy {
	case Random:
		return e.firstRandom(ctx, ids)
	default:
		return e.firstOrdered(ctx, ids)
	}
}

// Candidates searches for release groups matching q, filtered by MinSimilarity.
func (e *ArchiveEngine) Candidates(ctx context.Context, q Query) ([]musicbrainz.ReleaseGroup, error) {
	limit := OrderedSearchLimit
	if e.Strategy == Random {
		limit = RandomSearchLimit
	}

	rgq := musicbrainz.ReleaseGroupQuery{Artist: q.Artist, Album: q.Album, Track: q.Track, Raw: q.Raw}
	groups, err := e.Search.SearchReleaseGroups(ctx, rgq, limit)
	if errors.Is(err, musicbrainz.ErrNoResults) {
		return nil, fmt.Errorf("%w: %w", ErrCoverNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("search release groups: %w", err)
	}

	title := q.Album
	if title == "" {
		title = q.Track
	}
	if e.MinSimilarity > 0 && title != "" && q.Raw == "" {
		groups = filterSimilar(groups, title, e.MinSimilarity)
		if len(groups) == 0 {
			return nil, fmt.Errorf("%w: no candidates similar to %q", ErrCoverNotFound, title)
		}
	}
	return groups, nil
}

func (e *ArchiveEngine) firstOrdered(ctx context.Context, ids []string) (*Cover, error) {
	for _, id := range ids {
		cov, err := e.fetch(ctx, id)
		if err == nil {
			return cov, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.DebugContext(ctx, "candidate has no cover", "mbid", id, "err", err)
	}
	return nil, fmt.Errorf("%w: tried %d candidates", ErrCoverNotFound, len(ids))
}

func (e *ArchiveEngine) firstRandom(ctx context.Context, ids []string) (*Cover, error) {
	intN := rand.IntN
	if e.Rand != nil {
		intN = e.Rand.IntN
	}

	tried := make(map[int]struct{}, len(ids))
	for draw := 0; draw < MaxRandomDraws && len(tried) < len(ids); draw++ {
		i := intN(len(ids))
		if _, ok := tried[i]; ok {
			continue
		}
		tried[i] = struct{}{}

		cov, err := e.fetch(ctx, ids[i])
		if err == nil {
			return cov, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.DebugContext(ctx, "candidate has no cover", "mbid", ids[i], "err", err)
	}
	return nil, fmt.Errorf("%w: tried %d of %d candidates", ErrCoverNotFound, len(tried), len(ids))
}

func (e *ArchiveEngine) fetch(ctx context.Context, mbid string) (*Cover, error) {
	size := e.Size
	if size == 0 {
		size = musicbrainz.Size500
	}
	data, err := e.Front.GetReleaseGroupFront(ctx, mbid, size)
	if err != nil {
		return nil, err
	}
	return &Cover{Data: data, MBID: mbid}, nil
}

var similarity = metrics.NewJaroWinkler()

func filterSimilar(groups []musicbrainz.ReleaseGroup, title string, min float64) []musicbrainz.ReleaseGroup {
	title = strings.ToLower(title)

	var out []musicbrainz.ReleaseGroup
	for _, rg := range groups {
		if strutil.Similarity(title, strings.ToLower(rg.Title), similarity) >= min {
			out = append(out, rg)
		}
	}
	return out
}
