package cover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pborman/uuid"
	"go.senan.xyz/coverfetch/musicbrainz"
	caa "gopkg.in/mineo/gocaa.v1"
)

type ReleaseSearcher interface {
	SearchReleases(ctx context.Context, artist, album string, limit int) ([]musicbrainz.ReleaseKey, error)
}

// ReleaseFrontGetter is satisfied by *caa.CAAClient.
type ReleaseFrontGetter interface {
	GetReleaseFront(mbid uuid.UUID, size int) (caa.CoverArtImage, error)
}

// NewCAAClient returns a gocaa client pointed at baseURL, or the public archive if empty.
func NewCAAClient(userAgent, baseURL string) *caa.CAAClient {
	c := caa.NewCAAClient(userAgent)
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	return c
}

var _ Engine = (*ReleaseEngine)(nil)

// ReleaseEngine fetches covers of individual releases rather than release groups. Any
// release of an album is accepted, they generally share the same artwork.
type ReleaseEngine struct {
	Search ReleaseSearcher
	Front  ReleaseFrontGetter

	// MinScore drops search results the search API is less sure about.
	MinScore int
	Limit    int
}

func (e *ReleaseEngine) GetCover(ctx context.Context, q Query) (*Cover, error) {
	if q.Raw != "" {
		return nil, fmt.Errorf("release engine: %w: raw queries", errors.ErrUnsupported)
	}

	album := q.Album
	if album == "" {
		album = q.Track
	}
	limit := e.Limit
	if limit == 0 {
		limit = OrderedSearchLimit
	}

	keys, err := e.Search.SearchReleases(ctx, q.Artist, album, limit)
	if errors.Is(err, musicbrainz.ErrNoResults) {
		return nil, fmt.Errorf("%w: %w", ErrCoverNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("search releases: %w", err)
	}

	var tried int
	for _, k := range keys {
		if k.Score < e.MinScore {
			continue
		}
		mbid := caa.StringToUUID(k.ID)
		if mbid == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tried++
		img, err := releaseFront(e.Front, mbid)
		if err == nil && len(img.Data) > 0 {
			return &Cover{Data: img.Data, MBID: k.ID}, nil
		}

		var httpErr caa.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode != http.StatusNotFound {
			slog.WarnContext(ctx, "release cover request failed", "mbid", k.ID, "status", httpErr.StatusCode)
			continue
		}
		slog.DebugContext(ctx, "release has no cover", "mbid", k.ID, "err", err)
	}
	return nil, fmt.Errorf("%w: tried %d releases", ErrCoverNotFound, tried)
}

func releaseFront(c ReleaseFrontGetter, mbid uuid.UUID) (img caa.CoverArtImage, err error) {
	// gocaa dereferences a nil response when the transport fails
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("request release front: %v", r)
		}
	}()
	return c.GetReleaseFront(mbid, caa.ImageSize500)
}
