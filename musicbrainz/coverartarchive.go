package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.senan.xyz/coverfetch/clientutil"
)

var ErrNotFound = errors.New("cover not found")

// Thumbnail sizes served by the archive. SizeOriginal asks for the full image.
const (
	SizeOriginal = 0
	Size250      = 250
	Size500      = 500
	Size1200     = 1200
)

const (
	maxCoverSize = 64 << 20
	caaCacheSize = 32 << 20
)

type CAAClient struct {
	BaseURL   string
	RateLimit time.Duration
	UserAgent string

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (c *CAAClient) init() {
	c.initOnce.Do(func() {
		c.HTTPClient = clientutil.WrapClient(c.HTTPClient, clientutil.Chain(
			clientutil.WithCache(caaCacheSize),
			clientutil.WithUserAgent(c.UserAgent),
			clientutil.WithRateLimit(c.RateLimit),
		))
	})
}

// GetReleaseGroupFront downloads the front image of a release group. A missing
// image is reported as [ErrNotFound].
func (c *CAAClient) GetReleaseGroupFront(ctx context.Context, mbid string, size int) ([]byte, error) {
	c.init()

	if !IsMBID(mbid) {
		return nil, fmt.Errorf("invalid mbid %q", mbid)
	}

	front := "front"
	if size != SizeOriginal {
		front += "-" + strconv.Itoa(size)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinPath(c.BaseURL, "release-group", mbid, front), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("make caa request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrNotFound, StatusError(resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("caa returned non 200: %w", StatusError(resp.StatusCode))
	}

	cover, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize))
	if err != nil {
		return nil, fmt.Errorf("read cover: %w", err)
	}
	if len(cover) == 0 {
		return nil, ErrNotFound
	}
	return cover, nil
}
