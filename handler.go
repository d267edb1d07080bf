package coverfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.senan.xyz/coverfetch/cover"
	"go.senan.xyz/coverfetch/plugin"
)

var _ plugin.Handler = (*PluginHandler)(nil)

// PluginHandler answers player requests with a Fetcher.
type PluginHandler struct {
	*Fetcher
	Write WriteMode
}

func (h *PluginHandler) Fetch(ctx context.Context, req plugin.Request) (plugin.Response, error) {
	q := cover.Query{Artist: req.Artist, Album: req.Album, Track: req.Title}
	if req.URI != "" {
		tagq, err := QueryFile(h.Fs, req.URI)
		if err != nil && q.IsZero() {
			return plugin.Response{}, fmt.Errorf("read tags: %w", err)
		}
		q = MergeQuery(q, tagq)
	}

	cov, info, err := h.Fetcher.Fetch(ctx, q)
	if err != nil {
		return plugin.Response{}, err
	}

	path, err := h.Stage(cov.Data)
	if err != nil {
		return plugin.Response{}, fmt.Errorf("stage: %w", err)
	}
	resp := plugin.Response{CoverPath: path, ReleaseGroupID: cov.MBID, Message: info.String()}
	if h.Write != WriteNone && h.Write != "" {
		resp.Message = fmt.Sprintf("%s, %s", info, h.write(ctx, req.URI, cov.Data, path))
	}
	return resp, nil
}

// write puts a fetched cover where the handler is set to and describes how that went. The
// cover was found either way, so a failed write doesn't fail the request.
func (h *PluginHandler) write(ctx context.Context, mediaPath string, data []byte, staged string) string {
	if mediaPath == "" {
		return "not written, no uri in request"
	}

	var err error
	switch h.Write {
	case WriteFolder:
		var written string
		written, err = h.WriteFolder(ctx, mediaPath, data)
		if errors.Is(err, ErrCoverExists) {
			return "folder already has a cover at " + written
		}
		if err == nil {
			return "written to " + written
		}
	case WriteTag:
		if err = h.SendStaged(ctx, mediaPath, staged); err == nil {
			return "sent to the tag editor"
		}
	default:
		err = fmt.Errorf("%w %q", ErrUnknownWriteMode, h.Write)
	}

	slog.WarnContext(ctx, "writing cover", "media", mediaPath, "mode", h.Write, "err", err)
	return "not written: " + err.Error()
}

func (h *PluginHandler) ShowArt(ctx context.Context, req plugin.Request) (plugin.Response, error) {
	if req.P2PValue == "" {
		return plugin.Response{}, fmt.Errorf("no artwork path")
	}
	_, info, err := h.ReadArt(req.P2PValue)
	if err != nil {
		return plugin.Response{}, fmt.Errorf("read art: %w", err)
	}
	return plugin.Response{CoverPath: req.P2PValue, Message: info.String()}, nil
}

// MergeQuery fills the empty fields of q from tags.
func MergeQuery(q, tags cover.Query) cover.Query {
	if q.Artist == "" {
		q.Artist = tags.Artist
	}
	if q.Album == "" {
		q.Album = tags.Album
	}
	if q.Track == "" {
		q.Track = tags.Track
	}
	if q.ReleaseGroupID == "" {
		q.ReleaseGroupID = tags.ReleaseGroupID
	}
	return q
}
