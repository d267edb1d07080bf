// Package plugin speaks the protocol music players use to drive coverfetch.
//
// A player writes one JSON request per line on stdin and reads one JSON response per
// line from stdout. A request either asks for a cover to be fetched for a track
// (launch), or carries artwork back from the tag editor plugin after it read a
// file's embedded picture (p2p-read-art). Covers chosen by the user are passed on to
// the tag editor with p2p-write-art.
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.senan.xyz/coverfetch/cover"
)

const (
	Name        = "Cover Fetch"
	Description = "Fetches album covers from the Cover Art Archive"
)

const (
	ActionLaunch   = "launch"
	ActionReadArt  = "p2p-read-art"
	ActionWriteArt = "p2p-write-art"
)

type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Actions     []string `json:"actions"`
}

func Describe(version string) Info {
	return Info{
		Name:        Name,
		Description: Description,
		Version:     version,
		Actions:     []string{ActionLaunch, ActionReadArt, ActionWriteArt},
	}
}

type Request struct {
	Action string `json:"action"`
	// URI of the media file the player is asking about.
	URI    string `json:"uri"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Title  string `json:"title,omitempty"`

	// P2P is set on requests relayed from another plugin, with P2PValue holding its payload.
	P2P      string `json:"p2p,omitempty"`
	P2PValue string `json:"p2p_value,omitempty"`
}

type Status string

const (
	StatusOK       Status = "ok"
	StatusNotFound Status = "not-found"
	StatusError    Status = "error"
)

type Response struct {
	Status         Status `json:"status"`
	Message        string `json:"message,omitempty"`
	CoverPath      string `json:"cover_path,omitempty"`
	ReleaseGroupID string `json:"release_group_id,omitempty"`
}

type Handler interface {
	// Fetch finds a cover for the track in req.
	Fetch(ctx context.Context, req Request) (Response, error)
	// ShowArt handles artwork read from tags by the tag editor, at the path in req.P2PValue.
	ShowArt(ctx context.Context, req Request) (Response, error)
}

var ErrUnknownAction = errors.New("unknown action")

// Serve handles requests from r until EOF, writing a response for each to w.
func Serve(ctx context.Context, r io.Reader, w io.Writer, h Handler) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req Request
		err := dec.Decode(&req)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			_ = enc.Encode(Response{Status: StatusError, Message: fmt.Sprintf("decode request: %v", err)})
			return fmt.Errorf("decode request: %w", err)
		}

		resp := dispatch(ctx, h, req)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
}

func dispatch(ctx context.Context, h Handler, req Request) Response {
	var resp Response
	var err error
	switch {
	case req.P2P == ActionReadArt:
		resp, err = h.ShowArt(ctx, req)
	case req.P2P != "":
		err = fmt.Errorf("%w: p2p %q", ErrUnknownAction, req.P2P)
	case req.Action == ActionLaunch || req.Action == "":
		resp, err = h.Fetch(ctx, req)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	switch {
	case errors.Is(err, cover.ErrCoverNotFound):
		slog.InfoContext(ctx, "cover not found", "uri", req.URI)
		return Response{Status: StatusNotFound, Message: err.Error()}
	case err != nil:
		slog.WarnContext(ctx, "handling request", "action", req.Action, "p2p", req.P2P, "err", err)
		return Response{Status: StatusError, Message: err.Error()}
	}
	if resp.Status == "" {
		resp.Status = StatusOK
	}
	return resp
}
