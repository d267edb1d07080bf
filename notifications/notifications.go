// Package notifications tells the user how a fetch went, through any service shoutrrr
// can reach. URIs are mapped to the events they should hear about.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/containrrr/shoutrrr"
	shoutrrrtypes "github.com/containrrr/shoutrrr/pkg/types"
)

var (
	ErrInvalidURI   = errors.New("invalid URI")
	ErrUnknownEvent = errors.New("unknown event")
)

type Event string

const (
	CoverFound    Event = "cover-found"
	CoverNotFound Event = "cover-not-found"
	CoverWritten  Event = "cover-written"
	WriteError    Event = "write-error"
)

var Events = []Event{CoverFound, CoverNotFound, CoverWritten, WriteError}

func (e Event) IsValid() bool {
	switch e {
	case CoverFound, CoverNotFound, CoverWritten, WriteError:
		return true
	}
	return false
}

// Title is used as the notification title, eg "coverfetch: cover not found".
func (e Event) Title() string {
	return "coverfetch: " + strings.ReplaceAll(string(e), "-", " ")
}

type Mapping struct {
	Event Event
	URI   string
}

type Notifications struct {
	mappings []Mapping
}

// AddURI maps uri to event. The URI must name a service shoutrrr knows.
func (n *Notifications) AddURI(event Event, uri string) error {
	if !event.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if _, err := shoutrrr.CreateSender(uri); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidURI, uri, err)
	}
	n.mappings = append(n.mappings, Mapping{Event: event, URI: uri})
	return nil
}

// AddURIs maps uri to each of the comma separated events.
func (n *Notifications) AddURIs(events string, uri string) error {
	for _, e := range strings.Split(events, ",") {
		if err := n.AddURI(Event(strings.TrimSpace(e)), uri); err != nil {
			return err
		}
	}
	return nil
}

// Mappings returns the mappings in the order they were added.
func (n *Notifications) Mappings() []Mapping {
	if n == nil {
		return nil
	}
	return append([]Mapping(nil), n.mappings...)
}

func (n *Notifications) uris(event Event) []string {
	var uris []string
	for _, m := range n.mappings {
		if m.Event == event {
			uris = append(uris, m.URI)
		}
	}
	return uris
}

func (n *Notifications) Sendf(ctx context.Context, event Event, f string, a ...any) {
	n.Send(ctx, event, fmt.Sprintf(f, a...))
}

// Send message to every URI mapped to event. A nil Notifications sends nothing.
func (n *Notifications) Send(ctx context.Context, event Event, message string) {
	if n == nil {
		return
	}
	slog.DebugContext(ctx, "notification", "event", event, "message", message)

	uris := n.uris(event)
	if len(uris) == 0 {
		return
	}

	sender, err := shoutrrr.CreateSender(uris...)
	if err != nil {
		slog.ErrorContext(ctx, "create sender", "err", err)
		return
	}

	params := &shoutrrrtypes.Params{}
	params.SetTitle(event.Title())

	if err := errors.Join(sender.Send(message, params)...); err != nil {
		slog.ErrorContext(ctx, "sending notifications", "event", event, "err", err)
	}
}
