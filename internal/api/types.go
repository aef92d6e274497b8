// Package api holds the JSON wire types shared by the HTTP server and the
// remote fetch client.
package api

import (
	"time"

	"github.com/rzbill/logpager/internal/loader"
)

// Route paths served by the HTTP server.
const (
	PathHealth         = "/v1/healthz"
	PathGroups         = "/v1/groups"
	PathStreams        = "/v1/groups/streams"
	PathEventsForward  = "/v1/events/forward"
	PathEventsBackward = "/v1/events/backward"
	PathEventsIngest   = "/v1/events/ingest"
	PathMetrics        = "/metrics"
)

// Event is one log event. Timestamp is unix milliseconds.
type Event struct {
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
	Source    string `json:"source,omitempty"`
}

// PageResponse is returned by the forward and backward event endpoints.
type PageResponse struct {
	Entries      []Event `json:"entries"`
	NextForward  string  `json:"nextForward,omitempty"`
	NextBackward string  `json:"nextBackward,omitempty"`
}

// Group is one log group in a listing.
type Group struct {
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// GroupsResponse is one page of groups. An empty Next ends the listing.
type GroupsResponse struct {
	Groups []Group `json:"groups"`
	Next   string  `json:"next,omitempty"`
}

// Stream is one stream in a listing.
type Stream struct {
	Group       string `json:"group"`
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
	LastEventMs int64  `json:"lastEventMs"`
}

// StreamsResponse is one page of streams.
type StreamsResponse struct {
	Streams []Stream `json:"streams"`
	Next    string   `json:"next,omitempty"`
}

// IngestRequest appends events to group/stream, creating both when absent.
type IngestRequest struct {
	Group  string  `json:"group"`
	Stream string  `json:"stream"`
	Events []Event `json:"events"`
}

// IngestResponse reports the sequences assigned to the ingested events.
type IngestResponse struct {
	Seqs []uint64 `json:"seqs"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromEntry converts a loader entry to its wire form.
func FromEntry(e loader.Entry) Event {
	return Event{Timestamp: e.Timestamp.UnixMilli(), Message: e.Message, Source: e.Source}
}

// Entry converts a wire event to a loader entry.
func (e Event) Entry() loader.Entry {
	return loader.Entry{Timestamp: time.UnixMilli(e.Timestamp), Message: e.Message, Source: e.Source}
}

// FromPage converts a loader page to its wire form.
func FromPage(p loader.Page) PageResponse {
	out := PageResponse{
		Entries:      make([]Event, 0, len(p.Entries)),
		NextForward:  string(p.NextForward),
		NextBackward: string(p.NextBackward),
	}
	for _, e := range p.Entries {
		out.Entries = append(out.Entries, FromEntry(e))
	}
	return out
}

// Page converts a wire page to a loader page.
func (p PageResponse) Page() loader.Page {
	out := loader.Page{
		NextForward:  loader.Token(p.NextForward),
		NextBackward: loader.Token(p.NextBackward),
	}
	if len(p.Entries) > 0 {
		out.Entries = make([]loader.Entry, 0, len(p.Entries))
		for _, e := range p.Entries {
			out.Entries = append(out.Entries, e.Entry())
		}
	}
	return out
}
