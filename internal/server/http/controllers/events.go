package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rzbill/logpager/internal/api"
	"github.com/rzbill/logpager/internal/loader"
	"github.com/rzbill/logpager/internal/source/local"
	"github.com/rzbill/logpager/pkg/log"
)

// EventsController pages through streams and ingests new events.
type EventsController struct {
	src    *local.Source
	logger log.Logger
}

// NewEventsController creates a new events controller.
func NewEventsController(src *local.Source, logger log.Logger) *EventsController {
	return &EventsController{src: src, logger: logger}
}

// RegisterRoutes registers the event routes.
func (c *EventsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(api.PathEventsForward, c.handleForward)
	mux.HandleFunc(api.PathEventsBackward, c.handleBackward)
	mux.HandleFunc(api.PathEventsIngest, c.handleIngest)
}

// handleForward serves one forward page. Without a token the page starts at
// "start" (unix ms or RFC3339) or at the head; waitMs long-polls an empty page.
func (c *EventsController) handleForward(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	req := loader.ForwardRequest{Token: loader.Token(q.Get("token")), Filter: q.Get("filter")}
	start, ok := parseTimestamp(q.Get("start"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid start")
		return
	}
	end, ok := parseTimestamp(q.Get("end"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid end")
		return
	}
	if !start.IsZero() || !end.IsZero() {
		req.Range = &loader.TimeRange{Start: start, End: end}
	}

	page, err := c.src.FetchForwardWait(r.Context(), q.Get("stream"), req, parseWait(q.Get("waitMs")))
	if err != nil {
		c.fail(w, "forward", err)
		return
	}
	writeJSON(w, api.FromPage(page))
}

// handleBackward serves the page strictly older than token.
func (c *EventsController) handleBackward(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	page, err := c.src.FetchBackward(r.Context(), q.Get("stream"), loader.Token(q.Get("token")))
	if err != nil {
		c.fail(w, "backward", err)
		return
	}
	writeJSON(w, api.FromPage(page))
}

// handleIngest appends the request's events and returns their sequences.
func (c *EventsController) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req api.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "no events")
		return
	}
	entries := make([]loader.Entry, 0, len(req.Events))
	for _, e := range req.Events {
		ent := e.Entry()
		if e.Timestamp == 0 {
			// stamped on append
			ent.Timestamp = time.Time{}
		}
		entries = append(entries, ent)
	}
	seqs, err := c.src.Append(r.Context(), local.StreamID(req.Group, req.Stream), entries)
	if err != nil {
		c.fail(w, "ingest", err)
		return
	}
	writeAccepted(w, api.IngestResponse{Seqs: seqs})
}

func (c *EventsController) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		c.logger.Error("request failed", log.Str("op", op), log.Err(err))
	}
	writeError(w, status, err.Error())
}
