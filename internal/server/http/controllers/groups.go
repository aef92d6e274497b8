package controllers

import (
	"net/http"

	"github.com/rzbill/logpager/internal/api"
	"github.com/rzbill/logpager/internal/runtime"
)

// GroupsController lists log groups and their streams.
type GroupsController struct {
	rt *runtime.Runtime
}

// NewGroupsController creates a new groups controller.
func NewGroupsController(rt *runtime.Runtime) *GroupsController {
	return &GroupsController{rt: rt}
}

// RegisterRoutes registers the listing routes.
func (c *GroupsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(api.PathGroups, c.handleGroups)
	mux.HandleFunc(api.PathStreams, c.handleStreams)
}

func (c *GroupsController) limit(r *http.Request) int {
	if n := parseLimit(r.URL.Query().Get("limit")); n > 0 {
		return n
	}
	if n := c.rt.Config().PageSize; n > 0 {
		return n
	}
	return defaultLimit
}

// handleGroups returns one page of groups after the "after" name.
func (c *GroupsController) handleGroups(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	metas, more, err := c.rt.Store().ListGroups(r.URL.Query().Get("after"), c.limit(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := api.GroupsResponse{Groups: make([]api.Group, 0, len(metas))}
	for _, m := range metas {
		resp.Groups = append(resp.Groups, api.Group{Name: m.Name, CreatedAtMs: m.CreatedAtMs})
	}
	if more && len(metas) > 0 {
		resp.Next = metas[len(metas)-1].Name
	}
	writeJSON(w, resp)
}

// handleStreams returns one page of the streams of a group.
func (c *GroupsController) handleStreams(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	group := q.Get("group")
	if group == "" {
		writeError(w, http.StatusBadRequest, "group is required")
		return
	}
	metas, more, err := c.rt.Store().ListStreams(group, q.Get("after"), c.limit(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := api.StreamsResponse{Streams: make([]api.Stream, 0, len(metas))}
	for _, m := range metas {
		resp.Streams = append(resp.Streams, api.Stream{Group: m.Group, Name: m.Name, CreatedAtMs: m.CreatedAtMs, LastEventMs: m.LastEventMs})
	}
	if more && len(metas) > 0 {
		resp.Next = metas[len(metas)-1].Name
	}
	writeJSON(w, resp)
}
