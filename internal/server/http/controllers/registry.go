package controllers

import (
	"net/http"

	"github.com/rzbill/logpager/internal/runtime"
	"github.com/rzbill/logpager/internal/source/local"
	"github.com/rzbill/logpager/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	groups  *GroupsController
	events  *EventsController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, src *local.Source, logger log.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		groups:  NewGroupsController(rt),
		events:  NewEventsController(src, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.groups.RegisterRoutes(mux)
	r.events.RegisterRoutes(mux)
}
