package handlers

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
)

type EventLister interface {
	ListAll(ctx context.Context) ([]events.Event, error)
}

type EventsHandler struct {
	Service EventLister
	Env     string
}

func NewEventsHandler(service EventLister, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

// List handles GET /api/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.Env, err, errorMessages{})
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}
