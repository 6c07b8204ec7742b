package handlers

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/nko-directory/internal/api/middleware"
	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
)

// ListingService is the slice of nko.Service exposed over HTTP. Moderation
// is deliberately absent.
type ListingService interface {
	ListApproved(ctx context.Context) ([]nko.Listing, error)
	Submit(ctx context.Context, user *users.User, input nko.SubmitInput) (int64, error)
}

type NKOHandler struct {
	Service ListingService
	Env     string
}

func NewNKOHandler(service ListingService, env string) *NKOHandler {
	return &NKOHandler{Service: service, Env: env}
}

type submitResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

var nkoMessages = errorMessages{validation: msgListingFieldsRequired, unauthenticated: msgAuthRequired}

// List handles GET /api/nko.
func (h *NKOHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Service.ListApproved(r.Context())
	if err != nil {
		writeError(w, r, h.Env, err, nkoMessages)
		return
	}
	writeJSON(w, r, http.StatusOK, listings)
}

// Submit handles POST /api/nko. Authentication is checked before the body is
// read, so an anonymous request never reaches the store.
func (h *NKOHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, r, h.Env, apperr.ErrUnauthenticated, nkoMessages)
		return
	}

	input, err := decodeJSON[nko.SubmitInput](r)
	if err != nil {
		writeError(w, r, h.Env, err, nkoMessages)
		return
	}

	id, err := h.Service.Submit(r.Context(), user, input)
	if err != nil {
		writeError(w, r, h.Env, err, nkoMessages)
		return
	}
	writeJSON(w, r, http.StatusCreated, submitResponse{ID: id, Message: msgListingSubmitted})
}
