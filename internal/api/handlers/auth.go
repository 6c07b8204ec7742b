package handlers

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/nko-directory/internal/api/middleware"
	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
)

// UserService is the slice of users.Service the auth handlers need.
type UserService interface {
	Register(ctx context.Context, params users.RegisterParams) (*users.User, error)
	Verify(ctx context.Context, email, password string) (*users.User, error)
}

// SessionIssuer creates bearer tokens for a user.
type SessionIssuer interface {
	Create(ctx context.Context, userID int64) (string, error)
}

type AuthHandler struct {
	Users    UserService
	Sessions SessionIssuer
	Env      string
}

func NewAuthHandler(usersService UserService, sessions SessionIssuer, env string) *AuthHandler {
	return &AuthHandler{Users: usersService, Sessions: sessions, Env: env}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  users.PublicUser `json:"user"`
	Token string           `json:"token"`
}

type meResponse struct {
	User users.PublicUser `json:"user"`
}

var authMessages = errorMessages{validation: msgAuthFieldsRequired, unauthenticated: msgNotAuthorized}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	params, err := decodeJSON[users.RegisterParams](r)
	if err != nil {
		writeError(w, r, h.Env, err, authMessages)
		return
	}

	user, err := h.Users.Register(r.Context(), params)
	if err != nil {
		writeError(w, r, h.Env, err, authMessages)
		return
	}
	h.issue(w, r, user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[loginRequest](r)
	if err != nil {
		writeError(w, r, h.Env, err, authMessages)
		return
	}

	user, err := h.Users.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.Env, err, authMessages)
		return
	}
	h.issue(w, r, user)
}

// Me handles GET /api/auth/me. The session middleware has already resolved
// the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, r, h.Env, apperr.ErrUnauthenticated, authMessages)
		return
	}
	writeJSON(w, r, http.StatusOK, meResponse{User: user.Public()})
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, user *users.User) {
	token, err := h.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.Env, err, authMessages)
		return
	}
	writeJSON(w, r, http.StatusOK, authResponse{User: user.Public(), Token: token})
}
