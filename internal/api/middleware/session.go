package middleware

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/nko-directory/internal/api/problem"
	"github.com/Togather-Foundation/nko-directory/internal/auth"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
)

type contextKeyUser string

const userKey contextKeyUser = "user"

// SessionResolver maps a bearer token to its user. Unknown tokens resolve to
// (nil, nil).
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*users.User, error)
}

// Session resolves an optional bearer token into the request context.
// Requests without a valid token continue anonymously; handlers decide
// whether a user is required. A store failure ends the request with 500.
func Session(resolver SessionResolver, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerTokenFromRequest(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Ошибка сервера", err, env)
				return
			}
			if user == nil {
				LoggerFromContext(r.Context()).Debug().Msg("bearer token did not resolve")
				next.ServeHTTP(w, r)
				return
			}

			logger := LoggerFromContext(r.Context()).With().Int64("user_id", user.ID).Logger()
			ctx := ContextWithUser(logger.WithContext(r.Context()), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ContextWithUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *users.User {
	if user, ok := ctx.Value(userKey).(*users.User); ok {
		return user
	}
	return nil
}
