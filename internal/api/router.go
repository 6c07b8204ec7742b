package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/Togather-Foundation/nko-directory/internal/api/handlers"
	"github.com/Togather-Foundation/nko-directory/internal/api/middleware"
	"github.com/Togather-Foundation/nko-directory/internal/audit"
	"github.com/Togather-Foundation/nko-directory/internal/config"
	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/domain/sessions"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/Togather-Foundation/nko-directory/internal/metrics"
	"github.com/Togather-Foundation/nko-directory/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Store is the persistence the router needs: domain repositories plus the
// probes behind /health.
type Store interface {
	storage.Repository
	handlers.DatabaseProbe
}

// BuildInfo is stamped at link time and reported by /version and /health.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// Router is the HTTP entry point. Close releases the rate limiter's
// background cleanup.
type Router struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

func (rt *Router) Close() {
	rt.rateLimiter.Stop()
}

// NewRouter wires services over store and mounts every route behind the
// shared middleware chain.
func NewRouter(cfg config.Config, store Store, logger zerolog.Logger, build BuildInfo, opts ...users.Option) *Router {
	auditLogger := audit.NewLogger(logger)

	usersService := users.NewService(store.Users(), auditLogger, logger, opts...)
	sessionsService := sessions.NewService(store.Sessions(), logger)
	listingService := nko.NewService(store.Listings(), auditLogger, logger)
	eventsService := events.NewService(store.Events(), logger)

	authHandler := handlers.NewAuthHandler(usersService, sessionsService, cfg.Environment)
	nkoHandler := handlers.NewNKOHandler(listingService, cfg.Environment)
	eventsHandler := handlers.NewEventsHandler(eventsService, cfg.Environment)
	health := handlers.NewHealthChecker(store, build.Version, build.GitCommit)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Environment)
	public := limiter.Middleware
	authTier := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierAuth)(limiter.Middleware(h))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", health.Readyz())
	mux.Handle("/health", health.Health())
	mux.Handle("/version", VersionHandler(build))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: authTier(http.HandlerFunc(authHandler.Register)),
	}))
	mux.Handle("/api/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: authTier(http.HandlerFunc(authHandler.Login)),
	}))
	mux.Handle("/api/auth/me", methodMux(map[string]http.Handler{
		http.MethodGet: public(http.HandlerFunc(authHandler.Me)),
	}))
	mux.Handle("/api/nko", methodMux(map[string]http.Handler{
		http.MethodGet:  public(http.HandlerFunc(nkoHandler.List)),
		http.MethodPost: public(http.HandlerFunc(nkoHandler.Submit)),
	}))
	mux.Handle("/api/events", methodMux(map[string]http.Handler{
		http.MethodGet: public(http.HandlerFunc(eventsHandler.List)),
	}))

	var handler http.Handler = mux
	handler = middleware.Session(sessionsService, cfg.Environment)(handler)
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = middleware.SecurityHeaders(cfg.Environment == "production")(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(logger)(handler)

	return &Router{handler: handler, rateLimiter: limiter}
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
