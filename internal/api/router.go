package api

import (
	"net/http"

	"github.com/contactkeeper/backend/internal/auth"
	"github.com/contactkeeper/backend/internal/contacts"
	apperrors "github.com/contactkeeper/backend/internal/errors"
	"github.com/contactkeeper/backend/internal/github"
	"github.com/contactkeeper/backend/internal/health"
	"github.com/contactkeeper/backend/internal/logger"
	"github.com/contactkeeper/backend/internal/metrics"
	"github.com/contactkeeper/backend/internal/middleware"
)

// Deps is everything the router wires together. GitHub may be nil.
type Deps struct {
	AuthService     *auth.Service
	AuthHandlers    *auth.Handlers
	ContactHandlers *contacts.Handlers
	GitHubHandlers  *github.Handlers
	Health          *health.Handler
	Metrics         *metrics.Metrics
	Logger          *logger.Logger
	AllowedOrigins  []string
}

type Router struct {
	mux  *http.ServeMux
	deps Deps
	log  *logger.Logger
}

func NewRouter(deps Deps) *Router {
	r := &Router{
		mux:  http.NewServeMux(),
		deps: deps,
		log:  deps.Logger.WithComponent("api"),
	}
	r.setupRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the router wrapped in the full middleware chain.
// Recoverer sits innermost so a recovered 500 is encoded by Gzip and seen
// by Logging and metrics like any other response.
func (r *Router) Handler() http.Handler {
	return middleware.Chain(r,
		apperrors.RequestIDMiddleware,
		middleware.Logging(r.deps.Logger),
		metrics.Middleware(r.deps.Metrics),
		middleware.CORS(r.deps.AllowedOrigins),
		middleware.Gzip,
		middleware.ETag,
		middleware.Recoverer(r.deps.Logger),
	)
}

func (r *Router) setupRoutes() {
	// Health and metrics
	r.mux.HandleFunc("GET /health", r.deps.Health.HealthHandler)
	r.mux.HandleFunc("GET /health/live", r.deps.Health.LivenessHandler)
	r.mux.HandleFunc("GET /health/ready", r.deps.Health.ReadinessHandler)
	r.mux.Handle("GET /metrics", r.deps.Metrics.Handler())

	// Auth routes (no auth required)
	r.mux.HandleFunc("POST /api/users", r.handle(r.deps.AuthHandlers.Register))
	r.mux.HandleFunc("POST /api/auth", r.handle(r.deps.AuthHandlers.Login))

	// Auth required
	r.mux.Handle("GET /api/auth", r.withAuth(r.deps.AuthHandlers.Me))
	r.mux.Handle("GET /api/contacts", r.withAuth(r.deps.ContactHandlers.List))
	r.mux.Handle("POST /api/contacts", r.withAuth(r.deps.ContactHandlers.Create))
	r.mux.Handle("POST /api/contacts/export", r.withAuth(r.deps.ContactHandlers.Export))
	r.mux.Handle("PUT /api/contacts/{id}", r.withAuth(r.deps.ContactHandlers.Update))
	r.mux.Handle("DELETE /api/contacts/{id}", r.withAuth(r.deps.ContactHandlers.Delete))

	// GitHub proxy (public)
	if gh := r.deps.GitHubHandlers; gh != nil {
		r.mux.HandleFunc("GET /api/github/search/users", r.handle(gh.SearchUsers))
		r.mux.HandleFunc("GET /api/github/users/{login}", r.handle(gh.GetUser))
		r.mux.HandleFunc("GET /api/github/users/{login}/repos", r.handle(gh.GetUserRepos))
	}
}

func (r *Router) withAuth(h apperrors.Handler) http.Handler {
	return auth.Middleware(r.deps.AuthService, r.deps.Metrics)(r.handle(h))
}

// handle adapts an error-returning handler, logging each failure at a level
// that matches its category.
func (r *Router) handle(h apperrors.Handler) http.HandlerFunc {
	return apperrors.HandleFunc(func(w http.ResponseWriter, req *http.Request) error {
		err := h(w, req)
		switch {
		case err == nil:
		case apperrors.IsClientError(err):
			r.log.Debug(req.Context(), "request rejected",
				"method", req.Method,
				"path", req.URL.Path,
				"error", err.Error(),
			)
		case apperrors.IsServerError(err):
			r.log.Error(req.Context(), "request failed", err,
				"method", req.Method,
				"path", req.URL.Path,
			)
		default:
			r.log.Warn(req.Context(), "upstream failed",
				"method", req.Method,
				"path", req.URL.Path,
				"error", err.Error(),
			)
		}
		return err
	})
}
