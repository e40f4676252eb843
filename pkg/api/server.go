package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/httputil"
	"github.com/platinummonkey/laman/pkg/middleware"
	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/pages"
	"github.com/platinummonkey/laman/pkg/plans"
)

// maxBodyBytes bounds JSON request bodies; prompts are at most 2000 characters
const maxBodyBytes = 64 << 10

// PlanCatalog lists the plans users can subscribe to
type PlanCatalog interface {
	ListActive(ctx context.Context) ([]*plans.Plan, error)
}

// Subscriptions manages a user's subscription and quota.
// *entitlements.Tracker satisfies it.
type Subscriptions interface {
	Usage(ctx context.Context, userID int64) (*entitlements.UsageSummary, error)
	Subscribe(ctx context.Context, userID, planID int64) (*entitlements.Subscription, error)
	Cancel(ctx context.Context, userID int64) error
	History(ctx context.Context, userID int64, limit int) ([]*entitlements.Subscription, error)
}

// PageService generates and manages pages. *pages.Service satisfies it.
type PageService interface {
	Generate(ctx context.Context, userID int64, req pages.Request) (*pages.Page, error)
	Get(ctx context.Context, userID, id int64) (*pages.Page, error)
	Update(ctx context.Context, userID, id int64, req pages.Request) (*pages.Page, error)
	Delete(ctx context.Context, userID, id int64) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]*pages.Page, error)
	Export(ctx context.Context, userID, id int64) (*pages.Export, error)
	ExportEnabled() bool
}

// TokenService issues and revokes API tokens. *auth.TokenManager satisfies it.
type TokenService interface {
	CreateToken(ctx context.Context, userID int64, name string, expiresAt *time.Time) (*auth.APIToken, string, error)
	ListUserTokens(ctx context.Context, userID int64) ([]*auth.APIToken, error)
	RevokeToken(ctx context.Context, userID, tokenID int64) error
}

// Options wires the server's dependencies. Auth is required; RateLimit,
// Metrics and CORSOrigins are optional.
type Options struct {
	Plans         PlanCatalog
	Subscriptions Subscriptions
	Pages         PageService
	Tokens        TokenService

	Auth      *middleware.AuthMiddleware
	RateLimit *middleware.RateLimitMiddleware
	Audit     *auth.AuditLogger

	Logger      *observability.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler

	plans         PlanCatalog
	subscriptions Subscriptions
	pages         PageService
	tokens        TokenService

	auth      *middleware.AuthMiddleware
	rateLimit *middleware.RateLimitMiddleware
	audit     *auth.AuditLogger
	logger    *observability.Logger

	// Now stamps the health check
	Now func() time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	audit := opts.Audit
	if audit == nil {
		audit = auth.NewAuditLogger(logger)
	}

	s := &Server{
		router:        mux.NewRouter(),
		plans:         opts.Plans,
		subscriptions: opts.Subscriptions,
		pages:         opts.Pages,
		tokens:        opts.Tokens,
		auth:          opts.Auth,
		rateLimit:     opts.RateLimit,
		audit:         audit,
		logger:        logger,
		Now:           time.Now,
	}

	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	s.router.Use(otelhttp.NewMiddleware("laman.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routeTemplate(r)
		}),
	))
	s.setupRoutes()

	chain := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
	}
	if len(opts.CORSOrigins) > 0 {
		chain = append(chain, httputil.CORSMiddleware(opts.CORSOrigins))
	}
	chain = append(chain, httputil.MaxBytesMiddleware(maxBodyBytes), httputil.ContentTypeMiddleware)
	s.handler = httputil.Chain(chain...)(s.router)

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Public routes
	s.router.HandleFunc("/health-check", s.healthCheck).Methods("GET")
	s.router.HandleFunc("/plans", s.listPlans).Methods("GET")

	authed := s.router.PathPrefix("/").Subrouter()
	authed.Use(s.auth.Handler)

	// Subscription routes
	authed.HandleFunc("/subscription", s.getSubscription).Methods("GET")
	authed.HandleFunc("/subscription", s.subscribe).Methods("POST")
	authed.HandleFunc("/subscription", s.cancelSubscription).Methods("DELETE")
	authed.HandleFunc("/subscription/history", s.subscriptionHistory).Methods("GET")

	// Generator routes
	authed.HandleFunc("/generate", s.generatorIndex).Methods("GET")
	authed.Handle("/generate", s.limited(s.generatePage)).Methods("POST")

	// Page routes
	authed.HandleFunc("/pages/{id}", s.getPage).Methods("GET")
	authed.HandleFunc("/pages/{id}/preview", s.previewPage).Methods("GET")
	authed.Handle("/pages/{id}", s.limited(s.updatePage)).Methods("PATCH")
	authed.HandleFunc("/pages/{id}", s.deletePage).Methods("DELETE")
	authed.HandleFunc("/pages/{id}/export", s.exportPage).Methods("POST")

	// Account routes
	authed.HandleFunc("/me", s.me).Methods("GET")
	authed.HandleFunc("/tokens", s.listTokens).Methods("GET")
	authed.HandleFunc("/tokens", s.createToken).Methods("POST")
	authed.HandleFunc("/tokens/{id}", s.revokeToken).Methods("DELETE")
}

// limited applies the generation rate limit when one is configured
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.rateLimit == nil {
		return h
	}
	return s.rateLimit.Handler(h)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}
