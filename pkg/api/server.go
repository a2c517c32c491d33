package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vantagecrm/vantage/pkg/apperrors"
	"github.com/vantagecrm/vantage/pkg/auth"
	"github.com/vantagecrm/vantage/pkg/config"
	"github.com/vantagecrm/vantage/pkg/httputil"
	"github.com/vantagecrm/vantage/pkg/middleware"
	"github.com/vantagecrm/vantage/pkg/observability"
	"github.com/vantagecrm/vantage/pkg/ratelimit"
	"github.com/vantagecrm/vantage/pkg/storage"
)

// Server is the HTTP API server
type Server struct {
	cfg        *config.Config
	store      storage.Store
	issuer     *auth.Issuer
	limiter    *ratelimit.Limiter
	classifier *apperrors.Classifier
	logger     *observability.Logger
	metrics    *observability.Metrics
	router     *mux.Router
	handler    http.Handler
	startedAt  time.Time
}

// NewServer assembles the router, handlers and middleware chain. The
// limiter and metrics may be nil, in which case the corresponding
// stages are skipped.
func NewServer(cfg *config.Config, store storage.Store, issuer *auth.Issuer, limiter *ratelimit.Limiter, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		issuer:     issuer,
		limiter:    limiter,
		classifier: apperrors.NewClassifier(logger, cfg.Debug),
		logger:     logger,
		metrics:    metrics,
		router:     mux.NewRouter(),
		startedAt:  time.Now().UTC(),
	}

	s.setupRoutes()
	s.handler = s.buildChain()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.health).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	authHandlers := NewAuthHandlers(s.store, s.issuer, s.classifier, s.logger, s.metrics)
	authHandlers.RegisterRoutes(s.router)

	NewCompanyHandlers(s.store, s.classifier).RegisterRoutes(s.router)
	NewContactHandlers(s.store, s.classifier).RegisterRoutes(s.router)
	NewOpportunityHandlers(s.store, s.classifier).RegisterRoutes(s.router)
	NewActivityHandlers(s.store, s.classifier).RegisterRoutes(s.router)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.classifier.Respond(w, r, apperrors.NotFound("Resource not found"))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.classifier.Respond(w, r, apperrors.MethodNotAllowed("Method not allowed"))
	})
}

// buildChain wraps the router in the fixed middleware order.
// ErrorGuard is the outermost response-writing stage. Instrument sits
// outside it as a read-only exception: it records counters after the
// inner chain returns, so it can only count a contained panic with its
// final 500 status from that position. It never writes to the response
// and cannot short-circuit, so nothing bypasses the guard.
func (s *Server) buildChain() http.Handler {
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = s.cfg.CORS.AllowedOrigins
	corsCfg.AllowCredentials = s.cfg.CORS.AllowCredentials

	guard := middleware.NewErrorGuard(s.classifier, s.logger)
	authStage := middleware.NewAuthMiddleware(s.issuer, s.principalLookup(), s.classifier, s.metrics, s.cfg.Auth.ExemptPrefixes)

	stages := []func(http.Handler) http.Handler{
		guard.Handler,
		middleware.CORS(corsCfg),
		middleware.RequestID,
	}
	if s.limiter != nil {
		rateStage := middleware.NewRateLimitMiddleware(s.limiter, s.classifier, s.metrics)
		stages = append(stages, rateStage.Handler)
	}
	stages = append(stages, authStage.Handler)

	chained := middleware.Chain(stages...)(s.router)
	if s.metrics != nil {
		chained = middleware.Instrument(s.metrics)(chained)
	}
	return chained
}

// principalLookup resolves token subjects against the user store
func (s *Server) principalLookup() middleware.UserLookup {
	return middleware.UserLookupFunc(func(ctx context.Context, userID string) (*auth.Principal, error) {
		user, err := s.store.GetUserByID(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &auth.Principal{
			ID:          user.ID,
			TenantID:    user.TenantID,
			Email:       user.Email,
			Role:        user.Role,
			Permissions: user.Permissions,
			Active:      user.Active,
		}, nil
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.limiter != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.limiter.HealthCheck(ctx); err != nil {
			// The limiter fails open, so a down store degrades
			// protection but not availability.
			status["rate_limit_store"] = "unreachable"
		} else {
			status["rate_limit_store"] = "ok"
		}
	}
	httputil.WriteSuccess(w, status)
}

// requirePrincipal returns the authenticated principal or writes a 401.
// Handlers behind the auth stage should always find one; this covers
// misconfigured exemptions.
func requirePrincipal(w http.ResponseWriter, r *http.Request, classifier *apperrors.Classifier) *auth.Principal {
	principal := middleware.GetPrincipal(r)
	if principal == nil {
		classifier.Respond(w, r, apperrors.Unauthorized("Unauthorized"))
		return nil
	}
	return principal
}
