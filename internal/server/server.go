// Package server exposes the HTTP API consumed by the storefront UI.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/velostore/cdek-bridge/internal/repo"
	"github.com/velostore/cdek-bridge/internal/telemetry"
	"github.com/velostore/cdek-bridge/pkg/shipper/cdek"
	"go.uber.org/zap"
)

// PointSearcher is the pickup-point lookup surface the handlers need.
type PointSearcher interface {
	Search(ctx context.Context, params repo.SearchParams) ([]repo.PickupPoint, error)
}

// CityGeocoder resolves city queries against the provider catalogue.
type CityGeocoder interface {
	Cities(ctx context.Context, filter *cdek.CityFilter) ([]cdek.City, error)
}

// Config holds server configuration.
type Config struct {
	Port int
	// APIToken authenticates callers. An empty token disables the check.
	APIToken       string
	AllowedOrigins []string
}

// Server is the HTTP server for the bridge service.
type Server struct {
	cfg      Config
	points   PointSearcher
	geocoder CityGeocoder
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	validate *validator.Validate
}

// New creates a new server instance.
func New(cfg Config, points PointSearcher, geocoder CityGeocoder, logger *otelzap.Logger, metrics *telemetry.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		points:   points,
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// Routes assembles the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Token"},
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/points/search", s.handlePointSearch)
		r.Post("/geocode/city", s.handleGeocodeCity)
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// authenticate checks the caller-supplied API token. Both JSON endpoints
// serve the authenticated storefront session only.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get("X-API-Token")
		if token == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token != s.cfg.APIToken {
			writeError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
