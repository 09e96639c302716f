// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/torrenthunt/internal/api/handlers"
	"github.com/autobrr/torrenthunt/internal/api/middleware"
	"github.com/autobrr/torrenthunt/internal/config"
	"github.com/autobrr/torrenthunt/internal/services/hunt"
	"github.com/autobrr/torrenthunt/internal/web/swagger"
)

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	huntService *hunt.Service
}

type Dependencies struct {
	Config      *config.AppConfig
	Version     string
	HuntService *hunt.Service
}

func NewServer(deps *Dependencies) *Server {
	s := Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:      log.Logger.With().Str("module", "api").Logger(),
		config:      deps.Config,
		version:     deps.Version,
		huntService: deps.HuntService,
	}

	return &s
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := net.JoinHostPort(s.config.Config.Host, fmt.Sprint(s.config.Config.Port))

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msgf("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}
	clickableURL := fmt.Sprintf("http://%s%s", host, s.baseURL())

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Str("base_url", s.baseURL()).
		Msgf("Starting API server - Open: %s", clickableURL)

	handler, err := s.Handler()
	if err != nil {
		listener.Close()
		return fmt.Errorf("build API router: %w", err)
	}

	s.server.Handler = handler

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) baseURL() string {
	baseURL := s.config.Config.BaseURL
	if baseURL == "" {
		return "/"
	}
	if !strings.HasPrefix(baseURL, "/") {
		baseURL = "/" + baseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL
}

func (s *Server) Handler() (*chi.Mux, error) {
	if s.huntService == nil {
		return nil, errors.New("hunt service is required")
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID) // Must be before logger to capture request ID
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// HTTP compression - result lists compress well
	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowCredentials: true,
		AllowedMethods:   []string{"HEAD", "OPTIONS", "GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowOriginFunc:  func(origin string) bool { return true },
		MaxAge:           300,
		Debug:            false,
	})
	r.Use(corsMiddleware.Handler)

	healthHandler := handlers.NewHealthHandler(s.version, s.huntService)
	huntHandler := handlers.NewHuntHandler(s.huntService, s.config.Config.DefaultProviders)

	apiRouter := chi.NewRouter()
	apiRouter.Group(func(r chi.Router) {
		r.Use(middleware.Logger(s.logger))

		// Read-only endpoints are cheap, only fan-outs are limited
		r.Get("/providers", huntHandler.ListProviders)
		r.Get("/categories", huntHandler.ListCategories)
		r.Get("/state", huntHandler.GetState)
		r.Get("/history", huntHandler.GetHistory)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.config.Config.RateLimitPerMinute))

			r.Post("/search", huntHandler.Search)
			r.Post("/trending", huntHandler.Trending)
		})
	})

	baseURL := s.baseURL()

	swaggerHandler, err := swagger.NewHandler(baseURL)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize OpenAPI handler")
	} else {
		swaggerHandler.RegisterRoutes(r)
	}

	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/healthz/readiness", healthHandler.HandleReady)
	r.Get("/healthz/liveness", healthHandler.HandleLiveness)

	r.Mount(baseURL+"api", apiRouter)

	if baseURL != "/" {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			handlers.RespondError(w, http.StatusNotFound, "Must use baseUrl: "+baseURL+" instead of /")
		})
	}

	return r, nil
}
