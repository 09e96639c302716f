// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/torrenthunt/internal/api"
	"github.com/autobrr/torrenthunt/internal/buildinfo"
	"github.com/autobrr/torrenthunt/internal/config"
	"github.com/autobrr/torrenthunt/internal/domain"
	"github.com/autobrr/torrenthunt/internal/metrics"
	"github.com/autobrr/torrenthunt/internal/models"
	"github.com/autobrr/torrenthunt/internal/services/hunt"
)

// cliApp is what one-shot commands need: config, registry and the query service.
type cliApp struct {
	cfg      *config.AppConfig
	registry *models.Registry
	service  *hunt.Service
}

func newCLIApp(flags *globalFlags) (*cliApp, error) {
	cfg, err := config.New(flags.configDir, buildinfo.Version)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize configuration")
	}
	if flags.logLevel != "" {
		cfg.Config.LogLevel = flags.logLevel
	}
	cfg.ApplyLogConfig()

	registry, err := models.DefaultRegistry()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load provider registry")
	}

	return &cliApp{
		cfg:      cfg,
		registry: registry,
		service:  newHuntService(cfg.Config, registry, nil),
	}, nil
}

// providers resolves the provider selection: explicit flags first, then the
// configured defaults, then every enabled registry provider.
func (a *cliApp) providers(selected []string) []string {
	if len(selected) > 0 {
		return selected
	}
	if len(a.cfg.Config.DefaultProviders) > 0 {
		return a.cfg.Config.DefaultProviders
	}
	return a.service.DefaultProviders()
}

func newHuntService(cfg *domain.Config, registry *models.Registry, recorder hunt.Recorder) *hunt.Service {
	client := hunt.NewClient(
		cfg.APIURL,
		cfg.APIKey,
		time.Duration(cfg.RequestTimeoutSeconds)*time.Second,
		hunt.WithSearchLimit(cfg.SearchLimit),
	)

	opts := []hunt.ServiceOption{
		hunt.WithHistory(cfg.HistorySize),
		hunt.WithTrendingLimit(cfg.TrendingLimit),
	}
	if recorder != nil {
		opts = append(opts, hunt.WithRecorder(recorder))
	}

	return hunt.NewService(client, registry, opts...)
}

type Application struct {
	configDir string
	logPath   string
	logLevel  string
}

func NewApplication(configDir, logPath, logLevel string) *Application {
	return &Application{
		configDir: configDir,
		logPath:   logPath,
		logLevel:  logLevel,
	}
}

func (app *Application) runServer() {
	cfg, err := config.New(app.configDir, buildinfo.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	if app.logPath != "" {
		os.Setenv("HUNT__LOG_PATH", app.logPath)
		cfg.Config.LogPath = app.logPath
	}
	if app.logLevel != "" {
		os.Setenv("HUNT__LOG_LEVEL", app.logLevel)
		cfg.Config.LogLevel = app.logLevel
	}

	cfg.ApplyLogConfig()

	log.Info().Str("version", buildinfo.Version).Str("api", cfg.Config.APIURL).Msg("Starting torrenthunt")

	registry, err := models.DefaultRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load provider registry")
	}

	var metricsManager *metrics.MetricsManager
	var recorder hunt.Recorder
	if cfg.Config.MetricsEnabled {
		metricsManager = metrics.NewMetricsManager(registry)
		recorder = metricsManager
	}

	huntService := newHuntService(cfg.Config, registry, recorder)

	cfg.RegisterReloadListener(func(conf *domain.Config) {
		huntService.SetTrendingLimit(conf.TrendingLimit)
		log.Info().Int("trendingLimit", conf.TrendingLimit).Msg("Applied reloaded configuration")
	})

	httpServer := api.NewServer(&api.Dependencies{
		Config:      cfg,
		Version:     buildinfo.Version,
		HuntService: huntService,
	})

	errorChannel := make(chan error, 2)
	serverReady := make(chan struct{}, 1)
	go func() {
		if err := httpServer.ListenAndServeReady(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	select {
	case <-serverReady:
	case err := <-errorChannel:
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	var metricsServer *metrics.MetricsServer
	if metricsManager != nil {
		metricsServer = metrics.NewMetricsServer(
			metricsManager,
			cfg.Config.MetricsHost,
			cfg.Config.MetricsPort,
			cfg.Config.MetricsBasicAuthUsers,
		)

		go func() {
			if err := metricsServer.ListenAndServe(); err != nil {
				errorChannel <- err
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("got error during metrics server shutdown")
		}
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("got error during graceful http shutdown")
		os.Exit(1)
	}

	os.Exit(0)
}
