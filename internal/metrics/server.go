// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// MetricsServer serves /metrics on its own listener, separate from the API.
type MetricsServer struct {
	server *http.Server
	addr   string
}

// NewMetricsServer builds the metrics server. basicAuthUsers is a comma separated
// list of user:bcrypt-hash pairs; when empty the endpoint is open.
func NewMetricsServer(manager *MetricsManager, host string, port int, basicAuthUsers string) *MetricsServer {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return &MetricsServer{
		addr: addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(manager, basicAuthUsers),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
	}
}

// NewHandler returns the router serving /metrics.
func NewHandler(manager *MetricsManager, basicAuthUsers string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	users := ParseBasicAuthUsers(basicAuthUsers)
	if len(users) > 0 {
		r.Use(basicAuth(users))
	}

	r.Handle("/metrics", promhttp.HandlerFor(manager.Registry(), promhttp.HandlerOpts{
		Registry:          manager.Registry(),
		EnableOpenMetrics: true,
	}))
	return r
}

func (s *MetricsServer) ListenAndServe() error {
	log.Info().Str("addr", s.addr).Msg("Starting metrics server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ParseBasicAuthUsers parses "user:hash,user2:hash2". Malformed pairs are skipped.
func ParseBasicAuthUsers(raw string) map[string][]byte {
	users := make(map[string][]byte)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, hash, ok := strings.Cut(pair, ":")
		user = strings.TrimSpace(user)
		hash = strings.TrimSpace(hash)
		if !ok || user == "" || hash == "" {
			log.Warn().Str("entry", user).Msg("Ignoring malformed metrics basic auth entry")
			continue
		}
		users[user] = []byte(hash)
	}
	return users
}

func basicAuth(users map[string][]byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if ok {
				if hash, known := users[user]; known && bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		})
	}
}
