// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/torrenthunt/internal/config"
	"github.com/autobrr/torrenthunt/internal/domain"
	"github.com/autobrr/torrenthunt/internal/models"
	"github.com/autobrr/torrenthunt/internal/services/hunt"
	"github.com/autobrr/torrenthunt/internal/web/swagger"
)

type routeKey struct {
	Method string
	Path   string
}

var undocumentedRoutes = map[routeKey]struct{}{}

func TestAllEndpointsDocumented(t *testing.T) {
	server := NewServer(newTestDependencies(t, "/"))
	router, err := server.Handler()
	require.NoError(t, err)

	actualRoutes := collectRouterRoutes(t, router)
	documentedRoutes := loadDocumentedRoutes(t)

	undocumented := diffRoutes(actualRoutes, documentedRoutes)
	if len(undocumented) > 0 {
		t.Fatalf("found %d undocumented API endpoints:\n%s", len(undocumented), formatRoutes(undocumented))
	}

	missingHandlers := diffRoutes(documentedRoutes, actualRoutes)
	if len(missingHandlers) > 0 {
		t.Fatalf("found %d documented endpoints without handlers:\n%s", len(missingHandlers), formatRoutes(missingHandlers))
	}

	t.Logf("checked %d API routes registered in chi", len(actualRoutes))
	t.Logf("OpenAPI spec documents %d API routes", len(documentedRoutes))
}

func TestHandlerRoutes(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		method   string
		target   string
		body     string
		wantCode int
	}{
		{name: "health", baseURL: "/", method: http.MethodGet, target: "/health", wantCode: http.StatusOK},
		{name: "readiness", baseURL: "/", method: http.MethodGet, target: "/healthz/readiness", wantCode: http.StatusOK},
		{name: "openapi", baseURL: "/", method: http.MethodGet, target: "/api/openapi.json", wantCode: http.StatusOK},
		{name: "providers", baseURL: "/", method: http.MethodGet, target: "/api/providers", wantCode: http.StatusOK},
		{name: "search rejects blank query", baseURL: "/", method: http.MethodPost, target: "/api/search", body: `{"query":""}`, wantCode: http.StatusBadRequest},
		{name: "wrong method", baseURL: "/", method: http.MethodGet, target: "/api/search", wantCode: http.StatusMethodNotAllowed},
		{name: "base url prefix", baseURL: "/hunt/", method: http.MethodGet, target: "/hunt/api/categories", wantCode: http.StatusOK},
		{name: "base url openapi", baseURL: "/hunt", method: http.MethodGet, target: "/hunt/api/openapi.json", wantCode: http.StatusOK},
		{name: "root outside base url", baseURL: "/hunt/", method: http.MethodGet, target: "/", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, err := NewServer(newTestDependencies(t, tt.baseURL)).Handler()
			require.NoError(t, err)

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestSearchRateLimited(t *testing.T) {
	deps := newTestDependencies(t, "/")
	deps.Config.Config.RateLimitPerMinute = 1

	router, err := NewServer(deps).Handler()
	require.NoError(t, err)

	send := func(target string) int {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"query":""}`))
		req.RemoteAddr = "192.0.2.10:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, send("/api/search"))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/search"))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/trending"), "search and trending share one bucket")
}

func TestHandlerRequiresService(t *testing.T) {
	deps := newTestDependencies(t, "/")
	deps.HuntService = nil

	_, err := NewServer(deps).Handler()
	require.Error(t, err)
}

func newTestDependencies(t *testing.T, baseURL string) *Dependencies {
	t.Helper()

	reg, err := models.NewRegistry(
		[]models.Provider{{Key: "alpha", Name: "Alpha", Enabled: true}},
		[]models.Category{{Key: "all", Name: "All"}},
	)
	require.NoError(t, err)

	// Nothing listens here; tests never reach the fan-out.
	client := hunt.NewClient("http://127.0.0.1:1", "", time.Second)

	return &Dependencies{
		Config: &config.AppConfig{
			Config: &domain.Config{
				BaseURL: baseURL,
			},
		},
		Version:     "test",
		HuntService: hunt.NewService(client, reg),
	}
}

func collectRouterRoutes(t *testing.T, r chi.Routes) map[routeKey]struct{} {
	t.Helper()

	routes := make(map[routeKey]struct{})
	err := chi.Walk(r, func(method string, path string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		method = strings.ToUpper(method)
		if !isComparableMethod(method) {
			return nil
		}

		normalizedPath, ok := normalizeRoutePath(path)
		if !ok {
			return nil
		}

		route := routeKey{Method: method, Path: normalizedPath}
		if _, skip := undocumentedRoutes[route]; skip {
			return nil
		}

		routes[route] = struct{}{}
		return nil
	})
	require.NoError(t, err)

	return routes
}

func loadDocumentedRoutes(t *testing.T) map[routeKey]struct{} {
	t.Helper()

	specBytes, err := swagger.GetOpenAPISpec()
	require.NoError(t, err)
	require.NotEmpty(t, specBytes, "OpenAPI spec should be embedded")

	var spec map[string]any
	require.NoError(t, yaml.Unmarshal(specBytes, &spec))

	pathsNode, ok := spec["paths"].(map[string]any)
	require.True(t, ok, "OpenAPI spec missing paths section")

	routes := make(map[routeKey]struct{})

	for path, pathItem := range pathsNode {
		normalizedPath, ok := normalizeRoutePath(path)
		if !ok {
			continue
		}

		methods, ok := pathItem.(map[string]any)
		if !ok {
			continue
		}

		for method := range methods {
			upperMethod := strings.ToUpper(method)
			if !isComparableMethod(upperMethod) {
				continue
			}

			routes[routeKey{Method: upperMethod, Path: normalizedPath}] = struct{}{}
		}
	}

	return routes
}

func normalizeRoutePath(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	if strings.Contains(path, "/*") {
		return "", false
	}

	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	if path == "/api/openapi.json" {
		return "", false
	}

	if !strings.HasPrefix(path, "/api") && !strings.HasPrefix(path, "/health") {
		return "", false
	}

	return path, true
}

func isComparableMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func diffRoutes(left, right map[routeKey]struct{}) []routeKey {
	diff := make([]routeKey, 0)
	for route := range left {
		if _, exists := right[route]; !exists {
			diff = append(diff, route)
		}
	}

	sort.Slice(diff, func(i, j int) bool {
		if diff[i].Path == diff[j].Path {
			return diff[i].Method < diff[j].Method
		}
		return diff[i].Path < diff[j].Path
	})

	return diff
}

func formatRoutes(routes []routeKey) string {
	lines := make([]string, len(routes))
	for i, route := range routes {
		lines[i] = fmt.Sprintf("%s %s", route.Method, route.Path)
	}
	return strings.Join(lines, "\n")
}
