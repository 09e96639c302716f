// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package swagger

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpec []byte

// GetOpenAPISpec returns the embedded OpenAPI document as YAML.
func GetOpenAPISpec() ([]byte, error) {
	if len(openAPISpec) == 0 {
		return nil, fmt.Errorf("openapi spec not embedded")
	}
	return openAPISpec, nil
}

// Handler serves the OpenAPI document rendered as JSON.
type Handler struct {
	baseURL string
	spec    []byte
}

// NewHandler converts the embedded document once and rewrites the server URL
// to baseURL.
func NewHandler(baseURL string) (*Handler, error) {
	raw, err := GetOpenAPISpec()
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi spec: %w", err)
	}

	if baseURL == "" {
		baseURL = "/"
	}
	doc["servers"] = []map[string]string{{"url": baseURL}}

	spec, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode openapi spec: %w", err)
	}

	return &Handler{baseURL: baseURL, spec: spec}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(strings.TrimSuffix(h.baseURL, "/")+"/api/openapi.json", h.ServeSpec)
}

func (h *Handler) ServeSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.spec)
}
