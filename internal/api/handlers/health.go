// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ProviderSource reports the providers the service will query by default.
type ProviderSource interface {
	DefaultProviders() []string
}

type HealthHandler struct {
	version   string
	providers ProviderSource
}

func NewHealthHandler(version string, providers ProviderSource) *HealthHandler {
	return &HealthHandler{version: version, providers: providers}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, HealthResponse{Status: "alive", Version: h.version})
}

// HandleReady fails while no provider is enabled, since every query would be rejected.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, _ *http.Request) {
	if h.providers == nil || len(h.providers.DefaultProviders()) == 0 {
		RespondError(w, http.StatusServiceUnavailable, "No providers enabled")
		return
	}
	RespondJSON(w, http.StatusOK, HealthResponse{Status: "ready", Version: h.version})
}
