// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/torrenthunt/internal/services/hunt"
)

const (
	defaultHistoryLimit = 20
	maxRequestBodyBytes = 64 << 10
)

// QueryResponse is returned by search and trending.
type QueryResponse struct {
	Status  hunt.Status      `json:"status"`
	Records []RecordResponse `json:"records"`
}

// StateResponse mirrors hunt.Snapshot with decorated records.
type StateResponse struct {
	InProgress bool                   `json:"inProgress"`
	Mode       hunt.Kind              `json:"mode,omitempty"`
	Status     string                 `json:"status"`
	Sort       hunt.Sort              `json:"sort"`
	Warnings   []hunt.ProviderWarning `json:"warnings,omitempty"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	Records    []RecordResponse       `json:"records"`
}

// HuntHandler exposes the search service over HTTP.
type HuntHandler struct {
	service          *hunt.Service
	defaultProviders []string
}

// NewHuntHandler creates the handler. defaultProviders is used when a request
// omits the providers field; when empty the registry's enabled providers are used.
func NewHuntHandler(service *hunt.Service, defaultProviders []string) *HuntHandler {
	return &HuntHandler{
		service:          service,
		defaultProviders: defaultProviders,
	}
}

// ListProviders godoc
// @Summary List providers
// @Tags hunt
// @Produce json
// @Param remote query bool false "Merge with the upstream site list"
// @Success 200 {object} hunt.ProviderList
// @Router /api/providers [get]
func (h *HuntHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	remote, _ := strconv.ParseBool(r.URL.Query().Get("remote"))
	if remote {
		RespondJSON(w, http.StatusOK, h.service.DiscoverProviders(r.Context()))
		return
	}

	RespondJSON(w, http.StatusOK, hunt.ProviderList{
		Providers: h.service.Providers(),
		Source:    hunt.ProviderSourceRegistry,
	})
}

// ListCategories godoc
// @Summary List categories
// @Tags hunt
// @Produce json
// @Success 200 {array} models.Category
// @Router /api/categories [get]
func (h *HuntHandler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, h.service.Categories())
}

// Search godoc
// @Summary Search providers
// @Tags hunt
// @Accept json
// @Produce json
// @Param request body hunt.SearchRequest true "Search request"
// @Success 200 {object} QueryResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/search [post]
func (h *HuntHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req hunt.SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !validSort(w, req.Sort) {
		return
	}
	if req.Providers == nil {
		req.Providers = h.providers()
	}

	records, status := h.service.Search(r.Context(), req)
	h.respondQuery(w, records, status)
}

// Trending godoc
// @Summary Trending listings
// @Tags hunt
// @Accept json
// @Produce json
// @Param request body hunt.TrendingRequest true "Trending request"
// @Success 200 {object} QueryResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/trending [post]
func (h *HuntHandler) Trending(w http.ResponseWriter, r *http.Request) {
	var req hunt.TrendingRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !validSort(w, req.Sort) {
		return
	}
	if req.Limit < 0 {
		RespondError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}
	if req.Providers == nil {
		req.Providers = h.providers()
	}

	records, status := h.service.Trending(r.Context(), req)
	h.respondQuery(w, records, status)
}

// GetState godoc
// @Summary Current query state
// @Tags hunt
// @Produce json
// @Param sort query string false "Re-sort key"
// @Param order query string false "asc or desc"
// @Success 200 {object} StateResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/state [get]
func (h *HuntHandler) GetState(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("sort"); raw != "" {
		key, ok := hunt.ParseSortKey(raw)
		if !ok {
			RespondError(w, http.StatusBadRequest, "Unknown sort key: "+raw)
			return
		}
		h.service.Resort(hunt.Sort{Key: key, Ascending: strings.EqualFold(r.URL.Query().Get("order"), "asc")})
	}

	snap := h.service.Snapshot()
	RespondJSON(w, http.StatusOK, StateResponse{
		InProgress: snap.InProgress,
		Mode:       snap.Mode,
		Status:     snap.Status,
		Sort:       snap.Sort,
		Warnings:   snap.Warnings,
		UpdatedAt:  snap.UpdatedAt,
		Records:    NewRecordResponses(snap.Records),
	})
}

// GetHistory godoc
// @Summary Recent queries
// @Tags hunt
// @Produce json
// @Param limit query int false "Maximum entries"
// @Success 200 {array} hunt.HistoryEntry
// @Router /api/history [get]
func (h *HuntHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries := h.service.History(limit)
	if entries == nil {
		entries = []hunt.HistoryEntry{}
	}
	RespondJSON(w, http.StatusOK, entries)
}

func (h *HuntHandler) providers() []string {
	if len(h.defaultProviders) > 0 {
		return append([]string(nil), h.defaultProviders...)
	}
	return h.service.DefaultProviders()
}

func (h *HuntHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *HuntHandler) respondQuery(w http.ResponseWriter, records []hunt.Record, status hunt.Status) {
	if !status.OK() {
		RespondError(w, http.StatusBadRequest, status.Message)
		return
	}
	RespondJSON(w, http.StatusOK, QueryResponse{
		Status:  status,
		Records: NewRecordResponses(records),
	})
}

func validSort(w http.ResponseWriter, sort hunt.Sort) bool {
	if _, ok := hunt.ParseSortKey(string(sort.Key)); !ok {
		RespondError(w, http.StatusBadRequest, "Unknown sort key: "+string(sort.Key))
		return false
	}
	return true
}
