// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/torrenthunt/internal/models"
)

const (
	MsgEnterSearchTerm  = "Please enter a search term"
	MsgSelectProvider   = "Please select at least one site"
	defaultDiscoveryTTL = 15 * time.Minute
)

// Service is the single entry point for search and trending queries.
type Service struct {
	aggregator    *Aggregator
	registry      *models.Registry
	recorder      Recorder
	sites         SiteLister
	trendingLimit atomic.Int64

	history *HistoryBuffer
	state   queryState

	discoveryCache    *cache.Cache
	discoveryAttempts uint
	discoveryDelay    time.Duration
}

type ServiceOption func(*Service)

// WithRecorder wires metrics into the service and its aggregator.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithHistory sets the number of completed queries kept in memory.
func WithHistory(capacity int) ServiceOption {
	return func(s *Service) {
		s.history = NewHistoryBuffer(capacity)
	}
}

// WithTrendingLimit changes the default trending result cap.
func WithTrendingLimit(limit int) ServiceOption {
	return func(s *Service) {
		s.SetTrendingLimit(limit)
	}
}

// WithSiteLister overrides where remote provider discovery reads from.
func WithSiteLister(l SiteLister) ServiceOption {
	return func(s *Service) {
		s.sites = l
	}
}

// WithDiscovery configures remote provider discovery caching and retries.
func WithDiscovery(ttl time.Duration, attempts uint, delay time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.discoveryCache = cache.New(ttl, 2*ttl)
		}
		if attempts > 0 {
			s.discoveryAttempts = attempts
		}
		if delay >= 0 {
			s.discoveryDelay = delay
		}
	}
}

// NewService builds the query facade. When fetcher also implements SiteLister
// it is used for provider discovery.
func NewService(fetcher Fetcher, registry *models.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		registry:          registry,
		history:           NewHistoryBuffer(DefaultHistoryCapacity),
		discoveryCache:    cache.New(defaultDiscoveryTTL, 2*defaultDiscoveryTTL),
		discoveryAttempts: 3,
		discoveryDelay:    500 * time.Millisecond,
	}
	s.trendingLimit.Store(DefaultTrendingLimit)
	if lister, ok := fetcher.(SiteLister); ok {
		s.sites = lister
	}
	for _, opt := range opts {
		opt(s)
	}
	s.aggregator = NewAggregator(fetcher, registry, s.recorder)
	return s
}

// Search runs a keyword query across the selected providers. Blank queries and
// empty selections are rejected before any network activity.
func (s *Service) Search(ctx context.Context, req SearchRequest) (records []Record, status Status) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, s.rejectRequest(KindSearch, MsgEnterSearchTerm)
	}
	providers := NormalizeProviderKeys(req.Providers)
	if len(providers) == 0 {
		return nil, s.rejectRequest(KindSearch, MsgSelectProvider)
	}
	category := s.categoryKey(req.Category)

	return s.run(ctx, queryPlan{
		fanOut: FanOutRequest{
			Kind:      KindSearch,
			Query:     query,
			Category:  category,
			Providers: providers,
		},
		sort:       req.Sort,
		minSeeders: req.MinSeeders,
		hideDead:   req.HideDead,
		message: func(n int) string {
			return fmt.Sprintf("Found %d torrents", n)
		},
	})
}

// SetTrendingLimit changes the default trending cap. It is safe to call while
// queries are running; non-positive values are ignored.
func (s *Service) SetTrendingLimit(limit int) {
	if limit > 0 {
		s.trendingLimit.Store(int64(limit))
	}
}

// Trending fetches popular listings. The merged set is filtered and sorted
// before being truncated to the limit, so the result is the top N by the sort key.
func (s *Service) Trending(ctx context.Context, req TrendingRequest) (records []Record, status Status) {
	providers := NormalizeProviderKeys(req.Providers)
	if len(providers) == 0 {
		return nil, s.rejectRequest(KindTrending, MsgSelectProvider)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = int(s.trendingLimit.Load())
	}

	return s.run(ctx, queryPlan{
		fanOut: FanOutRequest{
			Kind:      KindTrending,
			Category:  s.categoryKey(req.Category),
			Limit:     limit,
			Providers: providers,
		},
		sort:       req.Sort,
		minSeeders: req.MinSeeders,
		hideDead:   req.HideDead,
		limit:      limit,
		message: func(n int) string {
			return fmt.Sprintf("Loaded %d trending torrents", n)
		},
	})
}

type queryPlan struct {
	fanOut     FanOutRequest
	sort       Sort
	minSeeders int
	hideDead   bool
	limit      int
	message    func(int) string
}

func (s *Service) run(ctx context.Context, plan queryPlan) (records []Record, status Status) {
	start := time.Now()
	kind := plan.fanOut.Kind
	sort := plan.sort.normalized()

	gen := s.state.begin(kind, fmt.Sprintf("Querying %d sites...", len(plan.fanOut.Providers)))
	finished := false

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("kind", string(kind)).
				Interface("panic", r).
				Msg("Recovered from panic in query pipeline")
			records = nil
			status = Status{
				Kind:     StatusOK,
				Message:  plan.message(0),
				Warnings: []ProviderWarning{{Message: fmt.Sprintf("internal error: %v", r)}},
			}
			if !finished {
				s.state.finish(gen, kind, nil, sort, status.Message, status.Warnings)
			}
		}
		if s.recorder != nil {
			s.recorder.ObserveQuery(kind, status.Kind, len(records), time.Since(start))
		}
	}()

	res := s.aggregator.FanOut(ctx, plan.fanOut)

	records = FilterByCategory(res.Records, plan.fanOut.Category, s.registry)
	records = FilterBySeeders(records, plan.minSeeders, plan.hideDead)
	records = sort.Apply(records)
	if plan.limit > 0 && len(records) > plan.limit {
		records = records[:plan.limit]
	}

	status = Status{
		Kind:     StatusOK,
		Message:  plan.message(len(records)),
		Count:    len(records),
		Skipped:  res.Skipped,
		Warnings: res.Warnings,
	}

	s.state.finish(gen, kind, records, sort, status.Message, status.Warnings)
	finished = true
	s.history.Add(HistoryEntry{
		Kind:       kind,
		Query:      plan.fanOut.Query,
		Providers:  plan.fanOut.Providers,
		Category:   plan.fanOut.Category,
		Count:      len(records),
		Skipped:    res.Skipped,
		Warnings:   res.Warnings,
		Outcomes:   res.Outcomes,
		StartedAt:  start,
		DurationMs: time.Since(start).Milliseconds(),
	})

	log.Info().
		Str("kind", string(kind)).
		Str("query", plan.fanOut.Query).
		Str("category", plan.fanOut.Category).
		Int("providers", len(plan.fanOut.Providers)).
		Int("results", len(records)).
		Int("failed_providers", len(res.Warnings)).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg(status.Message)

	return records, status
}

func (s *Service) rejectRequest(kind Kind, msg string) Status {
	s.state.reject(msg)
	if s.recorder != nil {
		s.recorder.ObserveQuery(kind, StatusInvalidRequest, 0, 0)
	}
	return Status{Kind: StatusInvalidRequest, Message: msg}
}

func (s *Service) categoryKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return models.CategoryAll
	}
	return key
}

// Snapshot returns the latest records, progress flag and status text.
func (s *Service) Snapshot() Snapshot {
	return s.state.snapshot()
}

// Resort reorders the current results without querying again.
func (s *Service) Resort(sort Sort) []Record {
	return s.state.resort(sort)
}

// History returns up to limit recent queries, newest first.
func (s *Service) History(limit int) []HistoryEntry {
	return s.history.List(limit)
}

func (s *Service) Providers() []models.Provider {
	return s.registry.Providers()
}

func (s *Service) Categories() []models.Category {
	return s.registry.Categories()
}

// DefaultProviders returns the providers selected when the caller names none.
func (s *Service) DefaultProviders() []string {
	return s.registry.EnabledProviderKeys()
}
