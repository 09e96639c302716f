// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/torrenthunt/internal/models"
)

const (
	DefaultTrendingLimit = 100
	// minPerProviderLimit keeps small provider selections from starving.
	minPerProviderLimit = 10
)

// Recorder receives per-call and per-query observations. internal/metrics implements it.
type Recorder interface {
	ObserveProviderCall(provider string, kind Kind, outcome string, duration time.Duration, records, skipped int)
	ObserveQuery(kind Kind, status StatusKind, records int, duration time.Duration)
}

// FanOutRequest describes one aggregated upstream query.
type FanOutRequest struct {
	Kind      Kind
	Query     string
	Category  string
	Limit     int
	Providers []string
}

// FanOutResult is the merged outcome of a fan-out, in provider issue order.
type FanOutResult struct {
	Records          []Record
	Warnings         []ProviderWarning
	Skipped          int
	Outcomes         []ProviderOutcome
	PerProviderLimit int
	Elapsed          time.Duration
}

// Aggregator queries several providers concurrently and isolates their failures.
type Aggregator struct {
	fetcher  Fetcher
	registry *models.Registry
	recorder Recorder
}

func NewAggregator(fetcher Fetcher, registry *models.Registry, recorder Recorder) *Aggregator {
	return &Aggregator{fetcher: fetcher, registry: registry, recorder: recorder}
}

// NormalizeProviderKeys trims keys, drops blanks and collapses duplicates,
// keeping first-occurrence order.
func NormalizeProviderKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// PerProviderLimit splits a trending limit across providers with a floor of 10.
func PerProviderLimit(limit, providers int) int {
	if providers <= 0 {
		return 0
	}
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	return max(minPerProviderLimit, limit/providers)
}

type contribution struct {
	records []Record
	skipped int
	err     error
	outcome string
	elapsed time.Duration
}

// FanOut launches one call per provider, waits for all of them and merges the
// successful pages. A failing provider contributes zero records and a warning;
// it never cancels its siblings.
func (a *Aggregator) FanOut(ctx context.Context, req FanOutRequest) FanOutResult {
	start := time.Now()
	providers := NormalizeProviderKeys(req.Providers)

	result := FanOutResult{}
	if len(providers) == 0 {
		return result
	}
	if req.Kind == KindTrending {
		result.PerProviderLimit = PerProviderLimit(req.Limit, len(providers))
	}

	// Provider calls are bounded by their own timeout, not the caller's cancellation.
	callCtx := context.WithoutCancel(ctx)

	contributions := make([]contribution, len(providers))
	var g errgroup.Group
	for i, provider := range providers {
		g.Go(func() error {
			contributions[i] = a.call(callCtx, req, provider, result.PerProviderLimit)
			return nil
		})
	}
	_ = g.Wait()

	result.Outcomes = make([]ProviderOutcome, 0, len(providers))
	for i, provider := range providers {
		c := contributions[i]
		outcome := ProviderOutcome{
			Provider: provider,
			Outcome:  c.outcome,
			Records:  len(c.records),
			Skipped:  c.skipped,
			Duration: c.elapsed,
		}
		if c.err != nil {
			outcome.Error = c.err.Error()
			result.Warnings = append(result.Warnings, ProviderWarning{Provider: provider, Message: c.err.Error()})
		}
		result.Outcomes = append(result.Outcomes, outcome)
		result.Skipped += c.skipped

		meta := a.registry.ResolveProvider(provider)
		for _, rec := range c.records {
			rec.Provider = provider
			rec.ProviderName = meta.Name
			rec.ProviderIcon = meta.Icon
			rec.ProviderColor = meta.Color
			result.Records = append(result.Records, rec)
		}
	}
	result.Elapsed = time.Since(start)

	log.Debug().
		Str("kind", string(req.Kind)).
		Int("providers", len(providers)).
		Int("records", len(result.Records)).
		Int("failures", len(result.Warnings)).
		Int("skipped", result.Skipped).
		Dur("elapsed", result.Elapsed).
		Msg("Provider fan-out complete")

	return result
}

func (a *Aggregator) call(ctx context.Context, req FanOutRequest, provider string, limit int) (c contribution) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in provider goroutine: %v", r)
			log.Error().
				Err(err).
				Str("provider", provider).
				Msg("Recovered from panic in provider call")
			c = contribution{err: &ProviderUnavailableError{Provider: provider, Err: err}, outcome: OutcomePanic}
		}
		c.elapsed = time.Since(start)
		if a.recorder != nil {
			a.recorder.ObserveProviderCall(provider, req.Kind, c.outcome, c.elapsed, len(c.records), c.skipped)
		}
	}()

	var (
		page Page
		err  error
	)
	switch req.Kind {
	case KindTrending:
		page, err = a.fetcher.FetchTrending(ctx, provider, limit)
	default:
		page, err = a.fetcher.FetchSearch(ctx, req.Query, provider, req.Category)
	}

	if err != nil {
		c = contribution{err: err, outcome: classifyError(err)}
		if c.outcome == OutcomeTimeout {
			log.Warn().Err(err).Str("provider", provider).Str("kind", string(req.Kind)).Msg("Provider timed out")
		} else {
			log.Warn().Err(err).Str("provider", provider).Str("kind", string(req.Kind)).Msg("Provider request failed")
		}
		return c
	}

	records := page.Records
	if len(records) > MaxRecordsPerProvider {
		records = records[:MaxRecordsPerProvider]
	}
	return contribution{records: records, skipped: page.Skipped, outcome: OutcomeSuccess}
}
