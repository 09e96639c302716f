// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"math"
	"strings"
	"time"
)

// Kind identifies which upstream listing a query targets.
type Kind string

const (
	KindSearch   Kind = "search"
	KindTrending Kind = "trending"
)

// Record is one normalized listing returned by a provider.
type Record struct {
	// Name of the release
	Name string `json:"name"`
	// Size as reported by the provider, e.g. "1.4 GB"
	Size string `json:"size"`
	// Seeders count, never negative
	Seeders int `json:"seeders"`
	// Leechers count, never negative
	Leechers int `json:"leechers"`
	// Magnet link, passed through unmodified
	Magnet string `json:"magnet"`
	// URL of the details page
	URL string `json:"url,omitempty"`
	// Category text as reported by the provider
	Category string `json:"category,omitempty"`
	// Uploader name
	Uploader string `json:"uploader,omitempty"`
	// Date as reported by the provider, format varies per site
	Date string `json:"date,omitempty"`
	// Hash is the info-hash, derived from the magnet when the provider omits it
	Hash string `json:"hash,omitempty"`
	// Provider key the record was requested from
	Provider string `json:"provider"`
	// ProviderName is the registry display name
	ProviderName string `json:"providerName"`
	// ProviderIcon is the registry icon
	ProviderIcon string `json:"providerIcon"`
	// ProviderColor is the registry color
	ProviderColor string `json:"providerColor"`
}

// Ratio returns seeders/leechers, or +Inf when there are no leechers.
func (r Record) Ratio() float64 {
	if r.Leechers <= 0 {
		return math.Inf(1)
	}
	return float64(r.Seeders) / float64(r.Leechers)
}

// Quality buckets the record by seeder count.
func (r Record) Quality() Quality {
	switch {
	case r.Seeders >= 100:
		return QualityExcellent
	case r.Seeders >= 50:
		return QualityGood
	case r.Seeders >= 10:
		return QualityAverage
	default:
		return QualityPoor
	}
}

// SizeBytes parses Size into a byte count.
func (r Record) SizeBytes() int64 {
	return SizeToBytes(r.Size)
}

type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityAverage   Quality = "average"
	QualityPoor      Quality = "poor"
)

type SortKey string

const (
	SortByName     SortKey = "name"
	SortBySize     SortKey = "size"
	SortBySeeders  SortKey = "seeders"
	SortByLeechers SortKey = "leechers"
	SortByRatio    SortKey = "ratio"
	SortByDate     SortKey = "date"
	SortBySource   SortKey = "source"
)

var sortKeys = []SortKey{SortByName, SortBySize, SortBySeeders, SortByLeechers, SortByRatio, SortByDate, SortBySource}

// SortKeys lists every supported sort key.
func SortKeys() []SortKey {
	return append([]SortKey(nil), sortKeys...)
}

// ParseSortKey matches s case-insensitively against the supported keys.
// An empty string maps to seeders.
func ParseSortKey(s string) (SortKey, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortBySeeders, true
	}
	for _, k := range sortKeys {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Sort selects the ordering of a result set. The zero value sorts by seeders, highest first.
type Sort struct {
	Key       SortKey `json:"key"`
	Ascending bool    `json:"ascending"`
}

func (s Sort) normalized() Sort {
	if key, ok := ParseSortKey(string(s.Key)); ok {
		s.Key = key
	} else {
		s.Key = SortBySeeders
	}
	return s
}

// SearchRequest is a keyword query across a set of providers.
type SearchRequest struct {
	// Query is the search term, must not be blank
	Query string `json:"query"`
	// Providers to query, at least one required
	Providers []string `json:"providers"`
	// Category key, defaults to "all"
	Category string `json:"category,omitempty"`
	// Sort order, defaults to seeders descending
	Sort Sort `json:"sort"`
	// MinSeeders drops records with fewer seeders
	MinSeeders int `json:"minSeeders,omitempty"`
	// HideDead drops records without seeders
	HideDead bool `json:"hideDead,omitempty"`
}

// TrendingRequest asks each provider for its currently popular listings.
type TrendingRequest struct {
	Providers  []string `json:"providers"`
	Category   string   `json:"category,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	Sort       Sort     `json:"sort"`
	MinSeeders int      `json:"minSeeders,omitempty"`
	HideDead   bool     `json:"hideDead,omitempty"`
}

// Page is one provider response after normalization.
type Page struct {
	Records []Record
	// Skipped counts raw items dropped for lacking a magnet link
	Skipped int
	// Total and Elapsed are advisory values echoed by the upstream API
	Total   *int
	Elapsed *float64
}

// ProviderWarning records a provider that contributed nothing because it failed.
type ProviderWarning struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// Outcome labels used for logging and metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// ProviderOutcome summarises one provider call within a fan-out.
type ProviderOutcome struct {
	Provider string        `json:"provider"`
	Outcome  string        `json:"outcome"`
	Records  int           `json:"records"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

type StatusKind string

const (
	StatusOK             StatusKind = "ok"
	StatusInvalidRequest StatusKind = "invalid_request"
)

// Status describes how a query ended. Count always equals the number of returned records.
type Status struct {
	Kind     StatusKind        `json:"kind"`
	Message  string            `json:"message"`
	Count    int               `json:"count"`
	Skipped  int               `json:"skipped,omitempty"`
	Warnings []ProviderWarning `json:"warnings,omitempty"`
}

// OK reports whether the query ran.
func (s Status) OK() bool {
	return s.Kind == StatusOK
}
