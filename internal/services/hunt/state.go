// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"slices"
	"sync"
	"time"
)

// Snapshot is the current query state as a presentation layer would render it.
type Snapshot struct {
	Records    []Record          `json:"records"`
	InProgress bool              `json:"inProgress"`
	Mode       Kind              `json:"mode,omitempty"`
	Status     string            `json:"status"`
	Sort       Sort              `json:"sort"`
	Warnings   []ProviderWarning `json:"warnings,omitempty"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// queryState holds the results of the most recently started query. Queries
// may overlap; only the latest generation publishes its results.
type queryState struct {
	mu         sync.RWMutex
	records    []Record
	inFlight   int
	generation uint64
	mode       Kind
	status     string
	sort       Sort
	warnings   []ProviderWarning
	updatedAt  time.Time
}

// begin marks a query as running and returns its generation.
func (s *queryState) begin(mode Kind, status string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	s.generation++
	s.mode = mode
	s.status = status
	s.updatedAt = time.Now()
	return s.generation
}

// finish ends the query started as gen. Results of a query superseded by a
// later begin are discarded.
func (s *queryState) finish(gen uint64, mode Kind, records []Record, sort Sort, status string, warnings []ProviderWarning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = max(s.inFlight-1, 0)
	if gen != s.generation {
		return
	}
	s.records = records
	s.mode = mode
	s.sort = sort
	s.status = status
	s.warnings = warnings
	s.updatedAt = time.Now()
}

// reject updates only the status text; the previous results stay visible.
func (s *queryState) reject(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.updatedAt = time.Now()
}

func (s *queryState) resort(sort Sort) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = sort.Apply(s.records)
	s.sort = sort.normalized()
	s.updatedAt = time.Now()
	return slices.Clone(s.records)
}

func (s *queryState) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Records:    slices.Clone(s.records),
		InProgress: s.inFlight > 0,
		Mode:       s.mode,
		Status:     s.status,
		Sort:       s.sort.normalized(),
		Warnings:   slices.Clone(s.warnings),
		UpdatedAt:  s.updatedAt,
	}
}
