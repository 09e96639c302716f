// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"sync"
	"time"
)

const DefaultHistoryCapacity = 50

// HistoryEntry summarises one completed query.
type HistoryEntry struct {
	ID         uint64            `json:"id"`
	Kind       Kind              `json:"kind"`
	Query      string            `json:"query,omitempty"`
	Providers  []string          `json:"providers"`
	Category   string            `json:"category"`
	Count      int               `json:"count"`
	Skipped    int               `json:"skipped"`
	Warnings   []ProviderWarning `json:"warnings,omitempty"`
	Outcomes   []ProviderOutcome `json:"outcomes,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	DurationMs int64             `json:"durationMs"`
}

// HistoryBuffer is a fixed-size ring of recent queries.
type HistoryBuffer struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	next    int
	count   int
	lastID  uint64
}

func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryBuffer{entries: make([]HistoryEntry, capacity)}
}

// Add stores entry, overwriting the oldest one when full, and returns it with its ID set.
func (b *HistoryBuffer) Add(entry HistoryEntry) HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	entry.ID = b.lastID
	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
	return entry
}

// List returns up to limit entries, newest first. A non-positive limit returns all of them.
func (b *HistoryBuffer) List(limit int) []HistoryEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > b.count {
		limit = b.count
	}
	out := make([]HistoryEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (b.next - i + len(b.entries)) % len(b.entries)
		out = append(out, b.entries[idx])
	}
	return out
}

func (b *HistoryBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

func (b *HistoryBuffer) Capacity() int {
	return len(b.entries)
}
