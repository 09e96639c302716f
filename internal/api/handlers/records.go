// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/moistari/rls"

	"github.com/autobrr/torrenthunt/internal/services/hunt"
)

// ReleaseInfo is the subset of parsed release metadata shown next to a record.
type ReleaseInfo struct {
	Title      string `json:"title,omitempty"`
	Type       string `json:"type,omitempty"`
	Year       int    `json:"year,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Source     string `json:"source,omitempty"`
	Group      string `json:"group,omitempty"`
}

// RecordResponse is a record plus the fields derived from it.
type RecordResponse struct {
	ID string `json:"id"`
	hunt.Record
	SizeBytes int64  `json:"sizeBytes"`
	SizeHuman string `json:"sizeHuman,omitempty"`
	// Ratio is null when the record has no leechers; RatioInfinite is set instead
	Ratio         *float64     `json:"ratio"`
	RatioInfinite bool         `json:"ratioInfinite"`
	Quality       hunt.Quality `json:"quality"`
	Release       *ReleaseInfo `json:"release,omitempty"`
}

// NewRecordResponse derives presentation fields from rec.
func NewRecordResponse(rec hunt.Record) RecordResponse {
	resp := RecordResponse{
		ID:        RecordID(rec),
		Record:    rec,
		SizeBytes: rec.SizeBytes(),
		Quality:   rec.Quality(),
		Release:   releaseInfo(rec.Name),
	}

	if resp.SizeBytes > 0 {
		resp.SizeHuman = humanize.IBytes(uint64(resp.SizeBytes))
	}

	if ratio := rec.Ratio(); math.IsInf(ratio, 1) {
		resp.RatioInfinite = true
	} else {
		resp.Ratio = &ratio
	}

	return resp
}

// NewRecordResponses converts records preserving order. It never returns nil.
func NewRecordResponses(records []hunt.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, NewRecordResponse(rec))
	}
	return out
}

// RecordID is stable for the same provider and torrent across queries.
func RecordID(rec hunt.Record) string {
	identity := rec.Hash
	if identity == "" {
		identity = rec.Magnet
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(rec.Provider+"\x00"+identity))
}

func releaseInfo(name string) *ReleaseInfo {
	if name == "" {
		return nil
	}

	r := rls.ParseString(name)
	info := ReleaseInfo{
		Title:      r.Title,
		Year:       r.Year,
		Resolution: r.Resolution,
		Source:     r.Source,
		Group:      r.Group,
	}
	if r.Type != rls.Unknown {
		info.Type = r.Type.String()
	}

	if info == (ReleaseInfo{}) {
		return nil
	}
	return &info
}
