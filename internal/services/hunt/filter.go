// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"strings"

	"github.com/autobrr/torrenthunt/internal/models"
)

// MatchesCategory reports whether the record's name or category text contains
// one of the category keywords. A nil or keyword-less category matches everything.
func MatchesCategory(rec Record, category *models.Category) bool {
	if category == nil || category.MatchesAll() {
		return true
	}
	haystack := strings.ToLower(rec.Name + " " + rec.Category)
	for _, kw := range category.Keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// FilterByCategory keeps the records matching the category key. Unknown keys
// and "all" return the input unchanged.
func FilterByCategory(records []Record, key string, registry *models.Registry) []Record {
	category, ok := registry.Category(key)
	if !ok || category.MatchesAll() {
		return records
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if MatchesCategory(rec, &category) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterBySeeders drops records below minSeeders, and dead ones when hideDead is set.
func FilterBySeeders(records []Record, minSeeders int, hideDead bool) []Record {
	if minSeeders <= 0 && !hideDead {
		return records
	}
	if hideDead {
		minSeeders = max(minSeeders, 1)
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Seeders >= minSeeders {
			out = append(out, rec)
		}
	}
	return out
}
