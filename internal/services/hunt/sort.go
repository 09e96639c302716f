// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
)

type sizeUnit struct {
	suffix     string
	multiplier float64
}

// Longest suffix first so "GIB" is not read as "B". Decimal-looking units are
// 1024-based like the binary ones.
var sizeUnits = []sizeUnit{
	{"KIB", 1 << 10},
	{"MIB", 1 << 20},
	{"GIB", 1 << 30},
	{"TIB", 1 << 40},
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"TB", 1 << 40},
	{"B", 1},
}

// SizeToBytes converts a human readable size such as "1.4 GB" to bytes.
// Blank, "N/A" and unparsable input yield 0.
func SizeToBytes(size string) int64 {
	s := strings.ToUpper(strings.TrimSpace(size))
	if s == "" || s == "N/A" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	for _, unit := range sizeUnits {
		if strings.HasSuffix(s, unit.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			multiplier = unit.multiplier
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || value <= 0 {
		return 0
	}
	bytes := value * multiplier
	if bytes >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(bytes)
}

// SortRecords returns a sorted copy of records. Equal keys keep their input
// order in both directions. Unknown keys sort by seeders.
func SortRecords(records []Record, key SortKey, descending bool) []Record {
	out := slices.Clone(records)
	compare := comparatorFor(key)
	slices.SortStableFunc(out, func(a, b Record) int {
		if descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

// Apply sorts records using s, defaulting to seeders descending.
func (s Sort) Apply(records []Record) []Record {
	s = s.normalized()
	return SortRecords(records, s.Key, !s.Ascending)
}

func comparatorFor(key SortKey) func(a, b Record) int {
	switch key {
	case SortByName:
		return func(a, b Record) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortBySize:
		return func(a, b Record) int {
			return cmp.Compare(a.SizeBytes(), b.SizeBytes())
		}
	case SortByLeechers:
		return func(a, b Record) int {
			return cmp.Compare(a.Leechers, b.Leechers)
		}
	case SortByRatio:
		return func(a, b Record) int {
			return cmp.Compare(a.Ratio(), b.Ratio())
		}
	case SortByDate:
		return func(a, b Record) int {
			return cmp.Compare(a.Date, b.Date)
		}
	case SortBySource:
		return func(a, b Record) int {
			return cmp.Compare(a.ProviderName, b.ProviderName)
		}
	default:
		return func(a, b Record) int {
			return cmp.Compare(a.Seeders, b.Seeders)
		}
	}
}
