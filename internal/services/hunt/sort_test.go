// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeToBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"750 MB", 750 * 1024 * 1024},
		{"", 0},
		{"N/A", 0},
		{"n/a", 0},
		{"   ", 0},
		{"1 GB", 1 << 30},
		{"1.5 GiB", 3 << 29},
		{"2 TB", 2 << 40},
		{"1 TiB", 1 << 40},
		{"512 KB", 512 << 10},
		{"512 kib", 512 << 10},
		{"100 B", 100},
		{"100", 100},
		{"1,024 MB", 1024 << 20},
		{"  3.2gb ", 3435973836},
		{"abc MB", 0},
		{"MB", 0},
		{"-5 GB", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SizeToBytes(tt.in))
		})
	}
}

func TestRecord_Ratio(t *testing.T) {
	assert.True(t, math.IsInf(Record{Seeders: 0, Leechers: 0}.Ratio(), 1))
	assert.True(t, math.IsInf(Record{Seeders: 10, Leechers: 0}.Ratio(), 1))
	assert.InDelta(t, 2.0, Record{Seeders: 10, Leechers: 5}.Ratio(), 1e-9)
	assert.InDelta(t, 0.0, Record{Seeders: 0, Leechers: 5}.Ratio(), 1e-9)
}

func TestRecord_Quality(t *testing.T) {
	tests := []struct {
		seeders int
		want    Quality
	}{
		{0, QualityPoor},
		{9, QualityPoor},
		{10, QualityAverage},
		{49, QualityAverage},
		{50, QualityGood},
		{99, QualityGood},
		{100, QualityExcellent},
		{5000, QualityExcellent},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Record{Seeders: tt.seeders}.Quality(), "seeders=%d", tt.seeders)
	}
}

func recordNames(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestSortRecords_Seeders(t *testing.T) {
	records := []Record{
		{Name: "five", Seeders: 5},
		{Name: "hundred", Seeders: 100},
		{Name: "fifty", Seeders: 50},
		{Name: "ten", Seeders: 10},
	}

	got := SortRecords(records, SortBySeeders, true)
	seeders := make([]int, 0, len(got))
	for _, r := range got {
		seeders = append(seeders, r.Seeders)
	}
	assert.Equal(t, []int{100, 50, 10, 5}, seeders)
	assert.Equal(t, "five", records[0].Name, "input is not reordered")
}

func TestSortRecords_Size(t *testing.T) {
	records := []Record{
		{Name: "one", Size: "1 GB"},
		{Name: "half", Size: "500 MB"},
		{Name: "two", Size: "2 TB"},
	}

	got := SortRecords(records, SortBySize, false)
	sizes := make([]string, 0, len(got))
	for _, r := range got {
		sizes = append(sizes, r.Size)
	}
	assert.Equal(t, []string{"500 MB", "1 GB", "2 TB"}, sizes)
}

func TestSortRecords_Keys(t *testing.T) {
	records := []Record{
		{Name: "bravo", Seeders: 10, Leechers: 5, Date: "2024-02-01", ProviderName: "Zeta"},
		{Name: "Alpha", Seeders: 3, Leechers: 0, Date: "2023-12-31", ProviderName: "alpha"},
		{Name: "charlie", Seeders: 20, Leechers: 1, Date: "2024-01-15", ProviderName: "Beta"},
	}

	tests := []struct {
		name       string
		key        SortKey
		descending bool
		want       []string
	}{
		{name: "name ascending ignores case", key: SortByName, want: []string{"Alpha", "bravo", "charlie"}},
		{name: "leechers descending", key: SortByLeechers, descending: true, want: []string{"bravo", "charlie", "Alpha"}},
		{name: "ratio descending puts infinite first", key: SortByRatio, descending: true, want: []string{"Alpha", "charlie", "bravo"}},
		{name: "ratio ascending puts infinite last", key: SortByRatio, want: []string{"bravo", "charlie", "Alpha"}},
		{name: "date ascending is lexicographic", key: SortByDate, want: []string{"Alpha", "charlie", "bravo"}},
		{name: "source is case sensitive", key: SortBySource, want: []string{"charlie", "bravo", "Alpha"}},
		{name: "unknown key falls back to seeders", key: SortKey("bogus"), descending: true, want: []string{"charlie", "bravo", "Alpha"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recordNames(SortRecords(records, tt.key, tt.descending)))
		})
	}
}

func TestSortRecords_TiesKeepAggregationOrder(t *testing.T) {
	records := []Record{
		{Name: "first", Seeders: 10},
		{Name: "top", Seeders: 99},
		{Name: "second", Seeders: 10},
		{Name: "third", Seeders: 10},
	}

	assert.Equal(t, []string{"top", "first", "second", "third"}, recordNames(SortRecords(records, SortBySeeders, true)))
	assert.Equal(t, []string{"first", "second", "third", "top"}, recordNames(SortRecords(records, SortBySeeders, false)))
}

func TestSort_Apply(t *testing.T) {
	records := []Record{
		{Name: "b", Seeders: 1},
		{Name: "a", Seeders: 2},
	}

	assert.Equal(t, []string{"a", "b"}, recordNames(Sort{}.Apply(records)), "zero value sorts by seeders descending")
	assert.Equal(t, []string{"b", "a"}, recordNames(Sort{Key: SortBySeeders, Ascending: true}.Apply(records)))
	assert.Equal(t, []string{"a", "b"}, recordNames(Sort{Key: "NAME", Ascending: true}.Apply(records)))
}

func TestParseSortKey(t *testing.T) {
	key, ok := ParseSortKey(" Ratio ")
	assert.True(t, ok)
	assert.Equal(t, SortByRatio, key)

	key, ok = ParseSortKey("")
	assert.True(t, ok)
	assert.Equal(t, SortBySeeders, key)

	_, ok = ParseSortKey("popularity")
	assert.False(t, ok)
}
