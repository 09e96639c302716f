// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rivo/uniseg"
	"golang.org/x/term"

	"github.com/autobrr/torrenthunt/internal/models"
	"github.com/autobrr/torrenthunt/internal/services/hunt"
)

const (
	defaultTableWidth = 120
	minNameWidth      = 20
	maxSuggestions    = 3
	// #, size, seeders, leechers, ratio and provider columns plus padding
	fixedColumnsWidth = 4 + 11 + 8 + 8 + 7 + 14 + 12
)

// terminalWidth returns the width of stdout, or a default when it is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultTableWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultTableWidth
	}
	return width
}

func printRecords(w io.Writer, records []hunt.Record, width int) {
	nameWidth := max(minNameWidth, width-fixedColumnsWidth)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSIZE\tSEED\tLEECH\tRATIO\tPROVIDER")
	for i, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			i+1,
			truncate(rec.Name, nameWidth),
			displaySize(rec),
			rec.Seeders,
			rec.Leechers,
			displayRatio(rec),
			rec.ProviderName,
		)
	}
	tw.Flush()
}

func printStatus(w io.Writer, status hunt.Status) {
	fmt.Fprintln(w, status.Message)
	if status.Skipped > 0 {
		fmt.Fprintf(w, "%d results without magnet links were skipped\n", status.Skipped)
	}
	for _, warning := range status.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning.Message)
	}
}

func printMagnets(w io.Writer, records []hunt.Record) {
	for _, rec := range records {
		fmt.Fprintln(w, rec.Magnet)
	}
}

func printProviders(w io.Writer, list hunt.ProviderList) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tENABLED\tDESCRIPTION")
	for _, p := range list.Providers {
		fmt.Fprintf(tw, "%s\t%s %s\t%t\t%s\n", p.Key, p.Icon, p.Name, p.Enabled, p.Description)
	}
	tw.Flush()
	if list.Warning != "" {
		fmt.Fprintf(w, "warning: remote discovery failed, showing built-in providers: %s\n", list.Warning)
	}
}

func printCategories(w io.Writer, categories []models.Category) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tKEYWORDS")
	for _, c := range categories {
		keywords := strings.Join(c.Keywords, ", ")
		if c.MatchesAll() {
			keywords = "(everything)"
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\n", c.Key, c.Icon, c.Name, keywords)
	}
	tw.Flush()
}

func displaySize(rec hunt.Record) string {
	if b := rec.SizeBytes(); b > 0 {
		return humanize.IBytes(uint64(b))
	}
	if rec.Size == "" {
		return "-"
	}
	return rec.Size
}

func displayRatio(rec hunt.Record) string {
	if rec.Leechers <= 0 {
		return "inf"
	}
	return strconv.FormatFloat(rec.Ratio(), 'f', 2, 64)
}

// truncate shortens s to at most width display columns, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}

	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if used+w > width-1 {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	b.WriteString("…")
	return b.String()
}

// suggestProviders returns registry keys that fuzzily match an unknown key,
// closest first.
func suggestProviders(input string, keys []string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	type candidate struct {
		key   string
		score int
	}
	var candidates []candidate
	for _, key := range keys {
		score := -1
		switch {
		case fuzzy.MatchNormalizedFold(input, key):
			score = fuzzy.RankMatchNormalizedFold(input, key)
		case fuzzy.MatchNormalizedFold(key, input):
			score = fuzzy.RankMatchNormalizedFold(key, input)
		}
		if score >= 0 {
			candidates = append(candidates, candidate{key: key, score: score})
		}
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		if a.score != b.score {
			return a.score - b.score
		}
		return strings.Compare(a.key, b.key)
	})

	out := make([]string, 0, min(len(candidates), maxSuggestions))
	for _, c := range candidates[:min(len(candidates), maxSuggestions)] {
		out = append(out, c.key)
	}
	return out
}

// warnUnknownProviders prints a hint for every key missing from the registry.
// The keys are still forwarded to the API, which may know providers we don't.
func warnUnknownProviders(w io.Writer, registry *models.Registry, providers []string) {
	known := registry.ProviderKeys()
	for _, p := range providers {
		if _, ok := registry.Provider(p); ok {
			continue
		}
		msg := fmt.Sprintf("unknown provider %q, forwarding as-is", p)
		if suggestions := suggestProviders(p, known); len(suggestions) > 0 {
			msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(suggestions, ", "))
		}
		fmt.Fprintln(w, msg)
	}
}
