// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/torrenthunt/internal/api/handlers"
	"github.com/autobrr/torrenthunt/internal/models"
	"github.com/autobrr/torrenthunt/internal/services/hunt"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{name: "fits", in: "short", width: 10, want: "short"},
		{name: "exact", in: "exactly10!", width: 10, want: "exactly10!"},
		{name: "ascii", in: "hello world", width: 8, want: "hello w…"},
		{name: "wide runes", in: "日本語テキスト", width: 7, want: "日本語…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.width))
		})
	}
}

func TestSuggestProviders(t *testing.T) {
	reg, err := models.DefaultRegistry()
	require.NoError(t, err)
	keys := reg.ProviderKeys()

	tests := []struct {
		input string
		want  []string
	}{
		{input: "pirate", want: []string{"piratebay"}},
		{input: "PiratBay", want: []string{"piratebay"}},
		{input: "ytss", want: []string{"yts"}},
		{input: "qqq", want: []string{}},
		{input: "  ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, suggestProviders(tt.input, keys))
		})
	}

	t.Run("closest first and capped", func(t *testing.T) {
		got := suggestProviders("x", keys)
		require.NotEmpty(t, got)
		assert.LessOrEqual(t, len(got), maxSuggestions)
		assert.Equal(t, "1337x", got[0])
	})
}

func TestWarnUnknownProviders(t *testing.T) {
	reg, err := models.DefaultRegistry()
	require.NoError(t, err)

	var buf bytes.Buffer
	warnUnknownProviders(&buf, reg, []string{"yts", "piratbay", "qqq"})

	out := buf.String()
	assert.NotContains(t, out, `"yts"`)
	assert.Contains(t, out, `unknown provider "piratbay", forwarding as-is (did you mean: piratebay?)`)
	assert.Contains(t, out, `unknown provider "qqq", forwarding as-is`+"\n")
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	printRecords(&buf, []hunt.Record{
		{Name: "Some.Release.1080p", Size: "1.5 GB", Seeders: 10, Leechers: 4, ProviderName: "YTS"},
		{Name: "Other", Size: "N/A", Seeders: 3, ProviderName: "EZTV"},
	}, 80)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[1], "1.5 GiB")
	assert.Contains(t, lines[1], "2.50")
	assert.Contains(t, lines[2], "N/A")
	assert.Contains(t, lines[2], "inf")
}

func TestResolveConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom")
	require.NoError(t, os.WriteFile(file, []byte(""), 0o644))

	assert.Equal(t, "/etc/hunt.toml", resolveConfigFile("/etc/hunt.toml"))
	assert.Equal(t, file, resolveConfigFile(file))
	assert.Equal(t, filepath.Join(dir, "config.toml"), resolveConfigFile(dir))
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, loadEnvFile(""))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HUNT_TEST_FROM_DOTENV=loaded\n"), 0o644))
	t.Setenv("HUNT_TEST_FROM_DOTENV", "")
	os.Unsetenv("HUNT_TEST_FROM_DOTENV")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("HUNT_TEST_FROM_DOTENV"))
}

func newCLIUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("site") == "eztv" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[
			{"name":"Low Seeds","size":"700 MB","seeders":"2","leechers":"1","magnet":"magnet:?xt=urn:btih:0123456789abcdef0123456789abcdef01234567"},
			{"name":"High Seeds","size":"1.4 GB","seeders":"90","leechers":"3","magnet":"magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a"}
		]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, cmdArgs ...string) (string, string, error) {
	t.Helper()
	srv := newCLIUpstream(t)
	t.Setenv("HUNT__API_URL", srv.URL)
	t.Setenv("HUNT__REQUEST_TIMEOUT_SECONDS", "2")

	flags := &globalFlags{configDir: t.TempDir(), logLevel: "error"}
	var cmd = RunSearchCommand(flags)
	if cmdArgs[0] == "trending" {
		cmd = RunTrendingCommand(flags)
	}

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(cmdArgs[1:])
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSearchCommand(t *testing.T) {
	t.Run("table output", func(t *testing.T) {
		stdout, _, err := runCLI(t, "search", "ubuntu", "-p", "yts,eztv")
		require.NoError(t, err)

		assert.Less(t, strings.Index(stdout, "High Seeds"), strings.Index(stdout, "Low Seeds"))
		assert.Contains(t, stdout, "Found 2 torrents")
		assert.Contains(t, stdout, "warning: provider eztv unavailable (status 502)")
	})

	t.Run("magnets only", func(t *testing.T) {
		stdout, _, err := runCLI(t, "search", "ubuntu", "-p", "yts", "--magnets", "--sort", "seeders", "--asc")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "0123456789abcdef")
	})

	t.Run("json output", func(t *testing.T) {
		stdout, _, err := runCLI(t, "search", "ubuntu", "-p", "yts", "--json", "--min-seeders", "10")
		require.NoError(t, err)

		var resp handlers.QueryResponse
		require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
		require.Len(t, resp.Records, 1)
		assert.Equal(t, "High Seeds", resp.Records[0].Name)
	})

	t.Run("blank query fails", func(t *testing.T) {
		_, _, err := runCLI(t, "search", "   ", "-p", "yts")
		require.EqualError(t, err, hunt.MsgEnterSearchTerm)
	})

	t.Run("bad sort key", func(t *testing.T) {
		_, _, err := runCLI(t, "search", "ubuntu", "--sort", "hype")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown sort key")
	})

	t.Run("unknown provider is suggested and forwarded", func(t *testing.T) {
		stdout, stderr, err := runCLI(t, "search", "ubuntu", "-p", "ytss")
		require.NoError(t, err)
		assert.Contains(t, stderr, "did you mean: yts?")
		assert.Contains(t, stdout, "Found 2 torrents")
	})
}

func TestTrendingCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "trending", "-p", "yts", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "High Seeds")
	assert.NotContains(t, stdout, "Low Seeds")
	assert.Contains(t, stdout, "Loaded 1 trending torrents")

	_, _, err = runCLI(t, "trending", "-n", "-3")
	require.Error(t, err)
}
