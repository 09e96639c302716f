// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMagnet = "magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a&dn=Example"

func TestParsePage_Envelope(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   string
		wantCount int
	}{
		{
			name:      "data list",
			body:      `{"data":[{"name":"a","magnet":"magnet:?xt=urn:btih:aa"}],"time":0.5,"total":1}`,
			wantCount: 1,
		},
		{
			name:      "results fallback",
			body:      `{"results":[{"name":"a","magnet":"m1"},{"name":"b","magnet":"m2"}]}`,
			wantCount: 2,
		},
		{
			name:      "null data falls back to results",
			body:      `{"data":null,"results":[{"name":"a","magnet":"m1"}]}`,
			wantCount: 1,
		},
		{
			name:      "empty list is fine",
			body:      `{"data":[]}`,
			wantCount: 0,
		},
		{
			name:    "missing data",
			body:    `{"time":1}`,
			wantErr: "neither data nor results",
		},
		{
			name:    "data is not a list",
			body:    `{"data":{"name":"a"}}`,
			wantErr: "not a list",
		},
		{
			name:    "success false",
			body:    `{"success":false,"message":"site is down","data":[]}`,
			wantErr: "site is down",
		},
		{
			name:    "error string",
			body:    `{"error":"Website Blocked Change IP or Website Domain"}`,
			wantErr: "Website Blocked",
		},
		{
			name:    "error true with message",
			body:    `{"error":true,"message":"upstream timeout"}`,
			wantErr: "upstream timeout",
		},
		{
			name:      "error false is not a failure",
			body:      `{"error":false,"data":[{"name":"a","magnet":"m"}]}`,
			wantCount: 1,
		},
		{
			name:    "not json",
			body:    `<html>bad gateway</html>`,
			wantErr: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := parsePage("piratebay", []byte(tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, page.Records)
				return
			}
			require.NoError(t, err)
			assert.Len(t, page.Records, tt.wantCount)
		})
	}
}

func TestParsePage_ItemNormalization(t *testing.T) {
	body := `{
		"data": [
			{"name":"Movie 2024 1080p","size":"1.4 GB","seeders":"1,234","leechers":-5,"magnet":"` + testMagnet + `","url":"https://x/1","category":"Movies","uploader":"bob","date":"2024-01-01","site":"evil","extra":{"a":1}},
			{"title":"Alt Fields","filesize":"700 MB","seeders":12.9,"leechers":"n/a","magnetLink":"magnet:?xt=urn:btih:bb","link":"https://x/2","author":"alice"},
			{"name":"Snake Case","magnet_link":"magnet:?xt=urn:btih:cc","page":"https://x/3","uploaded_by":"carol","seeders":null,"leechers":true},
			{"name":"No Magnet","seeders":100},
			"not an object",
			{"name":"Numeric Size","size":1024,"magnet":"m","hash":"ABCDEF"}
		],
		"total": "6",
		"time": 1.25
	}`

	page, err := parsePage("1337x", []byte(body))
	require.NoError(t, err)
	require.Len(t, page.Records, 4)
	assert.Equal(t, 2, page.Skipped)
	require.NotNil(t, page.Total)
	assert.Equal(t, 6, *page.Total)
	require.NotNil(t, page.Elapsed)
	assert.InDelta(t, 1.25, *page.Elapsed, 0.0001)

	first := page.Records[0]
	assert.Equal(t, "Movie 2024 1080p", first.Name)
	assert.Equal(t, "1.4 GB", first.Size)
	assert.Equal(t, 1234, first.Seeders)
	assert.Equal(t, 0, first.Leechers, "negative counts clamp to zero")
	assert.Equal(t, testMagnet, first.Magnet, "magnet passes through unmodified")
	assert.Equal(t, "https://x/1", first.URL)
	assert.Equal(t, "Movies", first.Category)
	assert.Equal(t, "bob", first.Uploader)
	assert.Equal(t, "2024-01-01", first.Date)
	assert.Equal(t, "c12fe1c06bba254a9dc9f519b335aa7c1367a88a", first.Hash)
	assert.Equal(t, "1337x", first.Provider, "provider comes from the request, not the payload")

	second := page.Records[1]
	assert.Equal(t, "Alt Fields", second.Name)
	assert.Equal(t, "700 MB", second.Size)
	assert.Equal(t, 12, second.Seeders)
	assert.Equal(t, 0, second.Leechers)
	assert.Equal(t, "magnet:?xt=urn:btih:bb", second.Magnet)
	assert.Equal(t, "https://x/2", second.URL)
	assert.Equal(t, "alice", second.Uploader)

	third := page.Records[2]
	assert.Equal(t, "magnet:?xt=urn:btih:cc", third.Magnet)
	assert.Equal(t, "https://x/3", third.URL)
	assert.Equal(t, "carol", third.Uploader)
	assert.Zero(t, third.Seeders)
	assert.Zero(t, third.Leechers)

	fourth := page.Records[3]
	assert.Equal(t, "1024", fourth.Size)
	assert.Equal(t, "ABCDEF", fourth.Hash, "provided hash wins over derivation")
}

func TestParsePage_CapsRecordsPerProvider(t *testing.T) {
	items := make([]string, 0, MaxRecordsPerProvider+10)
	for i := range MaxRecordsPerProvider + 10 {
		items = append(items, fmt.Sprintf(`{"name":"r%d","magnet":"m%d"}`, i, i))
	}
	body := `{"data":[` + strings.Join(items, ",") + `]}`

	page, err := parsePage("yts", []byte(body))
	require.NoError(t, err)
	assert.Len(t, page.Records, MaxRecordsPerProvider)
	assert.Equal(t, "r0", page.Records[0].Name)
	assert.Zero(t, page.Skipped)
}

func TestInfoHashFromMagnet(t *testing.T) {
	tests := []struct {
		name   string
		magnet string
		want   string
	}{
		{name: "hex info-hash", magnet: testMagnet, want: "c12fe1c06bba254a9dc9f519b335aa7c1367a88a"},
		{name: "not a magnet", magnet: "https://example.com/file.torrent", want: ""},
		{name: "magnet without xt", magnet: "magnet:?dn=nothing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, infoHashFromMagnet(tt.magnet))
		})
	}
}

func TestParseFlexNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`"1,234,567"`, 1234567},
		{`3.9`, 3},
		{`"  7 "`, 7},
		{`"abc"`, 0},
		{`""`, 0},
		{`null`, 0},
		{`true`, 0},
		{`[1]`, 0},
		{`-3`, -3},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseFlexNumber([]byte(tt.in)))
		})
	}
}
