// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

// MaxRecordsPerProvider caps how many records a single provider response may contribute.
const MaxRecordsPerProvider = 50

var (
	errMissingData  = errors.New("response has neither data nor results")
	errDataNotArray = errors.New("response data is not a list")
)

// envelope is the upstream response wrapper. Only data/results is required.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Results json.RawMessage `json:"results"`
	Time    *flexFloat      `json:"time"`
	Total   *flexInt        `json:"total"`
	Success *bool           `json:"success"`
	Error   json.RawMessage `json:"error"`
	Message flexString      `json:"message"`
}

// apiError returns the failure the API reported inside a 2xx response, if any.
func (e *envelope) apiError() (string, bool) {
	if e.Success != nil && !*e.Success {
		return firstNonEmpty(errorText(e.Error), string(e.Message), "request was not successful"), true
	}
	raw := bytes.TrimSpace(e.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	switch raw[0] {
	case '"':
		if msg := errorText(raw); msg != "" {
			return msg, true
		}
	case 't':
		return firstNonEmpty(string(e.Message), "provider reported an error"), true
	case '{':
		return firstNonEmpty(errorText(raw), string(e.Message), "provider reported an error"), true
	}
	return "", false
}

func errorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

func (e *envelope) items() ([]json.RawMessage, error) {
	raw := e.Data
	if isJSONNull(raw) {
		raw = e.Results
	}
	if isJSONNull(raw) {
		return nil, errMissingData
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errDataNotArray
	}
	return items, nil
}

func isJSONNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// rawItem accepts the field spellings seen across upstream deployments.
type rawItem struct {
	Name       flexString `json:"name"`
	Title      flexString `json:"title"`
	Size       flexString `json:"size"`
	FileSize   flexString `json:"filesize"`
	Seeders    flexInt    `json:"seeders"`
	Leechers   flexInt    `json:"leechers"`
	Magnet     flexString `json:"magnet"`
	MagnetLink flexString `json:"magnetLink"`
	MagnetSnak flexString `json:"magnet_link"`
	URL        flexString `json:"url"`
	Link       flexString `json:"link"`
	Page       flexString `json:"page"`
	Category   flexString `json:"category"`
	Uploader   flexString `json:"uploader"`
	Author     flexString `json:"author"`
	UploadedBy flexString `json:"uploaded_by"`
	Date       flexString `json:"date"`
	Hash       flexString `json:"hash"`
}

func (it rawItem) toRecord(provider string) (Record, bool) {
	magnet := firstNonEmpty(string(it.Magnet), string(it.MagnetLink), string(it.MagnetSnak))
	if magnet == "" {
		return Record{}, false
	}

	rec := Record{
		Name:     firstNonEmpty(string(it.Name), string(it.Title)),
		Size:     firstNonEmpty(string(it.Size), string(it.FileSize)),
		Seeders:  max(int(it.Seeders), 0),
		Leechers: max(int(it.Leechers), 0),
		Magnet:   magnet,
		URL:      firstNonEmpty(string(it.URL), string(it.Link), string(it.Page)),
		Category: string(it.Category),
		Uploader: firstNonEmpty(string(it.Uploader), string(it.Author), string(it.UploadedBy)),
		Date:     string(it.Date),
		Hash:     string(it.Hash),
		Provider: provider,
	}
	if rec.Hash == "" {
		rec.Hash = infoHashFromMagnet(magnet)
	}
	return rec, true
}

// parsePage decodes an upstream response body. Records are tagged with the
// requested provider key, never a key found in the payload.
func parsePage(provider string, body []byte) (Page, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Page{}, fmt.Errorf("decode response: %w", err)
	}
	if msg, failed := env.apiError(); failed {
		return Page{}, errors.New(msg)
	}

	items, err := env.items()
	if err != nil {
		return Page{}, err
	}

	page := Page{Records: make([]Record, 0, min(len(items), MaxRecordsPerProvider))}
	for _, raw := range items {
		var it rawItem
		if err := json.Unmarshal(raw, &it); err != nil {
			page.Skipped++
			continue
		}
		rec, ok := it.toRecord(provider)
		if !ok {
			page.Skipped++
			continue
		}
		if len(page.Records) >= MaxRecordsPerProvider {
			continue
		}
		page.Records = append(page.Records, rec)
	}

	if env.Total != nil {
		total := int(*env.Total)
		page.Total = &total
	}
	if env.Time != nil {
		elapsed := float64(*env.Time)
		page.Elapsed = &elapsed
	}
	return page, nil
}

func infoHashFromMagnet(magnet string) string {
	if !strings.HasPrefix(strings.ToLower(magnet), "magnet:") {
		return ""
	}
	m, err := metainfo.ParseMagnetUri(magnet)
	if err != nil {
		return ""
	}
	return m.InfoHash.HexString()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// flexString accepts strings and numbers; anything else decodes to "".
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*s = ""
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			*s = ""
			return nil
		}
		*s = flexString(v)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = flexString(b)
	default:
		*s = ""
	}
	return nil
}

// flexInt accepts JSON numbers and numeric strings such as "1,234".
// Anything unparsable decodes to 0.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	*n = flexInt(parseFlexNumber(b))
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			*f = flexFloat(parsed)
			return nil
		}
	}
	*f = 0
	return nil
}

func parseFlexNumber(b []byte) int64 {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}

	var text string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return 0
		}
		text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	} else {
		text = string(b)
	}
	if text == "" {
		return 0
	}

	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int64(f)
}
