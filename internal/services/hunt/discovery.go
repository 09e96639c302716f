// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/avast/retry-go"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/torrenthunt/internal/models"
)

const discoveryCacheKey = "sites"

const (
	ProviderSourceRemote   = "remote"
	ProviderSourceRegistry = "registry"
)

var errNoSites = errors.New("site list is empty")

// RemoteSite is a provider advertised by the upstream API.
type RemoteSite struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ProviderList is the outcome of provider discovery.
type ProviderList struct {
	Providers []models.Provider `json:"providers"`
	Source    string            `json:"source"`
	Warning   string            `json:"warning,omitempty"`
}

// FetchSites reads /api/v1/sites/config. Several payload shapes are accepted:
// a data object keyed by slug, a data array of site objects, a bare string, or
// a root object keyed by slug.
func (c *Client) FetchSites(ctx context.Context) ([]RemoteSite, error) {
	body, err := c.get(ctx, "sites", "/api/v1/sites/config", nil)
	if err != nil {
		return nil, err
	}
	sites, err := parseSites(body)
	if err != nil {
		return nil, fmt.Errorf("parse site list: %w", err)
	}
	return sites, nil
}

func parseSites(body []byte) ([]RemoteSite, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, err
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, errors.New("site list is not an object")
	}

	var sites []RemoteSite
	add := func(key, name string) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		sites = append(sites, RemoteSite{Key: key, Name: firstNonEmpty(name, key)})
	}

	switch data := obj["data"].(type) {
	case map[string]any:
		collectSiteObject(data, add)
	case []any:
		for _, v := range data {
			site, ok := v.(map[string]any)
			if !ok {
				continue
			}
			add(firstStringField(site, "slug", "key", "id"), firstStringField(site, "website", "name", "title"))
		}
	case string:
		add(data, data)
	default:
		collectSiteObject(obj, add)
	}

	if len(sites) == 0 {
		return nil, errNoSites
	}
	sort.SliceStable(sites, func(i, j int) bool {
		a, b := strings.ToLower(sites[i].Name), strings.ToLower(sites[j].Name)
		if a == b {
			return sites[i].Key < sites[j].Key
		}
		return a < b
	})
	return sites, nil
}

func collectSiteObject(obj map[string]any, add func(key, name string)) {
	for slug, value := range obj {
		switch v := value.(type) {
		case map[string]any:
			add(slug, firstStringField(v, "website", "name", "title"))
		case []any:
			for _, item := range v {
				site, ok := item.(map[string]any)
				if !ok {
					continue
				}
				inner := firstNonEmpty(firstStringField(site, "slug", "key", "id"), slug)
				add(inner, firstStringField(site, "website", "name", "title"))
			}
		case string:
			add(slug, v)
		default:
			add(slug, slug)
		}
	}
}

func firstStringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// DiscoverProviders asks the upstream API which sites it serves and merges the
// answer with the registry. Results are cached; any failure falls back to the
// registry catalogue.
func (s *Service) DiscoverProviders(ctx context.Context) ProviderList {
	if cached, ok := s.discoveryCache.Get(discoveryCacheKey); ok {
		list := cached.(ProviderList)
		list.Providers = slices.Clone(list.Providers)
		return list
	}

	if s.sites == nil {
		return ProviderList{Providers: s.registry.Providers(), Source: ProviderSourceRegistry}
	}

	var sites []RemoteSite
	err := retry.Do(
		func() error {
			var err error
			sites, err = s.sites.FetchSites(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.discoveryAttempts),
		retry.Delay(s.discoveryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("attempt", n+1).Msg("Retrying provider discovery")
		}),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Provider discovery failed, using built-in list")
		return ProviderList{
			Providers: s.registry.Providers(),
			Source:    ProviderSourceRegistry,
			Warning:   err.Error(),
		}
	}

	list := ProviderList{Providers: s.mergeSites(sites), Source: ProviderSourceRemote}
	s.discoveryCache.Set(discoveryCacheKey, list, cache.DefaultExpiration)
	list.Providers = slices.Clone(list.Providers)
	return list
}

// mergeSites resolves remote sites against the registry. Unknown sites keep the
// advertised name with fallback presentation metadata.
func (s *Service) mergeSites(sites []RemoteSite) []models.Provider {
	out := make([]models.Provider, 0, len(sites))
	seen := make(map[string]struct{}, len(sites))
	for _, site := range sites {
		if _, dup := seen[site.Key]; dup {
			continue
		}
		seen[site.Key] = struct{}{}

		if p, ok := s.registry.Provider(site.Key); ok {
			out = append(out, p)
			continue
		}
		p := s.registry.ResolveProvider(site.Key)
		p.Name = site.Name
		out = append(out, p)
	}
	return out
}
