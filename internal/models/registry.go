// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	CategoryAll = "all"

	FallbackProviderIcon  = "🔗"
	FallbackProviderColor = "#666666"
)

//go:embed registry.yaml
var defaultRegistryYAML []byte

var ErrEmptyKey = errors.New("registry entry has an empty key")

// Provider describes a torrent listing site the upstream API can query.
type Provider struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Icon        string `json:"icon" yaml:"icon"`
	Color       string `json:"color" yaml:"color"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Category groups lowercase keyword fragments used to approximate content type.
type Category struct {
	Key         string   `json:"key" yaml:"key"`
	Name        string   `json:"name" yaml:"name"`
	Icon        string   `json:"icon" yaml:"icon"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
}

// MatchesAll reports whether the category accepts every record.
func (c Category) MatchesAll() bool {
	return c.Key == CategoryAll || len(c.Keywords) == 0
}

type registryFile struct {
	Providers  []Provider `yaml:"providers"`
	Categories []Category `yaml:"categories"`
}

// Registry is the read-only provider and category catalogue.
// It is built once and shared by reference; nothing mutates it afterwards.
type Registry struct {
	providers     []Provider
	providerIndex map[string]int
	categories    []Category
	categoryIndex map[string]int
}

// NewRegistry validates and indexes the given entries. Keys are trimmed,
// category keywords lowercased, and later duplicates are rejected.
func NewRegistry(providers []Provider, categories []Category) (*Registry, error) {
	r := &Registry{
		providers:     make([]Provider, 0, len(providers)),
		providerIndex: make(map[string]int, len(providers)),
		categories:    make([]Category, 0, len(categories)+1),
		categoryIndex: make(map[string]int, len(categories)+1),
	}

	for _, p := range providers {
		p.Key = strings.TrimSpace(p.Key)
		if p.Key == "" {
			return nil, fmt.Errorf("provider %q: %w", p.Name, ErrEmptyKey)
		}
		if _, dup := r.providerIndex[p.Key]; dup {
			return nil, fmt.Errorf("duplicate provider key %q", p.Key)
		}
		if strings.TrimSpace(p.Name) == "" {
			p.Name = p.Key
		}
		if p.Icon == "" {
			p.Icon = FallbackProviderIcon
		}
		if p.Color == "" {
			p.Color = FallbackProviderColor
		}
		r.providerIndex[p.Key] = len(r.providers)
		r.providers = append(r.providers, p)
	}

	for _, c := range categories {
		c.Key = strings.ToLower(strings.TrimSpace(c.Key))
		if c.Key == "" {
			return nil, fmt.Errorf("category %q: %w", c.Name, ErrEmptyKey)
		}
		if _, dup := r.categoryIndex[c.Key]; dup {
			return nil, fmt.Errorf("duplicate category key %q", c.Key)
		}
		c.Keywords = normalizeKeywords(c.Keywords)
		r.categoryIndex[c.Key] = len(r.categories)
		r.categories = append(r.categories, c)
	}

	// "all" must always exist so callers can default to it.
	if _, ok := r.categoryIndex[CategoryAll]; !ok {
		r.categoryIndex[CategoryAll] = len(r.categories)
		r.categories = append(r.categories, Category{Key: CategoryAll, Name: "All Content", Icon: "⭐"})
	}

	return r, nil
}

// LoadRegistry parses a YAML catalogue with top-level providers and categories lists.
func LoadRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return NewRegistry(file.Providers, file.Categories)
}

var loadDefaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return LoadRegistry(defaultRegistryYAML)
})

// DefaultRegistry returns the embedded catalogue, parsed on first use.
func DefaultRegistry() (*Registry, error) {
	return loadDefaultRegistry()
}

// Provider looks up a known provider by key.
func (r *Registry) Provider(key string) (Provider, bool) {
	if r == nil {
		return Provider{}, false
	}
	idx, ok := r.providerIndex[strings.TrimSpace(key)]
	if !ok {
		return Provider{}, false
	}
	return r.providers[idx], true
}

// ResolveProvider returns the provider for key, or generic metadata
// carrying the raw key as display name when the key is unknown.
func (r *Registry) ResolveProvider(key string) Provider {
	if p, ok := r.Provider(key); ok {
		return p
	}
	return Provider{
		Key:     key,
		Name:    key,
		Icon:    FallbackProviderIcon,
		Color:   FallbackProviderColor,
		Enabled: true,
	}
}

// Category looks up a category by key, case-insensitively.
func (r *Registry) Category(key string) (Category, bool) {
	if r == nil {
		return Category{}, false
	}
	idx, ok := r.categoryIndex[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Category{}, false
	}
	return r.categories[idx], true
}

// Providers returns a copy of all providers in catalogue order.
func (r *Registry) Providers() []Provider {
	if r == nil {
		return nil
	}
	return append([]Provider(nil), r.providers...)
}

// Categories returns a copy of all categories in catalogue order.
func (r *Registry) Categories() []Category {
	if r == nil {
		return nil
	}
	out := make([]Category, len(r.categories))
	for i, c := range r.categories {
		c.Keywords = append([]string(nil), c.Keywords...)
		out[i] = c
	}
	return out
}

// ProviderKeys returns every provider key in catalogue order.
func (r *Registry) ProviderKeys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		keys = append(keys, p.Key)
	}
	return keys
}

// EnabledProviderKeys returns keys of providers selected by default.
func (r *Registry) EnabledProviderKeys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Enabled {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

func normalizeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
