// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// Config is the application configuration unmarshaled by viper.
type Config struct {
	Version string `toml:"-" mapstructure:"-"`

	Host    string `toml:"host" mapstructure:"host"`
	Port    int    `toml:"port" mapstructure:"port"`
	BaseURL string `toml:"baseUrl" mapstructure:"baseUrl"`

	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	// Upstream torrent search API
	APIURL                string   `toml:"apiUrl" mapstructure:"apiUrl"`
	APIKey                string   `toml:"apiKey" mapstructure:"apiKey"`
	RequestTimeoutSeconds int      `toml:"requestTimeoutSeconds" mapstructure:"requestTimeoutSeconds"`
	SearchLimit           int      `toml:"searchLimit" mapstructure:"searchLimit"`
	TrendingLimit         int      `toml:"trendingLimit" mapstructure:"trendingLimit"`
	DefaultProviders      []string `toml:"defaultProviders" mapstructure:"defaultProviders"`
	HistorySize           int      `toml:"historySize" mapstructure:"historySize"`

	// API rate limiting, requests per minute per client IP (0 disables)
	RateLimitPerMinute int `toml:"rateLimitPerMinute" mapstructure:"rateLimitPerMinute"`

	MetricsEnabled bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost    string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort    int    `toml:"metricsPort" mapstructure:"metricsPort"`

	// Comma separated user:bcrypt-hash pairs guarding the metrics endpoint
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`
}
