// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/torrenthunt/internal/domain"
	"github.com/autobrr/torrenthunt/internal/services/hunt"
)

var envPrefix = "HUNT__"

// Environment variables honoured for compatibility with the original client.
const (
	legacyAPIURLEnv = "TORRENTHUNT_API_URL"
	legacyAPIKeyEnv = "TORRENTHUNT_API_KEY"
)

type AppConfig struct {
	Config  *domain.Config
	viper   *viper.Viper
	version string

	listenersMu sync.RWMutex
	listeners   []func(*domain.Config)
}

func New(configDirOrPath string, versions ...string) (*AppConfig, error) {
	version := "dev"
	if len(versions) > 0 && strings.TrimSpace(versions[0]) != "" {
		version = versions[0]
	}

	c := &AppConfig{
		viper:   viper.New(),
		Config:  &domain.Config{},
		version: version,
	}

	c.defaults()

	if err := c.load(configDirOrPath); err != nil {
		return nil, err
	}

	c.loadFromEnv()

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Config.Version = c.version
	c.normalize()

	c.watchConfig()

	return c, nil
}

func (c *AppConfig) defaults() {
	host := "localhost"
	if detectContainer() {
		host = "0.0.0.0"
	}

	c.viper.SetDefault("host", host)
	c.viper.SetDefault("port", 7479)
	c.viper.SetDefault("baseUrl", "/")
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("apiUrl", hunt.DefaultAPIURL)
	c.viper.SetDefault("apiKey", "")
	c.viper.SetDefault("requestTimeoutSeconds", int(hunt.DefaultTimeout/time.Second))
	c.viper.SetDefault("searchLimit", hunt.DefaultSearchLimit)
	c.viper.SetDefault("trendingLimit", hunt.DefaultTrendingLimit)
	c.viper.SetDefault("defaultProviders", []string{})
	c.viper.SetDefault("historySize", hunt.DefaultHistoryCapacity)
	c.viper.SetDefault("rateLimitPerMinute", 60)
	c.viper.SetDefault("metricsEnabled", false)
	c.viper.SetDefault("metricsHost", "127.0.0.1")
	c.viper.SetDefault("metricsPort", 9079)
	c.viper.SetDefault("metricsBasicAuthUsers", "")
}

func (c *AppConfig) load(configDirOrPath string) error {
	c.viper.SetConfigType("toml")

	if configDirOrPath != "" {
		configPath := c.resolveConfigPath(configDirOrPath)
		c.viper.SetConfigFile(configPath)

		if err := c.viper.ReadInConfig(); err != nil {
			// viper reports a missing explicit file as a plain os error
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, os.ErrNotExist) {
				if err := c.writeDefaultConfig(configPath); err != nil {
					return err
				}
				if err := c.viper.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read newly created config: %w", err)
				}
				return nil
			}
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}

	c.viper.SetConfigName("config")
	c.viper.AddConfigPath(".")
	c.viper.AddConfigPath(GetDefaultConfigDir())

	if err := c.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultConfigPath := filepath.Join(GetDefaultConfigDir(), "config.toml")
			if err := c.writeDefaultConfig(defaultConfigPath); err != nil {
				return err
			}
			c.viper.SetConfigFile(defaultConfigPath)
			if err := c.viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read newly created config: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	return nil
}

func (c *AppConfig) loadFromEnv() {
	// Bind explicitly instead of AutomaticEnv so unrelated variables never leak in.
	c.viper.BindEnv("host", envPrefix+"HOST")
	c.viper.BindEnv("port", envPrefix+"PORT")
	c.viper.BindEnv("baseUrl", envPrefix+"BASE_URL")
	c.viper.BindEnv("logLevel", envPrefix+"LOG_LEVEL")
	c.viper.BindEnv("logPath", envPrefix+"LOG_PATH")
	c.viper.BindEnv("logMaxSize", envPrefix+"LOG_MAX_SIZE")
	c.viper.BindEnv("logMaxBackups", envPrefix+"LOG_MAX_BACKUPS")
	c.viper.BindEnv("apiUrl", envPrefix+"API_URL", legacyAPIURLEnv)
	c.bindOrReadFromFile("apiKey", envPrefix+"API_KEY", legacyAPIKeyEnv)
	c.viper.BindEnv("requestTimeoutSeconds", envPrefix+"REQUEST_TIMEOUT_SECONDS")
	c.viper.BindEnv("searchLimit", envPrefix+"SEARCH_LIMIT")
	c.viper.BindEnv("trendingLimit", envPrefix+"TRENDING_LIMIT")
	c.viper.BindEnv("defaultProviders", envPrefix+"DEFAULT_PROVIDERS")
	c.viper.BindEnv("historySize", envPrefix+"HISTORY_SIZE")
	c.viper.BindEnv("rateLimitPerMinute", envPrefix+"RATE_LIMIT_PER_MINUTE")
	c.viper.BindEnv("metricsEnabled", envPrefix+"METRICS_ENABLED")
	c.viper.BindEnv("metricsHost", envPrefix+"METRICS_HOST")
	c.viper.BindEnv("metricsPort", envPrefix+"METRICS_PORT")
	c.bindOrReadFromFile("metricsBasicAuthUsers", envPrefix+"METRICS_BASIC_AUTH_USERS")
}

// normalize clamps values a hand-edited file can get wrong.
func (c *AppConfig) normalize() {
	cfg := c.Config
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = hunt.DefaultAPIURL
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = int(hunt.DefaultTimeout / time.Second)
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = hunt.DefaultSearchLimit
	}
	if cfg.TrendingLimit <= 0 {
		cfg.TrendingLimit = hunt.DefaultTrendingLimit
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = hunt.DefaultHistoryCapacity
	}
	if cfg.RateLimitPerMinute < 0 {
		cfg.RateLimitPerMinute = 0
	}

	providers := make([]string, 0, len(cfg.DefaultProviders))
	for _, p := range cfg.DefaultProviders {
		for part := range strings.SplitSeq(p, ",") {
			if part = strings.TrimSpace(part); part != "" {
				providers = append(providers, part)
			}
		}
	}
	cfg.DefaultProviders = providers
}

func (c *AppConfig) watchConfig() {
	c.viper.WatchConfig()
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Msgf("Config file changed: %s", e.Name)

		if err := c.viper.Unmarshal(c.Config); err != nil {
			log.Error().Err(err).Msg("Failed to reload configuration")
			return
		}

		c.applyDynamicChanges()
	})
}

func (c *AppConfig) applyDynamicChanges() {
	c.Config.Version = c.version
	c.normalize()
	c.ApplyLogConfig()

	c.notifyListeners()
}

// RegisterReloadListener registers a callback that's invoked when the configuration file is reloaded.
func (c *AppConfig) RegisterReloadListener(fn func(*domain.Config)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *AppConfig) notifyListeners() {
	c.listenersMu.RLock()
	listeners := append([]func(*domain.Config){}, c.listeners...)
	c.listenersMu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	copied := *c.Config
	copied.DefaultProviders = append([]string(nil), c.Config.DefaultProviders...)
	for _, listener := range listeners {
		listener(&copied)
	}
}

// RequestTimeout returns the per-provider deadline.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Config.RequestTimeoutSeconds) * time.Second
}

const configTemplate = `# config.toml - Auto-generated on first run

# Hostname / IP
# Default: "localhost" (or "0.0.0.0" in containers)
host = "{{ .host }}"

# Port
# Default: 7479
port = {{ .port }}

# Base URL
# Set custom baseUrl eg /torrenthunt/ to serve in subdirectory.
# Optional
#baseUrl = "/torrenthunt/"

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/torrenthunt.log"

# Log rotation
# Maximum log file size in megabytes before rotation
# Default: {{ .logMaxSize }}
#logMaxSize = {{ .logMaxSize }}

# Number of rotated log files to retain (0 keeps all)
# Default: {{ .logMaxBackups }}
#logMaxBackups = {{ .logMaxBackups }}

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "{{ .logLevel }}"

# Torrent search API base URL
# Also read from TORRENTHUNT_API_URL
apiUrl = "{{ .apiUrl }}"

# API key sent as X-API-Key, if the API requires one
# Also read from TORRENTHUNT_API_KEY or HUNT__API_KEY_FILE
#apiKey = ""

# Per-provider request timeout in seconds
# Default: {{ .requestTimeoutSeconds }}
#requestTimeoutSeconds = {{ .requestTimeoutSeconds }}

# Per-provider result limit sent with searches
# Default: {{ .searchLimit }}
#searchLimit = {{ .searchLimit }}

# Total number of trending results returned
# Default: {{ .trendingLimit }}
#trendingLimit = {{ .trendingLimit }}

# Providers queried when none are given. Empty uses every enabled provider.
#defaultProviders = ["piratebay", "yts", "eztv"]

# Number of recent queries kept in memory
# Default: {{ .historySize }}
#historySize = {{ .historySize }}

# Requests per minute per client IP on the HTTP API (0 disables)
# Default: {{ .rateLimitPerMinute }}
#rateLimitPerMinute = {{ .rateLimitPerMinute }}

# Prometheus Metrics
# Enable Prometheus metrics on separate port
# Default: false
#metricsEnabled = false

# Metrics server host (bind address for metrics endpoint)
# Default: "127.0.0.1"
#metricsHost = "127.0.0.1"

# Metrics server port (separate from the API)
# Default: 9079
#metricsPort = 9079

# Basic authentication for metrics endpoint (optional)
# Format: "username:bcrypt_hash" or "user1:hash1,user2:hash2" for multiple users
# Leave empty to disable authentication (default)
#metricsBasicAuthUsers = ""
`

func (c *AppConfig) writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		log.Debug().Msgf("Config file already exists at: %s", path)
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	log.Debug().Msgf("Created config directory: %s", dir)

	data := map[string]any{
		"host":                  c.viper.GetString("host"),
		"port":                  c.viper.GetInt("port"),
		"logLevel":              c.viper.GetString("logLevel"),
		"logMaxSize":            c.viper.GetInt("logMaxSize"),
		"logMaxBackups":         c.viper.GetInt("logMaxBackups"),
		"apiUrl":                c.viper.GetString("apiUrl"),
		"requestTimeoutSeconds": c.viper.GetInt("requestTimeoutSeconds"),
		"searchLimit":           c.viper.GetInt("searchLimit"),
		"trendingLimit":         c.viper.GetInt("trendingLimit"),
		"historySize":           c.viper.GetInt("historySize"),
		"rateLimitPerMinute":    c.viper.GetInt("rateLimitPerMinute"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info().Msgf("Created default config file: %s", path)
	return nil
}

// GetDefaultConfigDir returns the OS-specific config directory
func GetDefaultConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		// containers mount /config directly
		if xdgConfig == "/config" {
			return xdgConfig
		}
		return filepath.Join(xdgConfig, "torrenthunt")
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "torrenthunt")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "torrenthunt")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "torrenthunt")
	}
}

func detectContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if _, err := os.Stat("/dev/.lxc-boot-id"); err == nil {
		return true
	}
	return os.Getpid() == 1
}

func (c *AppConfig) ApplyLogConfig() {
	zerolog.TimeFieldFormat = time.RFC3339

	setLogLevel(c.Config.LogLevel)

	writer := c.baseLogWriter()

	if c.Config.LogPath != "" {
		multiWriter, err := setupLogFile(c.Config.LogPath, writer, c.Config.LogMaxSize, c.Config.LogMaxBackups)
		if err != nil {
			log.Error().Err(err).Msg("Failed to setup log file")
		} else {
			writer = multiWriter
		}
	}

	log.Logger = log.Logger.Output(writer)
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Logger.Level(lvl)
}

func setupLogFile(path string, base io.Writer, maxSize, maxBackups int) (io.Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if maxSize <= 0 {
		maxSize = 50
	}

	if maxBackups < 0 {
		maxBackups = 0
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}

	return io.MultiWriter(base, rotator), nil
}

func baseLogWriter(version string) io.Writer {
	if isDevBuild(version) {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		writer.PartsOrder = []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName}
		writer.FormatMessage = func(i any) string {
			if i == nil {
				return ""
			}
			return strings.TrimSpace(fmt.Sprint(i))
		}
		return writer
	}
	return os.Stderr
}

func (c *AppConfig) baseLogWriter() io.Writer {
	return baseLogWriter(c.version)
}

// DefaultLogWriter returns the base log writer for the provided version.
func DefaultLogWriter(version string) io.Writer {
	return baseLogWriter(version)
}

// InitDefaultLogger configures zerolog with the default writer for this version.
// This is used by CLI entry points before a configuration file is loaded.
func InitDefaultLogger(version string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Logger.Output(DefaultLogWriter(version))
}

func isDevBuild(version string) bool {
	v := strings.ToLower(strings.TrimSpace(version))
	return v == "" || v == "dev" || strings.HasSuffix(v, "-dev")
}

// resolveConfigPath determines the actual config file path from the provided directory or file path
func (c *AppConfig) resolveConfigPath(configDirOrPath string) string {
	if strings.HasSuffix(strings.ToLower(configDirOrPath), ".toml") {
		return configDirOrPath
	}

	if info, err := os.Stat(configDirOrPath); err == nil && !info.IsDir() {
		return configDirOrPath
	}

	return filepath.Join(configDirOrPath, "config.toml")
}

// GetConfigDir returns the directory containing the config file
func (c *AppConfig) GetConfigDir() string {
	if c.viper.ConfigFileUsed() != "" {
		return filepath.Dir(c.viper.ConfigFileUsed())
	}
	return GetDefaultConfigDir()
}

// WriteDefaultConfig writes the commented default config to path unless it exists.
func WriteDefaultConfig(path string) error {
	c := &AppConfig{
		viper: viper.New(),
	}

	c.defaults()

	return c.writeDefaultConfig(path)
}

// bindOrReadFromFile reads the value from the file named by <envVar>_FILE when
// set, otherwise binds the listed environment variables.
func (c *AppConfig) bindOrReadFromFile(viperVar string, envVars ...string) {
	fileVar := envVars[0] + "_FILE"
	if filePath := os.Getenv(fileVar); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", filePath).Msg("Could not read " + fileVar)
		}
		c.viper.Set(viperVar, strings.TrimSpace(string(content)))
		return
	}
	c.viper.BindEnv(append([]string{viperVar}, envVars...)...)
}
