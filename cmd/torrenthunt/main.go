// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/autobrr/torrenthunt/internal/api/handlers"
	"github.com/autobrr/torrenthunt/internal/buildinfo"
	"github.com/autobrr/torrenthunt/internal/config"
	"github.com/autobrr/torrenthunt/internal/services/hunt"
)

type globalFlags struct {
	configDir string
	envFile   string
	logLevel  string
}

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	flags := &globalFlags{}

	var rootCmd = &cobra.Command{
		Use:   "torrenthunt",
		Short: "Search many torrent sites at once",
		Long: `torrenthunt - query several torrent search providers concurrently and
get one merged, filtered and sorted result list. Slow or failing providers
never hold back the others.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(flags.envFile)
		},
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "config directory or file path (default is OS-specific: ~/.config/torrenthunt/ or %APPDATA%\\torrenthunt\\)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config (ignored when missing)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(RunSearchCommand(flags))
	rootCmd.AddCommand(RunTrendingCommand(flags))
	rootCmd.AddCommand(RunProvidersCommand(flags))
	rootCmd.AddCommand(RunCategoriesCommand(flags))
	rootCmd.AddCommand(RunServeCommand(flags))
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnvFile loads a dotenv file without overriding variables already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}
	return nil
}

type queryFlags struct {
	providers  []string
	category   string
	sortKey    string
	ascending  bool
	minSeeders int
	hideDead   bool
	magnets    bool
	jsonOutput bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.providers, "providers", "p", nil, "providers to query (default: configured defaults or every enabled provider)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "all", "category key, see the categories command")
	cmd.Flags().StringVarP(&f.sortKey, "sort", "s", string(hunt.SortBySeeders), "sort key: "+joinSortKeys())
	cmd.Flags().BoolVar(&f.ascending, "asc", false, "sort ascending")
	cmd.Flags().IntVar(&f.minSeeders, "min-seeders", 0, "drop results with fewer seeders")
	cmd.Flags().BoolVar(&f.hideDead, "hide-dead", false, "drop results without seeders")
	cmd.Flags().BoolVar(&f.magnets, "magnets", false, "print only magnet links")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "print results as JSON")
}

func (f *queryFlags) sort() (hunt.Sort, error) {
	key, ok := hunt.ParseSortKey(f.sortKey)
	if !ok {
		return hunt.Sort{}, errors.Errorf("unknown sort key %q, expected one of: %s", f.sortKey, joinSortKeys())
	}
	return hunt.Sort{Key: key, Ascending: f.ascending}, nil
}

func joinSortKeys() string {
	keys := hunt.SortKeys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

func RunSearchCommand(global *globalFlags) *cobra.Command {
	flags := &queryFlags{}

	var command = &cobra.Command{
		Use:   "search <query>",
		Short: "Search the selected providers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sort, err := flags.sort()
			if err != nil {
				return err
			}

			app, err := newCLIApp(global)
			if err != nil {
				return err
			}

			providers := app.providers(flags.providers)
			warnUnknownProviders(cmd.ErrOrStderr(), app.registry, providers)

			records, status := app.service.Search(cmd.Context(), hunt.SearchRequest{
				Query:      strings.Join(args, " "),
				Providers:  providers,
				Category:   flags.category,
				Sort:       sort,
				MinSeeders: flags.minSeeders,
				HideDead:   flags.hideDead,
			})
			return renderQuery(cmd, flags, records, status)
		},
	}

	flags.register(command)
	return command
}

func RunTrendingCommand(global *globalFlags) *cobra.Command {
	var limit int
	flags := &queryFlags{}

	var command = &cobra.Command{
		Use:   "trending",
		Short: "Show trending torrents from the selected providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sort, err := flags.sort()
			if err != nil {
				return err
			}
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}

			app, err := newCLIApp(global)
			if err != nil {
				return err
			}

			providers := app.providers(flags.providers)
			warnUnknownProviders(cmd.ErrOrStderr(), app.registry, providers)

			records, status := app.service.Trending(cmd.Context(), hunt.TrendingRequest{
				Providers:  providers,
				Category:   flags.category,
				Limit:      limit,
				Sort:       sort,
				MinSeeders: flags.minSeeders,
				HideDead:   flags.hideDead,
			})
			return renderQuery(cmd, flags, records, status)
		},
	}

	flags.register(command)
	command.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default from config)")
	return command
}

func renderQuery(cmd *cobra.Command, flags *queryFlags, records []hunt.Record, status hunt.Status) error {
	if !status.OK() {
		return errors.New(status.Message)
	}

	out := cmd.OutOrStdout()
	switch {
	case flags.jsonOutput:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(handlers.QueryResponse{Status: status, Records: handlers.NewRecordResponses(records)})
	case flags.magnets:
		printMagnets(out, records)
		printStatus(cmd.ErrOrStderr(), status)
	default:
		printRecords(out, records, terminalWidth())
		printStatus(out, status)
	}
	return nil
}

func RunProvidersCommand(global *globalFlags) *cobra.Command {
	var remote bool

	var command = &cobra.Command{
		Use:   "providers",
		Short: "List the supported providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newCLIApp(global)
			if err != nil {
				return err
			}

			list := hunt.ProviderList{Providers: app.service.Providers(), Source: hunt.ProviderSourceRegistry}
			if remote {
				list = app.service.DiscoverProviders(cmd.Context())
			}
			printProviders(cmd.OutOrStdout(), list)
			return nil
		},
	}

	command.Flags().BoolVar(&remote, "remote", false, "ask the API which providers it currently serves")
	return command
}

func RunCategoriesCommand(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the category filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newCLIApp(global)
			if err != nil {
				return err
			}
			printCategories(cmd.OutOrStdout(), app.service.Categories())
			return nil
		},
	}
}

func RunServeCommand(global *globalFlags) *cobra.Command {
	var logPath string

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app := NewApplication(global.configDir, logPath, global.logLevel)
			app.runServer()
		},
	}

	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")
	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of torrenthunt",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
			if buildinfo.Commit != "" {
				cmd.Printf("commit: %s\n", buildinfo.Commit)
			}
			if buildinfo.Date != "" {
				cmd.Printf("built: %s\n", buildinfo.Date)
			}
		},
	}

	return command
}

func RunGenerateConfigCommand(global *globalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/torrenthunt/config.toml
- Windows: %APPDATA%\torrenthunt\config.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := resolveConfigFile(global.configDir)

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return errors.Wrap(err, "failed to create configuration file")
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	return command
}

func resolveConfigFile(configDir string) string {
	if configDir == "" {
		return filepath.Join(config.GetDefaultConfigDir(), "config.toml")
	}
	if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
		return configDir
	}
	if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
		return configDir
	}
	return filepath.Join(configDir, "config.toml")
}
