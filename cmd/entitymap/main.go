package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

var (
	cfgFile     string
	verbose     bool
	outputDir   string
	siteType    int
	crawlSite   bool
	pathFilter  string
	startPhrase string
	endPhrase   string
	language    string
	fetcherType string
	nerProvider string
	nerEndpoint string
	maxPages    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "entitymap",
		Short: "entitymap: museum page entity extraction",
		Long: `entitymap crawls museum collection and encyclopedia pages in English and
Arabic, extracts the named entities between two marker phrases, counts
them per page and renders word clouds and entity graphs.

Run without a command to answer the interactive prompts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInteractive,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (default from config)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(networkCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		var ie *types.InvalidInputError
		if errors.As(err, &ie) {
			fmt.Fprintln(os.Stderr, ie.Reason)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("entitymap %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.NER.APIKey != "" {
				cfg.NER.APIKey = "********"
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies command-line flag values to the config. Only
// flags the user actually set override the file and environment.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if changed("site") || (cmd.Flags().Lookup("site") != nil && cfg.Site.Type == 0) {
		cfg.Site.Type = siteType
	}
	if changed("crawl") {
		cfg.Site.Crawl = crawlSite
	}
	if changed("path") {
		cfg.Site.PathFilter = pathFilter
	}
	if changed("start") {
		cfg.Site.StartPhrase = startPhrase
	}
	if changed("end") {
		cfg.Site.EndPhrase = endPhrase
	}
	if changed("lang") {
		cfg.Site.Language = language
	}
	if changed("fetcher") {
		cfg.Fetcher.Type = strings.ToLower(fetcherType)
	}
	if changed("ner") {
		cfg.NER.Provider = strings.ToLower(nerProvider)
	}
	if changed("ner-endpoint") {
		cfg.NER.Endpoint = nerEndpoint
	}
	if changed("max-pages") {
		cfg.Crawl.MaxPages = maxPages
	}
}

// addPipelineFlags registers the flags shared by commands that run the
// fetch/extract/classify pipeline.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "fetcher: http or browser")
	cmd.Flags().StringVar(&nerProvider, "ner", "", "NER provider: gliner, ollama or openai")
	cmd.Flags().StringVar(&nerEndpoint, "ner-endpoint", "", "NER service endpoint")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages fetched while crawling (0 = unlimited)")
}

// setupLogger creates a structured logger. The text format goes through
// charmbracelet/log; json uses the slog JSON handler.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var w io.Writer = os.Stderr
	switch cfg.Output {
	case "", "stderr":
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			w = f
		} else {
			fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", cfg.Output, err)
		}
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           charmlog.Level(level),
	})
	return slog.New(handler)
}
