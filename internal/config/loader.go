package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// ENTITYMAP_NER_ENDPOINT.
const EnvPrefix = "ENTITYMAP"

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("entitymap")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".entitymap"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper. Every key has to be known
// to viper for AutomaticEnv to pick it up during Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.type", cfg.Site.Type)
	v.SetDefault("site.url", cfg.Site.URL)
	v.SetDefault("site.crawl", cfg.Site.Crawl)
	v.SetDefault("site.path_filter", cfg.Site.PathFilter)
	v.SetDefault("site.start_phrase", cfg.Site.StartPhrase)
	v.SetDefault("site.end_phrase", cfg.Site.EndPhrase)
	v.SetDefault("site.language", cfg.Site.Language)

	v.SetDefault("crawl.exclude", cfg.Crawl.Exclude)
	v.SetDefault("crawl.max_pages", cfg.Crawl.MaxPages)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.timeout", cfg.Fetcher.Timeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)
	v.SetDefault("fetcher.browser_pages", cfg.Fetcher.BrowserPages)

	v.SetDefault("extract.chunk_size", cfg.Extract.ChunkSize)
	v.SetDefault("extract.scope_xpath", cfg.Extract.ScopeXPath)
	v.SetDefault("extract.auto_content", cfg.Extract.AutoContent)

	v.SetDefault("ner.provider", cfg.NER.Provider)
	v.SetDefault("ner.endpoint", cfg.NER.Endpoint)
	v.SetDefault("ner.model", cfg.NER.Model)
	v.SetDefault("ner.api_key", cfg.NER.APIKey)
	v.SetDefault("ner.timeout", cfg.NER.Timeout)
	v.SetDefault("ner.threshold_english", cfg.NER.ThresholdEnglish)
	v.SetDefault("ner.threshold_arabic", cfg.NER.ThresholdArabic)

	v.SetDefault("lookup.demonyms_path", cfg.Lookup.DemonymsPath)

	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.collection_folder", cfg.Output.CollectionFolder)
	v.SetDefault("output.encyclopedia_folder", cfg.Output.EncyclopediaFolder)
	v.SetDefault("output.aggregate_file", cfg.Output.AggregateFile)
	v.SetDefault("output.aggregate_rows", cfg.Output.AggregateRows)

	v.SetDefault("render.wordcloud", cfg.Render.WordCloud)
	v.SetDefault("render.wordcloud_html", cfg.Render.WordCloudHTML)
	v.SetDefault("render.graphs", cfg.Render.Graphs)
	v.SetDefault("render.interactive", cfg.Render.Interactive)
	v.SetDefault("render.arabic_font", cfg.Render.ArabicFont)
	v.SetDefault("render.latin_font", cfg.Render.LatinFont)
	v.SetDefault("render.width", cfg.Render.Width)
	v.SetDefault("render.height", cfg.Render.Height)

	v.SetDefault("storage.mongo.enabled", cfg.Storage.Mongo.Enabled)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)
	v.SetDefault("storage.sqlite.enabled", cfg.Storage.SQLite.Enabled)
	v.SetDefault("storage.sqlite.path", cfg.Storage.SQLite.Path)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
