package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for entitymap.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`
	NER     NERConfig     `mapstructure:"ner"     yaml:"ner"`
	Lookup  LookupConfig  `mapstructure:"lookup"  yaml:"lookup"`
	Output  OutputConfig  `mapstructure:"output"  yaml:"output"`
	Render  RenderConfig  `mapstructure:"render"  yaml:"render"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// SiteConfig holds the answers the interactive prompts would otherwise ask
// for. The process command reads them from flags.
type SiteConfig struct {
	Type        int    `mapstructure:"type"         yaml:"type"`
	URL         string `mapstructure:"url"          yaml:"url"`
	Crawl       bool   `mapstructure:"crawl"        yaml:"crawl"`
	PathFilter  string `mapstructure:"path_filter"  yaml:"path_filter"`
	StartPhrase string `mapstructure:"start_phrase" yaml:"start_phrase"`
	EndPhrase   string `mapstructure:"end_phrase"   yaml:"end_phrase"`
	// Language forces english or arabic instead of reading it from the URL.
	Language string `mapstructure:"language" yaml:"language"`
}

// CrawlConfig controls link expansion.
type CrawlConfig struct {
	Exclude  []string `mapstructure:"exclude"   yaml:"exclude"`
	MaxPages int      `mapstructure:"max_pages" yaml:"max_pages"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"             yaml:"type"`
	Timeout         time.Duration `mapstructure:"timeout"          yaml:"timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"    yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"     yaml:"tls_insecure"`
	UserAgents      []string      `mapstructure:"user_agents"      yaml:"user_agents"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
	BrowserPages    int           `mapstructure:"browser_pages"    yaml:"browser_pages"`
}

// ExtractConfig controls the content extractor.
type ExtractConfig struct {
	ChunkSize   int    `mapstructure:"chunk_size"   yaml:"chunk_size"`
	ScopeXPath  string `mapstructure:"scope_xpath"  yaml:"scope_xpath"`
	AutoContent bool   `mapstructure:"auto_content" yaml:"auto_content"`
}

// NERConfig selects the entity model backend.
type NERConfig struct {
	Provider         string        `mapstructure:"provider"          yaml:"provider"`
	Endpoint         string        `mapstructure:"endpoint"          yaml:"endpoint"`
	Model            string        `mapstructure:"model"             yaml:"model"`
	APIKey           string        `mapstructure:"api_key"           yaml:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"           yaml:"timeout"`
	ThresholdEnglish float64       `mapstructure:"threshold_english" yaml:"threshold_english"`
	ThresholdArabic  float64       `mapstructure:"threshold_arabic"  yaml:"threshold_arabic"`
}

// LookupConfig points at the country/demonym table.
type LookupConfig struct {
	DemonymsPath string `mapstructure:"demonyms_path" yaml:"demonyms_path"`
}

// OutputConfig controls where CSVs land.
type OutputConfig struct {
	Dir                string `mapstructure:"dir"                 yaml:"dir"`
	CollectionFolder   string `mapstructure:"collection_folder"   yaml:"collection_folder"`
	EncyclopediaFolder string `mapstructure:"encyclopedia_folder" yaml:"encyclopedia_folder"`
	AggregateFile      string `mapstructure:"aggregate_file"      yaml:"aggregate_file"`
	AggregateRows      bool   `mapstructure:"aggregate_rows"      yaml:"aggregate_rows"`
}

// RenderConfig toggles the visual artifacts.
type RenderConfig struct {
	WordCloud     bool   `mapstructure:"wordcloud"      yaml:"wordcloud"`
	WordCloudHTML bool   `mapstructure:"wordcloud_html" yaml:"wordcloud_html"`
	Graphs        bool   `mapstructure:"graphs"         yaml:"graphs"`
	Interactive   bool   `mapstructure:"interactive"    yaml:"interactive"`
	ArabicFont    string `mapstructure:"arabic_font"    yaml:"arabic_font"`
	LatinFont     string `mapstructure:"latin_font"     yaml:"latin_font"`
	Width         int    `mapstructure:"width"          yaml:"width"`
	Height        int    `mapstructure:"height"         yaml:"height"`
}

// StorageConfig controls the optional database sinks.
type StorageConfig struct {
	Mongo  MongoConfig  `mapstructure:"mongo"  yaml:"mongo"`
	SQLite SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
}

// MongoConfig configures the MongoDB sink.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// SQLiteConfig configures the SQLite sink.
type SQLiteConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Exclude: []string{"init=", "default"},
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			Timeout:         30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			Stealth:      true,
			BrowserPages: 2,
		},
		Extract: ExtractConfig{
			ChunkSize: 500,
		},
		NER: NERConfig{
			Provider:         "gliner",
			Endpoint:         "http://localhost:8080",
			Model:            "urchade/gliner_multi-v2.1",
			Timeout:          120 * time.Second,
			ThresholdEnglish: 0.5,
			ThresholdArabic:  0.6,
		},
		Lookup: LookupConfig{
			DemonymsPath: "countries_and_demonyms.csv",
		},
		Output: OutputConfig{
			Dir:                ".",
			CollectionFolder:   "QM Collections",
			EncyclopediaFolder: "Mathaf Encyclopedia",
			AggregateFile:      "all_entities.csv",
		},
		Render: RenderConfig{
			WordCloud:   true,
			Graphs:      true,
			Interactive: true,
			ArabicFont:  "fonts/NotoNaskhArabic-Regular.ttf",
			Width:       800,
			Height:      400,
		},
		Storage: StorageConfig{
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "entitymap",
				Collection: "entity_counts",
			},
			SQLite: SQLiteConfig{
				Path: "entitymap.db",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// SiteFolder returns the output folder name for a site type.
func (c *Config) SiteFolder(siteType int) string {
	if siteType == 2 {
		return c.Output.EncyclopediaFolder
	}
	return c.Output.CollectionFolder
}
