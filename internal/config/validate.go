package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values. Site answers are
// checked separately by ValidateSite because the interactive flow fills
// them in after the config is loaded.
func Validate(cfg *Config) error {
	if cfg.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0, got %d", cfg.Crawl.MaxPages)
	}

	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.Type == "browser" && cfg.Fetcher.BrowserPages < 1 {
		return fmt.Errorf("fetcher.browser_pages must be >= 1, got %d", cfg.Fetcher.BrowserPages)
	}

	if cfg.Extract.ChunkSize < 1 {
		return fmt.Errorf("extract.chunk_size must be >= 1, got %d", cfg.Extract.ChunkSize)
	}

	validProviders := map[string]bool{
		"gliner": true, "ollama": true, "openai": true,
	}
	if !validProviders[cfg.NER.Provider] {
		return fmt.Errorf("ner.provider %q is not supported (valid: gliner, ollama, openai)", cfg.NER.Provider)
	}
	if cfg.NER.Provider != "openai" && cfg.NER.Endpoint == "" {
		return fmt.Errorf("ner.endpoint is required for provider %q", cfg.NER.Provider)
	}
	for name, th := range map[string]float64{
		"ner.threshold_english": cfg.NER.ThresholdEnglish,
		"ner.threshold_arabic":  cfg.NER.ThresholdArabic,
	} {
		if th < 0 || th > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, th)
		}
	}

	if cfg.Lookup.DemonymsPath == "" {
		return fmt.Errorf("lookup.demonyms_path is required")
	}
	if cfg.Output.CollectionFolder == "" || cfg.Output.EncyclopediaFolder == "" {
		return fmt.Errorf("output folders must not be empty")
	}

	if cfg.Render.Width < 1 || cfg.Render.Height < 1 {
		return fmt.Errorf("render size must be positive, got %dx%d", cfg.Render.Width, cfg.Render.Height)
	}

	if cfg.Storage.Mongo.Enabled && cfg.Storage.Mongo.URI == "" {
		return fmt.Errorf("storage.mongo.uri is required when mongo is enabled")
	}
	if cfg.Storage.SQLite.Enabled && cfg.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage.sqlite.path is required when sqlite is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateSite checks the per-run answers.
func ValidateSite(site SiteConfig) error {
	if site.Type != 1 && site.Type != 2 {
		return fmt.Errorf("site.type must be 1 or 2, got %d", site.Type)
	}
	if err := ValidateURL(site.URL); err != nil {
		return err
	}
	if site.Crawl && site.PathFilter == "" {
		return fmt.Errorf("site.path_filter is required when crawling")
	}
	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
