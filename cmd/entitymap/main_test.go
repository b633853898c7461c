package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/storage"
	"github.com/IshaanNene/entitymap/internal/types"
)

func TestCSVLanguage(t *testing.T) {
	dir := t.TempDir()
	ar := filepath.Join(dir, "ar.csv")
	require.NoError(t, storage.WriteEntityCSV(ar, []types.EntityCount{
		{Link: "https://example.org/ar/collections/x", Entity: "قطر", Label: "دولة", Occurrences: 1},
	}))
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, storage.WriteEntityCSV(empty, nil))

	assert.Equal(t, types.Arabic, csvLanguage(ar))
	assert.Equal(t, types.English, csvLanguage(empty))
	assert.Equal(t, types.English, csvLanguage(filepath.Join(dir, "missing.csv")))
}

func TestApplyCLIOverrides(t *testing.T) {
	cmd := processCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--crawl", "--path", "/collections/", "--ner", "OLLAMA"}))

	cfg := config.DefaultConfig()
	applyCLIOverrides(cmd, cfg)

	assert.Equal(t, 1, cfg.Site.Type)
	assert.True(t, cfg.Site.Crawl)
	assert.Equal(t, "/collections/", cfg.Site.PathFilter)
	assert.Equal(t, "ollama", cfg.NER.Provider)
	assert.Equal(t, "http", cfg.Fetcher.Type)
}

func TestApplyCLIOverridesWithoutSiteFlag(t *testing.T) {
	cfg := config.DefaultConfig()
	applyCLIOverrides(&cobra.Command{}, cfg)
	assert.Equal(t, 0, cfg.Site.Type)
}

func TestSetupLogger(t *testing.T) {
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: "stdout"})
	assert.NotNil(t, logger)

	logger = setupLogger(config.LoggingConfig{Level: "debug", Format: "text"})
	assert.NotNil(t, logger)
}
