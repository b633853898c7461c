package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/entitymap/internal/engine"
	"github.com/IshaanNene/entitymap/internal/observability"
	"github.com/IshaanNene/entitymap/internal/render"
	"github.com/IshaanNene/entitymap/internal/storage"
	"github.com/IshaanNene/entitymap/internal/types"
)

var (
	renderLang string
	networkOut string
)

// renderCmd creates the "render" subcommand.
func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [csv...]",
		Short: "Regenerate word clouds and graphs from entity CSVs",
		Long: `Render reads page CSVs written by a previous run and writes the word
cloud, the per-label graphs, the GEXF export and, for English pages, the
interactive graph beside each CSV. The page language is read from the
first row's link unless --lang is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRender,
	}
	cmd.Flags().StringVar(&renderLang, "lang", "", "force english or arabic")
	return cmd
}

// networkCmd creates the "network" subcommand.
func networkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network [csv...]",
		Short: "Write the page/entity network of a collection as HTML",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNetwork,
	}
	cmd.Flags().StringVar(&networkOut, "out", "network.html", "output HTML file")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	var forced types.Language
	if renderLang != "" {
		if forced, err = types.ParseLanguage(renderLang); err != nil {
			return err
		}
	}

	fonts, err := render.LoadFonts(cfg.Render.LatinFont, cfg.Render.ArabicFont, logger)
	if err != nil {
		return err
	}
	defer fonts.Close()

	metrics := observability.NewMetrics(logger)
	eng := engine.New(cfg, nil, metrics, logger)
	for _, v := range render.Adapters(cfg.Render, fonts, logger) {
		eng.AddVisualizer(v)
	}

	total := 0
	for _, csvPath := range args {
		lang := forced
		if lang == "" {
			lang = csvLanguage(csvPath)
		}
		paths := eng.Render(csvPath, lang)
		total += len(paths)
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
	}

	if n := metrics.RenderErrors.Load(); n > 0 {
		return fmt.Errorf("%d artifacts failed to render (%d written)", n, total)
	}
	return nil
}

// csvLanguage reads the language from the first row's link. A CSV without
// rows or without a language segment is treated as English.
func csvLanguage(csvPath string) types.Language {
	rows, err := storage.ReadEntityCSV(csvPath)
	if err != nil || len(rows) == 0 {
		return types.English
	}
	lang, err := types.LanguageFromURL(rows[0].Link)
	if err != nil {
		return types.English
	}
	return lang
}

func runNetwork(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	out := networkOut
	if !filepath.IsAbs(out) && outputDir != "" {
		out = filepath.Join(outputDir, out)
	}
	if err := render.NewNetwork(logger).Render(args, out); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
