package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/entitymap/internal/classify"
	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/engine"
	"github.com/IshaanNene/entitymap/internal/fetcher"
	"github.com/IshaanNene/entitymap/internal/ner"
	"github.com/IshaanNene/entitymap/internal/observability"
	"github.com/IshaanNene/entitymap/internal/parser"
	"github.com/IshaanNene/entitymap/internal/render"
	"github.com/IshaanNene/entitymap/internal/repl"
	"github.com/IshaanNene/entitymap/internal/results"
	"github.com/IshaanNene/entitymap/internal/storage"
	"github.com/IshaanNene/entitymap/internal/types"
)

// runCmd creates the "run" subcommand, the interactive mode.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer the prompts and process the pages",
		Args:  cobra.NoArgs,
		RunE:  runInteractive,
	}
	addPipelineFlags(cmd)
	return cmd
}

// processCmd creates the "process" subcommand, the same pipeline driven by
// flags.
func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [url]",
		Short: "Process a page, or a crawled set of pages, without prompts",
		Long: `Process runs the same pipeline as the interactive mode with the answers
taken from flags, the config file (site.*) or ENTITYMAP_SITE_* variables.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runProcess,
	}
	cmd.Flags().IntVar(&siteType, "site", 1, "website type: 1 = collection, 2 = encyclopedia")
	cmd.Flags().BoolVar(&crawlSite, "crawl", false, "crawl the site from the URL first")
	cmd.Flags().StringVar(&pathFilter, "path", "", "path filter for crawled links")
	cmd.Flags().StringVar(&startPhrase, "start", "", "phrase that starts the text region")
	cmd.Flags().StringVar(&endPhrase, "end", "", "phrase that ends the text region")
	cmd.Flags().StringVar(&language, "lang", "", "force english or arabic instead of reading it from the URL")
	addPipelineFlags(cmd)
	return cmd
}

// crawlCmd creates the "crawl" subcommand, which only lists pages.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "List the pages a crawl from URL would process",
		Args:  cobra.ExactArgs(1),
		RunE:  runCrawl,
	}
	cmd.Flags().StringVar(&pathFilter, "path", "", "path filter for crawled links")
	addPipelineFlags(cmd)
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

// app holds the resources of one run. They are created once and closed
// together.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	runID     string
	metrics   *observability.Metrics
	fetcher   fetcher.Fetcher
	predictor ner.Predictor
	sink      *storage.MultiStorage
	fonts     *render.Fonts
	engine    *engine.Engine
}

// newApp builds the full pipeline. The aggregate CSV is created here.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		runID:   uuid.NewString(),
		metrics: observability.NewMetrics(logger),
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	lookup, err := classify.LoadLookup(cfg.Lookup.DemonymsPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("demonym table loaded", "path", cfg.Lookup.DemonymsPath, "countries", lookup.Len())

	if a.predictor, err = ner.New(cfg.NER, logger); err != nil {
		return nil, err
	}
	if a.fetcher, err = fetcher.New(cfg, logger); err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	aggregate := filepath.Join(cfg.Output.Dir, cfg.Output.AggregateFile)
	if a.sink, err = storage.Open(ctx, cfg, aggregate, a.runID, logger); err != nil {
		return nil, err
	}
	if a.fonts, err = render.LoadFonts(cfg.Render.LatinFont, cfg.Render.ArabicFont, logger); err != nil {
		return nil, err
	}

	a.engine = engine.New(cfg, a.fetcher, a.metrics, logger)
	a.engine.SetExtractor(parser.NewExtractor(cfg.Extract, logger))
	a.engine.SetClassifier(classify.New(a.predictor, lookup, cfg.NER, a.metrics, logger))
	a.engine.SetWriter(results.NewWriter(cfg, a.sink, a.metrics, logger))
	for _, v := range render.Adapters(cfg.Render, a.fonts, logger) {
		a.engine.AddVisualizer(v)
	}

	if cfg.Metrics.Enabled {
		a.metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	logger.Info("pipeline ready",
		"run_id", a.runID,
		"fetcher", a.fetcher.Type(),
		"ner", a.predictor.Name(),
		"sinks", a.sink.Len(),
		"output", cfg.Output.Dir,
	)
	ok = true
	return a, nil
}

// Close releases every resource that was created.
func (a *app) Close() {
	if a.fetcher != nil {
		if err := a.fetcher.Close(); err != nil {
			a.logger.Error("fetcher close error", "error", err)
		}
	}
	if a.predictor != nil {
		if err := a.predictor.Close(); err != nil {
			a.logger.Error("predictor close error", "error", err)
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.logger.Error("storage close error", "error", err)
		}
	}
	if a.fonts != nil {
		_ = a.fonts.Close()
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// runInteractive asks the prompts, then runs the job. The pipeline, and
// with it all_entities.csv, is created as soon as the site type is known.
func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	ctx, cancel := signalContext(logger)
	defer cancel()

	var a *app
	job, err := repl.New(os.Stdin, os.Stdout).Ask(func(types.SiteType) error {
		var err error
		a, err = newApp(ctx, cfg, logger)
		return err
	})
	if a != nil {
		defer a.Close()
	}
	if err != nil {
		return err
	}
	if cfg.Site.Language != "" {
		if job.Language, err = types.ParseLanguage(cfg.Site.Language); err != nil {
			return err
		}
	}
	return a.run(ctx, job, true)
}

// runProcess executes the process command.
func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Site.URL = args[0]
	}
	if err := config.ValidateSite(cfg.Site); err != nil {
		return &types.InvalidInputError{Prompt: "site", Input: cfg.Site.URL, Reason: err.Error()}
	}
	job, err := engine.JobFromConfig(cfg.Site)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	ctx, cancel := signalContext(logger)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.run(ctx, job, false)
}

// run executes job and prints the summary. With progress set, crawling
// shows a spinner on stderr.
func (a *app) run(ctx context.Context, job engine.Job, progress bool) error {
	var sp *spinner.Spinner
	if progress && job.Crawl {
		sp = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		sp.Suffix = " crawling..."
		a.engine.Crawler().OnVisit = func(url string, found int) {
			sp.Lock()
			sp.Suffix = fmt.Sprintf(" crawling... %d pages found (%s)", found, url)
			sp.Unlock()
		}
		sp.Start()
	}
	a.engine.OnPages = func(pages []string) {
		if sp != nil {
			sp.Stop()
		}
		if job.Crawl {
			fmt.Printf("Crawling finished. Found %d pages.\n", len(pages))
		}
	}

	summary, err := a.engine.Run(ctx, job)
	if sp != nil {
		sp.Stop()
	}
	if summary != nil {
		printSummary(a, job, summary)
	}
	if err != nil {
		return err
	}
	if summary.Processed == 0 && summary.Pages > 0 {
		return fmt.Errorf("none of the %d pages could be processed", summary.Pages)
	}
	return nil
}

func printSummary(a *app, job engine.Job, s *engine.Summary) {
	fmt.Printf("\n✅ Run complete in %s\n", s.Duration.Round(time.Millisecond))
	fmt.Printf("   Pages:     %d found, %d processed, %d failed\n", s.Pages, s.Processed, s.Failed)
	fmt.Printf("   CSVs:      %d written to %s\n", len(s.CSVPaths), filepath.Join(a.cfg.Output.Dir, a.cfg.SiteFolder(int(job.Site))))
	fmt.Printf("   Artifacts: %d\n", len(s.Artifacts))
	fmt.Printf("   Run ID:    %s\n", a.runID)
}

// runCrawl executes the crawl command.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateURL(args[0]); err != nil {
		return fmt.Errorf("invalid URL %q: %w", args[0], err)
	}
	logger := setupLogger(cfg.Logging)

	ctx, cancel := signalContext(logger)
	defer cancel()

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	crawler := engine.NewCrawler(f, cfg.Crawl, nil, logger)
	pages, err := crawler.Expand(ctx, args[0], pathFilter)
	for _, p := range pages {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Crawling finished. Found %d pages.\n", len(pages))
	return nil
}
