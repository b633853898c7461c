package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/entitymap/internal/classify"
	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/fetcher"
	"github.com/IshaanNene/entitymap/internal/observability"
	"github.com/IshaanNene/entitymap/internal/types"
)

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle       State = 0
	StateCrawling   State = 1
	StateProcessing State = 2
	StateStopped    State = 3
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCrawling:
		return "crawling"
	case StateProcessing:
		return "processing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Extractor turns page HTML into text chunks between two marker phrases.
type Extractor interface {
	Extract(page, startPhrase, endPhrase string) ([]string, error)
}

// Classifier buckets the entities found in a page's chunks.
type Classifier interface {
	Classify(ctx context.Context, chunks []string, site types.SiteType, lang types.Language) (classify.Buckets, error)
}

// ResultWriter persists a page's entity counts and returns the CSV path.
type ResultWriter interface {
	Write(ctx context.Context, site types.SiteType, pageURL string, buckets classify.Buckets, chunks []string) (string, error)
}

// Visualizer renders artifacts from a page CSV.
type Visualizer interface {
	Name() string
	Supports(lang types.Language) bool
	Render(csvPath string) ([]string, error)
}

// Job describes one run: which site, where to start and which part of
// each page to read.
type Job struct {
	Site        types.SiteType
	URL         string
	Crawl       bool
	PathFilter  string
	StartPhrase string
	EndPhrase   string

	// Language overrides the language read from each page URL.
	Language types.Language
}

// JobFromConfig builds a Job from the site section of the configuration.
func JobFromConfig(cfg config.SiteConfig) (Job, error) {
	job := Job{
		Site:        types.SiteType(cfg.Type),
		URL:         cfg.URL,
		Crawl:       cfg.Crawl,
		PathFilter:  cfg.PathFilter,
		StartPhrase: cfg.StartPhrase,
		EndPhrase:   cfg.EndPhrase,
	}
	if cfg.Language != "" {
		lang, err := types.ParseLanguage(cfg.Language)
		if err != nil {
			return Job{}, err
		}
		job.Language = lang
	}
	return job, job.Validate()
}

// Validate checks the fields every run needs.
func (j Job) Validate() error {
	if !j.Site.Valid() {
		return &types.InvalidInputError{Prompt: "site type", Input: fmt.Sprint(int(j.Site)), Reason: "website type must be 1 or 2"}
	}
	if j.URL == "" {
		return &types.InvalidInputError{Prompt: "url", Input: j.URL, Reason: "a URL is required"}
	}
	if j.Crawl && j.PathFilter == "" {
		return &types.InvalidInputError{Prompt: "path filter", Input: j.PathFilter, Reason: "crawling needs a path filter"}
	}
	return nil
}

// PageResult is the outcome of one processed page.
type PageResult struct {
	URL       string
	Language  types.Language
	Chunks    int
	Entities  int
	CSVPath   string
	Artifacts []string
}

// Summary reports what a run did.
type Summary struct {
	Pages     int
	Processed int
	Failed    int
	CSVPaths  []string
	Artifacts []string
	Duration  time.Duration
}

// Engine drives a run: crawl or take the single URL, then fetch, extract,
// classify, write and render each page in turn.
type Engine struct {
	fetcher     fetcher.Fetcher
	crawler     *Crawler
	extractor   Extractor
	classifier  Classifier
	writer      ResultWriter
	visualizers []Visualizer
	metrics     *observability.Metrics
	logger      *slog.Logger

	// OnPages, if set, is called once with the page list before any page
	// is processed.
	OnPages func(pages []string)

	state atomic.Int32
}

// New creates an Engine around f. The extractor, classifier and writer
// must be set before Run.
func New(cfg *config.Config, f fetcher.Fetcher, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		fetcher: f,
		crawler: NewCrawler(f, cfg.Crawl, metrics, logger),
		metrics: metrics,
		logger:  logger.With("component", "engine"),
	}
}

// SetExtractor sets the content extractor.
func (e *Engine) SetExtractor(x Extractor) { e.extractor = x }

// SetClassifier sets the entity classifier.
func (e *Engine) SetClassifier(c Classifier) { e.classifier = c }

// SetWriter sets the result writer.
func (e *Engine) SetWriter(w ResultWriter) { e.writer = w }

// AddVisualizer appends renderers, run in order after each CSV is written.
func (e *Engine) AddVisualizer(v ...Visualizer) { e.visualizers = append(e.visualizers, v...) }

// Crawler exposes the link crawler, e.g. to attach an OnVisit callback.
func (e *Engine) Crawler() *Crawler { return e.crawler }

// GetState returns the current engine state.
func (e *Engine) GetState() State { return State(e.state.Load()) }

// Pages returns the URLs a job will process: the crawl result, or the job
// URL alone.
func (e *Engine) Pages(ctx context.Context, job Job) ([]string, error) {
	if !job.Crawl {
		return []string{job.URL}, nil
	}
	e.state.Store(int32(StateCrawling))
	e.logger.Info("crawling", "base_url", job.URL, "path_filter", job.PathFilter)
	return e.crawler.Expand(ctx, job.URL, job.PathFilter)
}

// Run processes every page of job. Page failures are logged and counted;
// Run only returns an error for an invalid job, a missing component or a
// cancelled context.
func (e *Engine) Run(ctx context.Context, job Job) (*Summary, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if e.extractor == nil || e.classifier == nil || e.writer == nil {
		return nil, errors.New("engine: extractor, classifier and writer must be set")
	}
	defer e.state.Store(int32(StateStopped))

	start := time.Now()
	summary := &Summary{}

	pages, err := e.Pages(ctx, job)
	summary.Pages = len(pages)
	if err != nil {
		summary.Duration = time.Since(start)
		return summary, fmt.Errorf("crawl %s: %w", job.URL, err)
	}
	if e.OnPages != nil {
		e.OnPages(pages)
	}
	if len(pages) == 0 {
		e.logger.Warn("no pages matched", "base_url", job.URL, "path_filter", job.PathFilter)
	}

	e.state.Store(int32(StateProcessing))
	for i, pageURL := range pages {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		e.logger.Info("processing page", "url", pageURL, "index", i+1, "of", len(pages))

		res, err := e.ProcessPage(ctx, job, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				summary.Duration = time.Since(start)
				return summary, ctx.Err()
			}
			summary.Failed++
			e.inc(func(m *observability.Metrics) { m.PagesFailed.Add(1) })
			e.logger.Error("page skipped", "url", pageURL, "error", err)
			continue
		}
		summary.Processed++
		summary.CSVPaths = append(summary.CSVPaths, res.CSVPath)
		summary.Artifacts = append(summary.Artifacts, res.Artifacts...)
		e.inc(func(m *observability.Metrics) { m.PagesProcessed.Add(1) })
	}

	summary.Duration = time.Since(start)
	e.logger.Info("run finished",
		"pages", summary.Pages,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"elapsed", summary.Duration.Round(time.Millisecond).String(),
	)
	return summary, nil
}

// ProcessPage runs one page through fetch, extract, classify, write and
// render.
func (e *Engine) ProcessPage(ctx context.Context, job Job, pageURL string) (*PageResult, error) {
	lang := job.Language
	if lang == "" {
		var err error
		if lang, err = types.LanguageFromURL(pageURL); err != nil {
			return nil, err
		}
	}

	html, err := fetcher.FetchHTML(ctx, e.fetcher, pageURL)
	if err != nil {
		return nil, err
	}

	chunks, err := e.extractor.Extract(html, job.StartPhrase, job.EndPhrase)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL, err)
	}

	buckets, err := e.classifier.Classify(ctx, chunks, job.Site, lang)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", pageURL, err)
	}

	csvPath, err := e.writer.Write(ctx, job.Site, pageURL, buckets, chunks)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", pageURL, err)
	}

	return &PageResult{
		URL:       pageURL,
		Language:  lang,
		Chunks:    len(chunks),
		Entities:  buckets.Len(),
		CSVPath:   csvPath,
		Artifacts: e.Render(csvPath, lang),
	}, nil
}

// Render runs every visualizer that supports lang over csvPath. Failures
// are logged and counted, and the paths that were written are returned.
func (e *Engine) Render(csvPath string, lang types.Language) []string {
	var out []string
	for _, v := range e.visualizers {
		if !v.Supports(lang) {
			e.logger.Debug("visualizer skipped", "visualizer", v.Name(), "language", lang)
			continue
		}
		paths, err := v.Render(csvPath)
		out = append(out, paths...)
		e.inc(func(m *observability.Metrics) { m.ArtifactsRendered.Add(int64(len(paths))) })
		if err != nil {
			e.inc(func(m *observability.Metrics) { m.RenderErrors.Add(1) })
			e.logger.Error("render failed", "visualizer", v.Name(), "csv", csvPath, "error", err)
		}
	}
	return out
}

func (e *Engine) inc(f func(*observability.Metrics)) {
	if e.metrics != nil {
		f(e.metrics)
	}
}
