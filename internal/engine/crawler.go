package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/fetcher"
	"github.com/IshaanNene/entitymap/internal/observability"
	"github.com/IshaanNene/entitymap/internal/parser"
)

// Crawler expands a base URL into the list of pages worth processing with
// a breadth-first walk over same-filter links.
type Crawler struct {
	fetcher  fetcher.Fetcher
	exclude  []string
	maxPages int
	metrics  *observability.Metrics
	logger   *slog.Logger

	// OnVisit, if set, is called after every fetched page with the number
	// of result URLs found so far.
	OnVisit func(url string, found int)
}

// NewCrawler creates a Crawler. metrics may be nil.
func NewCrawler(f fetcher.Fetcher, cfg config.CrawlConfig, metrics *observability.Metrics, logger *slog.Logger) *Crawler {
	return &Crawler{
		fetcher:  f,
		exclude:  cfg.Exclude,
		maxPages: cfg.MaxPages,
		metrics:  metrics,
		logger:   logger.With("component", "crawler"),
	}
}

// Expand walks the link graph from baseURL and returns, in visit order,
// every visited URL that contains pathFilter and none of the exclusion
// substrings. Only links containing pathFilter are followed. A page that
// fails to fetch contributes no links. On context cancellation the URLs
// found so far are returned with the context error.
func (c *Crawler) Expand(ctx context.Context, baseURL, pathFilter string) ([]string, error) {
	frontier := NewFrontier(NewVisitSet(256))
	frontier.Push(baseURL)

	var results []string
	fetched := 0

	for !frontier.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if c.maxPages > 0 && fetched >= c.maxPages {
			c.logger.Warn("page limit reached, stopping crawl",
				"max_pages", c.maxPages,
				"queued", frontier.Len(),
			)
			break
		}

		current, _ := frontier.Pop()
		if c.Accepts(current, pathFilter) {
			results = append(results, current)
			c.inc(func(m *observability.Metrics) { m.PagesDiscovered.Add(1) })
		}

		fetched++
		resp, err := fetcher.FetchPage(ctx, c.fetcher, current)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.logger.Warn("crawl fetch failed", "url", current, "error", err)
			c.inc(func(m *observability.Metrics) { m.FetchErrors.Add(1) })
			c.visited(current, len(results), frontier.Len())
			continue
		}
		c.inc(func(m *observability.Metrics) { m.PagesFetched.Add(1) })

		links, err := parser.ExtractLinks(resp, pathFilter)
		if err != nil {
			c.logger.Warn("link extraction failed", "url", current, "error", err)
		}
		added := 0
		for _, link := range links {
			if link.Matches && frontier.Push(link.URL) {
				added++
			}
		}

		c.logger.Debug("page crawled",
			"url", current,
			"links", len(links),
			"enqueued", added,
		)
		c.visited(current, len(results), frontier.Len())
	}

	c.logger.Info("crawl finished",
		"base_url", baseURL,
		"visited", frontier.Seen().Visits(),
		"discovered", frontier.Seen().Count(),
		"pages", len(results),
	)
	return results, nil
}

// Accepts reports whether rawURL belongs in the crawl result.
func (c *Crawler) Accepts(rawURL, pathFilter string) bool {
	if !strings.Contains(rawURL, pathFilter) {
		return false
	}
	for _, s := range c.exclude {
		if s != "" && strings.Contains(rawURL, s) {
			return false
		}
	}
	return true
}

func (c *Crawler) visited(url string, found, queued int) {
	c.inc(func(m *observability.Metrics) { m.QueueDepth.Store(int64(queued)) })
	if c.OnVisit != nil {
		c.OnVisit(url, found)
	}
}

func (c *Crawler) inc(f func(*observability.Metrics)) {
	if c.metrics != nil {
		f(c.metrics)
	}
}
