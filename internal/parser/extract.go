package parser

import (
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// Extractor turns a page into the chunks fed to the entity model.
type Extractor struct {
	chunkSize   int
	scopeXPath  string
	autoContent bool
	logger      *slog.Logger
}

// NewExtractor creates an Extractor from the extract config section.
func NewExtractor(cfg config.ExtractConfig, logger *slog.Logger) *Extractor {
	size := cfg.ChunkSize
	if size < 1 {
		size = DefaultChunkSize
	}
	return &Extractor{
		chunkSize:   size,
		scopeXPath:  cfg.ScopeXPath,
		autoContent: cfg.AutoContent,
		logger:      logger.With("component", "extractor"),
	}
}

// Extract returns the chunks of the region between startPhrase and the
// first endPhrase at or after it. A missing phrase is a
// *types.PhraseNotFoundError.
func (e *Extractor) Extract(page, startPhrase, endPhrase string) ([]string, error) {
	if e.scopeXPath != "" {
		scoped, err := scopeHTML(page, e.scopeXPath)
		if err != nil {
			return nil, &types.ParseError{Source: "scope_xpath", Err: err}
		}
		page = scoped
	}

	if e.autoContent && startPhrase == "" && endPhrase == "" {
		text, err := MainContent(page)
		if err != nil {
			return nil, err
		}
		return Chunk(text, e.chunkSize), nil
	}

	text, err := FlattenText(page)
	if err != nil {
		return nil, err
	}

	region, err := Region(text, startPhrase, endPhrase)
	if err != nil {
		return nil, err
	}

	chunks := Chunk(region, e.chunkSize)
	e.logger.Debug("extracted region",
		"region_len", len(region),
		"chunks", len(chunks),
	)
	return chunks, nil
}

// FlattenText parses page, replaces every tag with a space and decodes
// entities.
func FlattenText(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", &types.ParseError{Source: "html", Err: err}
	}
	serialized, err := doc.Html()
	if err != nil {
		return "", &types.ParseError{Source: "html", Err: err}
	}
	return html.UnescapeString(tagRe.ReplaceAllString(serialized, " ")), nil
}

// Region returns the trimmed text from the first startPhrase up to the first
// endPhrase found at or after it.
func Region(text, startPhrase, endPhrase string) (string, error) {
	start := strings.Index(text, startPhrase)
	if start < 0 {
		return "", &types.PhraseNotFoundError{Phrase: startPhrase, Which: "start"}
	}
	end := strings.Index(text[start:], endPhrase)
	if end < 0 {
		return "", &types.PhraseNotFoundError{Phrase: endPhrase, Which: "end"}
	}
	return strings.TrimSpace(text[start : start+end]), nil
}

// MainContent returns the main text of a page as detected by trafilatura.
func MainContent(page string) (string, error) {
	result, err := trafilatura.Extract(strings.NewReader(page), trafilatura.Options{})
	if err != nil {
		return "", &types.ParseError{Source: "trafilatura", Err: err}
	}
	if result == nil || strings.TrimSpace(result.ContentText) == "" {
		return "", &types.ParseError{Source: "trafilatura", Err: types.ErrEmptyResponse}
	}
	return result.ContentText, nil
}
