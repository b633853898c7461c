package pipeline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/IshaanNene/entitymap/internal/types"
)

// Demonyms resolves nationality words and recognises Arabic country names.
type Demonyms interface {
	// Nationality returns the English country for a demonym, or text itself.
	Nationality(text string) string

	// IsArabicCountry reports whether text is exactly an Arabic country name.
	IsArabicCountry(text string) bool
}

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from the entity text and drops empty ones.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(e *types.RawEntity) (*types.RawEntity, error) {
	e.Text = strings.TrimSpace(e.Text)
	if e.Text == "" {
		return nil, nil
	}
	return e, nil
}

// ArabicScriptMiddleware drops entities without a single Arabic-block rune.
// Arabic models readily echo Latin words from mixed text.
type ArabicScriptMiddleware struct{}

func (m *ArabicScriptMiddleware) Name() string { return "arabic_script" }

func (m *ArabicScriptMiddleware) Process(e *types.RawEntity) (*types.RawEntity, error) {
	if !types.ContainsArabic(e.Text) {
		return nil, nil
	}
	return e, nil
}

// CapitalizedNameMiddleware keeps entities whose first rune is a letter
// that is not lower case. Scripts without case pass.
type CapitalizedNameMiddleware struct{}

func (m *CapitalizedNameMiddleware) Name() string { return "capitalized_name" }

func (m *CapitalizedNameMiddleware) Process(e *types.RawEntity) (*types.RawEntity, error) {
	r, _ := utf8.DecodeRuneInString(e.Text)
	if r == utf8.RuneError || !unicode.IsLetter(r) || unicode.IsLower(r) {
		return nil, nil
	}
	return e, nil
}

// DefaultPronouns is the stoplist used for person labels.
var DefaultPronouns = []string{
	"he", "she", "him", "her", "it", "they", "them",
	"we", "us", "i", "me", "you", "his", "their", "our",
}

// StoplistMiddleware drops entities whose lower-cased text is a stopword.
type StoplistMiddleware struct {
	words map[string]struct{}
}

func NewStoplistMiddleware(words []string) *StoplistMiddleware {
	m := &StoplistMiddleware{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		m.words[strings.ToLower(w)] = struct{}{}
	}
	return m
}

func (m *StoplistMiddleware) Name() string { return "stoplist" }

func (m *StoplistMiddleware) Process(e *types.RawEntity) (*types.RawEntity, error) {
	if _, stop := m.words[strings.ToLower(e.Text)]; stop {
		return nil, nil
	}
	return e, nil
}

// DemonymMiddleware replaces nationality words with their country.
type DemonymMiddleware struct {
	Lookup Demonyms
}

func (m *DemonymMiddleware) Name() string { return "demonym" }

func (m *DemonymMiddleware) Process(e *types.RawEntity) (*types.RawEntity, error) {
	e.Text = m.Lookup.Nationality(e.Text)
	return e, nil
}

var yearRe = regexp.MustCompile(`\b(18|19|20)\d{2}\b`)

// YearMiddleware reduces a date entity to its first four-digit year in
// 1800..2099 and drops dates without one.
type YearMiddleware struct{}

func (m *YearMiddleware) Name() string { return "year" }

func (m *YearMiddleware) Process(e *types.RawEntity) (*types.RawEntity, error) {
	year := yearRe.FindString(e.Text)
	if year == "" {
		return nil, nil
	}
	e.Text = year
	return e, nil
}

// ArabicCountryExclusionMiddleware drops entities that are exactly an
// Arabic country name; those belong in the country bucket.
type ArabicCountryExclusionMiddleware struct {
	Lookup Demonyms
}

func (m *ArabicCountryExclusionMiddleware) Name() string { return "arabic_country_exclusion" }

func (m *ArabicCountryExclusionMiddleware) Process(e *types.RawEntity) (*types.RawEntity, error) {
	if m.Lookup.IsArabicCountry(strings.TrimSpace(e.Text)) {
		return nil, nil
	}
	return e, nil
}

// LabelMiddleware rejects entities carrying a label outside the set. It
// guards against backends that ignore the requested vocabulary.
type LabelMiddleware struct {
	Allowed map[string]bool
}

func (m *LabelMiddleware) Name() string { return "label" }

func (m *LabelMiddleware) Process(e *types.RawEntity) (*types.RawEntity, error) {
	if !m.Allowed[e.Label] {
		return nil, types.ErrUnknownLabel
	}
	return e, nil
}
