package types

import (
	"fmt"
	"strconv"
	"strings"
)

// SiteType selects the label vocabulary family and the output folder.
type SiteType int

const (
	SiteCollection   SiteType = 1
	SiteEncyclopedia SiteType = 2
)

// ParseSiteType converts operator input into a SiteType.
func ParseSiteType(s string) (SiteType, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &InvalidInputError{Prompt: "site type", Input: s, Reason: "enter a valid number (1 or 2)"}
	}
	st := SiteType(n)
	if !st.Valid() {
		return 0, &InvalidInputError{Prompt: "site type", Input: s, Reason: "website type must be 1 or 2"}
	}
	return st, nil
}

// Valid reports whether s is a known site type.
func (s SiteType) Valid() bool {
	return s == SiteCollection || s == SiteEncyclopedia
}

func (s SiteType) String() string {
	switch s {
	case SiteCollection:
		return "collection"
	case SiteEncyclopedia:
		return "encyclopedia"
	default:
		return fmt.Sprintf("site(%d)", int(s))
	}
}

// Language is the page language, derived from its URL.
type Language string

const (
	English Language = "english"
	Arabic  Language = "arabic"
)

// LanguageFromURL returns English for URLs containing "/en/" and Arabic for
// "/ar/", ignoring case. Any other URL is a ConfigurationError.
func LanguageFromURL(pageURL string) (Language, error) {
	lower := strings.ToLower(pageURL)
	switch {
	case strings.Contains(lower, "/en/"):
		return English, nil
	case strings.Contains(lower, "/ar/"):
		return Arabic, nil
	}
	return "", &ConfigurationError{Field: "url", Value: pageURL, Reason: "no /en/ or /ar/ language segment"}
}

// ParseLanguage accepts "english"/"en" and "arabic"/"ar".
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "english", "en":
		return English, nil
	case "arabic", "ar":
		return Arabic, nil
	}
	return "", &ConfigurationError{Field: "language", Value: s, Reason: "expected english or arabic"}
}

// Bucket is one of the five semantic categories every kept entity lands in.
type Bucket int

const (
	BucketPerson Bucket = iota
	BucketCountry
	BucketDate
	BucketPlaceEra
	BucketCityMaterial
)

var bucketNames = [...]string{"person", "country", "date", "place/era", "city/material"}

func (b Bucket) String() string {
	if int(b) < len(bucketNames) {
		return bucketNames[b]
	}
	return fmt.Sprintf("bucket(%d)", int(b))
}

// RawEntity is one model detection for one chunk.
type RawEntity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score,omitempty"`
}

// BucketedEntity is a normalized entity. Label keeps the surface label the
// model was asked for, so Arabic pages show Arabic labels.
type BucketedEntity struct {
	Text   string
	Label  string
	Bucket Bucket
}

// Key is the deduplication key of the entity.
func (e BucketedEntity) Key() [2]string {
	return [2]string{e.Text, e.Label}
}

// EntityCount is one output row: how often an entity occurs on a page.
type EntityCount struct {
	Link        string `json:"link" bson:"link"`
	Entity      string `json:"entity" bson:"entity"`
	Label       string `json:"label" bson:"label"`
	Occurrences int    `json:"occurrences" bson:"occurrences"`
}

// CSVHeader is the header row of every entity CSV.
var CSVHeader = []string{"Link", "Entity", "Label", "Occurrences"}

// Record returns the row in CSVHeader order.
func (c EntityCount) Record() []string {
	return []string{c.Link, c.Entity, c.Label, strconv.Itoa(c.Occurrences)}
}

// IsArabicRune reports whether r lies in the Arabic block U+0600..U+06FF.
func IsArabicRune(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

// ContainsArabic reports whether s has at least one Arabic-block rune.
func ContainsArabic(s string) bool {
	return strings.IndexFunc(s, IsArabicRune) >= 0
}
