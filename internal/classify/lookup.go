package classify

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/IshaanNene/entitymap/internal/types"
)

// Lookup column headers.
const (
	ColCountryEnglish = "Country (English)"
	ColDemonymMale    = "Demonym (Male)"
	ColDemonymFemale  = "Demonym (Female)"
	ColCountryArabic  = "Country (Arabic)"
)

type demonymRow struct {
	country string
	male    string // lower-cased
	female  string // lower-cased
	arabic  string
}

// Lookup maps demonyms to countries and knows the Arabic country names.
// It is read once at startup and is read-only afterwards.
type Lookup struct {
	rows   []demonymRow
	arabic map[string]struct{}
}

// LoadLookup reads the demonym table from path.
func LoadLookup(path string) (*Lookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "lookup.demonyms_path", Value: path, Reason: err.Error()}
	}
	defer f.Close()

	l, err := ReadLookup(f)
	if err != nil {
		var ce *types.ConfigurationError
		if errors.As(err, &ce) && ce.Value == "" {
			ce.Value = path
		}
		return nil, err
	}
	return l, nil
}

// ReadLookup parses a demonym table. A leading BOM is tolerated and columns
// are located by header name.
func ReadLookup(r io.Reader) (*Lookup, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &types.ConfigurationError{Field: "lookup.demonyms_path", Reason: fmt.Sprintf("read header: %v", err)}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, name := range []string{ColCountryEnglish, ColDemonymMale, ColDemonymFemale, ColCountryArabic} {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &types.ConfigurationError{
			Field:  "lookup.demonyms_path",
			Reason: "missing columns: " + strings.Join(missing, ", "),
		}
	}

	field := func(rec []string, name string) string {
		if i := cols[name]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	l := &Lookup{arabic: make(map[string]struct{})}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &types.ParseError{Source: "demonym table", Line: line, Err: err}
		}
		row := demonymRow{
			country: field(rec, ColCountryEnglish),
			male:    strings.ToLower(field(rec, ColDemonymMale)),
			female:  strings.ToLower(field(rec, ColDemonymFemale)),
			arabic:  field(rec, ColCountryArabic),
		}
		l.rows = append(l.rows, row)
		if row.arabic != "" {
			l.arabic[row.arabic] = struct{}{}
		}
	}
	return l, nil
}

// Nationality returns the English country of the first row whose male or
// female demonym contains text, compared case-insensitively. Unmatched text,
// or a match on a row without a country, is returned unchanged.
func (l *Lookup) Nationality(text string) string {
	needle := strings.ToLower(text)
	if needle == "" {
		return text
	}
	for _, row := range l.rows {
		if strings.Contains(row.male, needle) || strings.Contains(row.female, needle) {
			if row.country == "" {
				return text
			}
			return row.country
		}
	}
	return text
}

// IsArabicCountry reports whether text is exactly one of the Arabic
// country names.
func (l *Lookup) IsArabicCountry(text string) bool {
	_, ok := l.arabic[text]
	return ok
}

// Len returns the number of rows.
func (l *Lookup) Len() int { return len(l.rows) }
