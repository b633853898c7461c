package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/entitymap/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeDemonyms struct{}

func (fakeDemonyms) Nationality(text string) string {
	if text == "Egyptian" {
		return "Egypt"
	}
	return text
}

func (fakeDemonyms) IsArabicCountry(text string) bool { return text == "مصر" }

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger).Use(&TrimMiddleware{}, &CapitalizedNameMiddleware{})

	result, err := p.Process(types.RawEntity{Text: "  John Smith  ", Label: "Person"})
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result == nil || result.Text != "John Smith" {
		t.Fatalf("expected trimmed entity, got %+v", result)
	}
	if p.Len() != 2 {
		t.Errorf("expected 2 middleware, got %d", p.Len())
	}
}

func TestPipelineDropStopsChain(t *testing.T) {
	p := New(testLogger).Use(&TrimMiddleware{}, &LabelMiddleware{})

	result, err := p.Process(types.RawEntity{Text: "   ", Label: "Person"})
	if err != nil {
		t.Fatalf("dropped entity should not reach later stages: %v", err)
	}
	if result != nil {
		t.Errorf("expected drop, got %+v", result)
	}
}

func TestPipelineErrorIsWrapped(t *testing.T) {
	p := New(testLogger).Use(&LabelMiddleware{Allowed: map[string]bool{"Person": true}})

	_, err := p.Process(types.RawEntity{Text: "Doha", Label: "City"})
	var pe *types.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if pe.Stage != "label" {
		t.Errorf("stage = %q", pe.Stage)
	}
	if !errors.Is(err, types.ErrUnknownLabel) {
		t.Error("expected ErrUnknownLabel in chain")
	}
}

func TestPipelineDoesNotMutateInput(t *testing.T) {
	p := New(testLogger).Use(&YearMiddleware{})
	in := types.RawEntity{Text: "in 1923", Label: "Date"}
	if _, err := p.Process(in); err != nil {
		t.Fatal(err)
	}
	if in.Text != "in 1923" {
		t.Errorf("input mutated: %q", in.Text)
	}
}

func TestCapitalizedNameMiddleware(t *testing.T) {
	m := &CapitalizedNameMiddleware{}
	tests := []struct {
		text string
		keep bool
	}{
		{"John", true},
		{"john", false},
		{"1923", false},
		{"Élodie", true},
		{"محمد", true},
		{"", false},
	}
	for _, tt := range tests {
		got, _ := m.Process(&types.RawEntity{Text: tt.text})
		if (got != nil) != tt.keep {
			t.Errorf("%q: keep=%v, want %v", tt.text, got != nil, tt.keep)
		}
	}
}

func TestStoplistMiddleware(t *testing.T) {
	m := NewStoplistMiddleware(DefaultPronouns)
	for _, w := range []string{"He", "THEY", "i"} {
		if got, _ := m.Process(&types.RawEntity{Text: w}); got != nil {
			t.Errorf("%q should be dropped", w)
		}
	}
	if got, _ := m.Process(&types.RawEntity{Text: "Hebe"}); got == nil {
		t.Error("Hebe should be kept")
	}
}

func TestArabicScriptMiddleware(t *testing.T) {
	m := &ArabicScriptMiddleware{}
	if got, _ := m.Process(&types.RawEntity{Text: "Doha"}); got != nil {
		t.Error("latin text should be dropped")
	}
	if got, _ := m.Process(&types.RawEntity{Text: "الدوحة"}); got == nil {
		t.Error("arabic text should be kept")
	}
}

func TestYearMiddleware(t *testing.T) {
	m := &YearMiddleware{}
	tests := []struct {
		input    string
		expected string
	}{
		{"March 1923", "1923"},
		{"1850-1923", "1850"},
		{"2024", "2024"},
		{"1750", ""},
		{"12345", ""},
		{"the twenties", ""},
	}
	for _, tt := range tests {
		got, _ := m.Process(&types.RawEntity{Text: tt.input})
		switch {
		case tt.expected == "" && got != nil:
			t.Errorf("%q: expected drop, got %q", tt.input, got.Text)
		case tt.expected != "" && (got == nil || got.Text != tt.expected):
			t.Errorf("%q: expected %q, got %+v", tt.input, tt.expected, got)
		}
	}
}

func TestDemonymMiddleware(t *testing.T) {
	m := &DemonymMiddleware{Lookup: fakeDemonyms{}}
	got, _ := m.Process(&types.RawEntity{Text: "Egyptian"})
	if got.Text != "Egypt" {
		t.Errorf("expected Egypt, got %q", got.Text)
	}
	got, _ = m.Process(&types.RawEntity{Text: "Atlantean"})
	if got.Text != "Atlantean" {
		t.Errorf("expected unchanged text, got %q", got.Text)
	}
}

func TestArabicCountryExclusionMiddleware(t *testing.T) {
	m := &ArabicCountryExclusionMiddleware{Lookup: fakeDemonyms{}}
	if got, _ := m.Process(&types.RawEntity{Text: " مصر "}); got != nil {
		t.Error("country name should be dropped")
	}
	if got, _ := m.Process(&types.RawEntity{Text: "القاهرة"}); got == nil {
		t.Error("city should be kept")
	}
}

// ──────────────────────────────────────────────────
// Benchmarks
// ──────────────────────────────────────────────────

func BenchmarkPersonChain(b *testing.B) {
	p := New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))).
		Use(&TrimMiddleware{}, &CapitalizedNameMiddleware{}, NewStoplistMiddleware(DefaultPronouns))
	e := types.RawEntity{Text: " John Smith ", Label: "Person"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Process(e)
	}
}
