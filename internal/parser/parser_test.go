package parser

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const bioHTML = `<!DOCTYPE html>
<html>
<head><title>Artist</title></head>
<body>
    <nav><a href="/en/collections/">Collections</a></nav>
    <div id="bio">
        <h2>Biography</h2>
        <p>John Smith was born in <b>Cairo</b> in 1923 &amp; studied painting.</p>
        <p>He moved to Paris.</p>
    </div>
    <footer>Related works</footer>
</body>
</html>`

// --- Region Tests ---

func TestExtractRegion(t *testing.T) {
	e := NewExtractor(config.ExtractConfig{ChunkSize: 500}, testLogger)
	chunks, err := e.Extract(bioHTML, "Biography", "Related works")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %q", len(chunks), chunks)
	}
	want := "Biography John Smith was born in Cairo in 1923 & studied painting. He moved to Paris."
	if chunks[0] != want {
		t.Errorf("chunk = %q\nwant    %q", chunks[0], want)
	}
}

func TestExtractMissingStart(t *testing.T) {
	e := NewExtractor(config.ExtractConfig{}, testLogger)
	_, err := e.Extract(bioHTML, "Obituary", "Related works")
	var pe *types.PhraseNotFoundError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PhraseNotFoundError, got %v", err)
	}
	if pe.Which != "start" {
		t.Errorf("which = %q, want start", pe.Which)
	}
}

func TestExtractEndBeforeStartIsMissing(t *testing.T) {
	// "Artist" only appears in <title>, before the start phrase.
	e := NewExtractor(config.ExtractConfig{}, testLogger)
	_, err := e.Extract(bioHTML, "Biography", "Artist")
	var pe *types.PhraseNotFoundError
	if !errors.As(err, &pe) || pe.Which != "end" {
		t.Fatalf("expected end PhraseNotFoundError, got %v", err)
	}
}

func TestRegionEndAtStart(t *testing.T) {
	got, err := Region("abc marker def", "marker", "marker")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("region = %q, want empty", got)
	}
	if chunks := Chunk(got, 10); len(chunks) != 0 {
		t.Errorf("empty region produced chunks %q", chunks)
	}
}

func TestFlattenTextReplacesTagsWithSpace(t *testing.T) {
	text, err := FlattenText("<p>one<br>two</p>")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "one  two") && !strings.Contains(text, "one two") {
		t.Errorf("tags not replaced by spaces: %q", text)
	}
	if strings.Contains(text, "<") {
		t.Errorf("markup left in %q", text)
	}
}

func TestExtractScopeXPath(t *testing.T) {
	e := NewExtractor(config.ExtractConfig{ScopeXPath: `//div[@id="bio"]`}, testLogger)
	chunks, err := e.Extract(bioHTML, "John", "Paris")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(chunks) != 1 || !strings.HasPrefix(chunks[0], "John Smith") {
		t.Errorf("chunks = %q", chunks)
	}

	_, err = e.Extract(bioHTML, "Related", "works")
	if err == nil {
		t.Error("footer text should be outside the xpath scope")
	}
}

func TestScopeHTMLDropsScripts(t *testing.T) {
	page := `<html><body><div id="bio">Start <script>var x = "Egypt";</script><style>p{}</style>End</div></body></html>`
	scoped, err := scopeHTML(page, `//div[@id="bio"]`)
	if err != nil {
		t.Fatalf("scopeHTML: %v", err)
	}
	if strings.Contains(scoped, "Egypt") || strings.Contains(scoped, "<style>") {
		t.Errorf("script or style kept: %q", scoped)
	}
	if !strings.Contains(scoped, "Start") || !strings.Contains(scoped, "End") {
		t.Errorf("text lost: %q", scoped)
	}

	if _, err := scopeHTML(page, `//section`); err == nil {
		t.Error("expected error for an xpath matching nothing")
	}
}

// --- Chunk Tests ---

func TestChunkRespectsLimit(t *testing.T) {
	text := strings.Repeat("word ", 300)
	chunks := Chunk(text, 50)
	for i, c := range chunks {
		if utf8.RuneCountInString(c) > 50 {
			t.Errorf("chunk %d has %d runes", i, utf8.RuneCountInString(c))
		}
		if c == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
	if got := strings.Join(chunks, " "); got != strings.Join(strings.Fields(text), " ") {
		t.Error("chunks do not reconstruct the words in order")
	}
}

func TestChunkExactBoundary(t *testing.T) {
	// "aaaa bbbb" is 9 runes; limit 9 keeps it together, 8 splits it.
	if got := Chunk("aaaa bbbb", 9); len(got) != 1 {
		t.Errorf("limit 9: %q", got)
	}
	if got := Chunk("aaaa bbbb", 8); len(got) != 2 {
		t.Errorf("limit 8: %q", got)
	}
}

func TestChunkOversizedWord(t *testing.T) {
	long := strings.Repeat("x", 20)
	chunks := Chunk("a "+long+" b", 5)
	want := []string{"a", long, "b"}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkCountsRunesNotBytes(t *testing.T) {
	// Each Arabic word is 5 runes but 10 bytes.
	chunks := Chunk("مرحبا مرحبا", 11)
	if len(chunks) != 1 {
		t.Errorf("expected one chunk, got %q", chunks)
	}
}

func TestChunkEmpty(t *testing.T) {
	if got := Chunk("   \n\t ", 10); len(got) != 0 {
		t.Errorf("expected no chunks, got %q", got)
	}
}

// --- Link Tests ---

func TestExtractLinks(t *testing.T) {
	page := `<html><body>
		<a href="/en/collections/objects/a.aspx">A</a>
		<a href="b.aspx#top">B</a>
		<a href="https://other.org/en/collections/x">X</a>
		<a href="mailto:info@example.org">mail</a>
		<a href="javascript:void(0)">js</a>
		<a href="#section">anchor</a>
		<a href="/en/collections/objects/a.aspx">A again</a>
	</body></html>`

	req, err := types.NewRequest("https://example.org/en/collections/objects/index.aspx")
	if err != nil {
		t.Fatal(err)
	}
	resp := &types.Response{StatusCode: 200, Body: []byte(page), Request: req}
	links, err := ExtractLinks(resp, "/collections/objects/")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Doc == nil {
		t.Error("parsed document not kept on the response")
	}

	want := []PageLink{
		{URL: "https://example.org/en/collections/objects/a.aspx", Matches: true},
		{URL: "https://example.org/en/collections/objects/b.aspx", Matches: true},
		{URL: "https://other.org/en/collections/x", Matches: false},
	}
	if len(links) != len(want) {
		t.Fatalf("links = %+v", links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("link %d = %+v, want %+v", i, links[i], want[i])
		}
	}
}

// --- Benchmarks ---

func BenchmarkChunk(b *testing.B) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Chunk(text, DefaultChunkSize)
	}
}
