package repl

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/IshaanNene/entitymap/internal/types"
)

func TestAskCrawl(t *testing.T) {
	in := strings.NewReader("1\nyes\nhttps://example.org/en/collections\n/collections/\nBiography\nRelated\n")
	var out bytes.Buffer

	var gotSite types.SiteType
	job, err := New(in, &out).Ask(func(s types.SiteType) error {
		gotSite = s
		return nil
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if gotSite != types.SiteCollection {
		t.Errorf("onSite got %v", gotSite)
	}
	if job.Site != types.SiteCollection || !job.Crawl {
		t.Errorf("unexpected job %+v", job)
	}
	if job.URL != "https://example.org/en/collections" || job.PathFilter != "/collections/" {
		t.Errorf("unexpected url/filter: %q %q", job.URL, job.PathFilter)
	}
	if job.StartPhrase != "Biography" || job.EndPhrase != "Related" {
		t.Errorf("unexpected phrases: %q %q", job.StartPhrase, job.EndPhrase)
	}

	prompts := out.String()
	for _, p := range []string{promptSite, promptCrawl, promptURL, promptPath, promptStart, promptEnd} {
		if !strings.Contains(prompts, p) {
			t.Errorf("prompt %q not shown", p)
		}
	}
	if strings.Index(prompts, promptURL) > strings.Index(prompts, promptPath) {
		t.Error("path prompt should follow the URL prompt")
	}
}

func TestAskSinglePageSkipsPath(t *testing.T) {
	in := strings.NewReader("2\n  NO \nhttps://example.org/ar/x\nStart\nEnd")
	var out bytes.Buffer

	job, err := New(in, &out).Ask(nil)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if job.Crawl || job.PathFilter != "" {
		t.Errorf("unexpected crawl settings %+v", job)
	}
	if job.EndPhrase != "End" {
		t.Errorf("last line without newline should be read, got %q", job.EndPhrase)
	}
	if strings.Contains(out.String(), promptPath) {
		t.Error("path prompt shown for a single page")
	}
}

func TestAskInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		prompt string
	}{
		{"site not a number", "abc\n", "site type"},
		{"site out of range", "3\n", "site type"},
		{"crawl answer", "1\nmaybe\n", "crawl"},
		{"empty url", "1\nno\n\n", "url"},
		{"input ends early", "1\nno\n", "url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(strings.NewReader(tt.input), &bytes.Buffer{}).Ask(nil)
			var ie *types.InvalidInputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InvalidInputError, got %v", err)
			}
			if ie.Prompt != tt.prompt {
				t.Errorf("prompt = %q, want %q", ie.Prompt, tt.prompt)
			}
		})
	}
}

func TestAskOnSiteError(t *testing.T) {
	boom := errors.New("cannot create all_entities.csv")
	_, err := New(strings.NewReader("1\nno\n"), &bytes.Buffer{}).Ask(func(types.SiteType) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected onSite error, got %v", err)
	}
}
