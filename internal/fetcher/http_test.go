package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(config.DefaultConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestFetchHTMLSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body>Biography</body></html>")
	}))
	defer srv.Close()

	html, err := FetchHTML(context.Background(), newTestFetcher(t), srv.URL+"/en/page")
	if err != nil {
		t.Fatalf("FetchHTML: %v", err)
	}
	if !strings.Contains(html, "Biography") {
		t.Errorf("body = %q", html)
	}
}

func TestFetchNonSuccessIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchHTML(context.Background(), newTestFetcher(t), srv.URL)
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", fe.StatusCode)
	}
}

func TestFetchTransportErrorIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := FetchHTML(context.Background(), newTestFetcher(t), url)
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("status = %d, want 0 for transport error", fe.StatusCode)
	}
}

func TestFetchBrotliBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		_, _ = io.WriteString(bw, "<p>مرحبا</p>")
		_ = bw.Close()
	}))
	defer srv.Close()

	html, err := FetchHTML(context.Background(), newTestFetcher(t), srv.URL)
	if err != nil {
		t.Fatalf("FetchHTML: %v", err)
	}
	if html != "<p>مرحبا</p>" {
		t.Errorf("decoded body = %q", html)
	}
}

func TestUserAgentRotation(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.UserAgent())
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	for i := 0; i < 2; i++ {
		if _, err := FetchHTML(context.Background(), f, srv.URL); err != nil {
			t.Fatal(err)
		}
	}
	if len(seen) != 2 || seen[0] == seen[1] {
		t.Errorf("expected two different user agents, got %v", seen)
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fetcher.Type = "carrier-pigeon"
	_, err := New(cfg, testLogger())
	var ce *types.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
