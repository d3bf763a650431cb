package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetch_HTML(t *testing.T) {
	var gotAccept, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Rates</title></head><body><p>Meals are $20.</p></body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, 1<<20, nil)
	c, err := f.Fetch(context.Background(), srv.URL+"/rates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Title != "Rates" {
		t.Errorf("expected title %q, got %q", "Rates", c.Title)
	}
	if c.TextContent != "Meals are $20." {
		t.Errorf("unexpected text %q", c.TextContent)
	}
	if c.CharacterCount != len("Meals are $20.") {
		t.Errorf("unexpected character count %d", c.CharacterCount)
	}
	if !strings.HasPrefix(gotAccept, "text/html") {
		t.Errorf("expected html accept header, got %q", gotAccept)
	}
	if gotUA == "" {
		t.Error("expected user agent header")
	}
}

func TestFetch_UsesMediaTypeParser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("<b>not html</b>"))
	}))
	defer srv.Close()

	c, err := NewFetcher(time.Second, 0, nil).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.TextContent != "<b>not html</b>" {
		t.Errorf("expected raw text kept, got %q", c.TextContent)
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second, 0, nil).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if err.Error() != "failed to fetch content: Not Found" {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := NewFetcher(50*time.Millisecond, 0, nil).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout message, got %q", err.Error())
	}
	if time.Since(start) > time.Second {
		t.Errorf("fetch was not aborted promptly: %s", time.Since(start))
	}
}

func TestFetch_SizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second, 10, nil).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	f := NewFetcher(time.Second, 0, nil)
	for _, u := range []string{"", "ftp://example.com/file", "not a url", "http://"} {
		if _, err := f.Fetch(context.Background(), u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}
