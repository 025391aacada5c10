package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"name": "Foo Token",
			"symbol": "FOO",
			"description": "A test token",
			"image": "https://ipfs.io/ipfs/QmImg",
			"twitter": "https://x.com/foo",
			"website": "https://foo.example"
		}`))
	}))
	defer server.Close()

	fetcher := NewFetcher()

	meta, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if meta.Name != "Foo Token" {
		t.Errorf("Name mismatch: got %s", meta.Name)
	}
	if meta.Symbol != "FOO" {
		t.Errorf("Symbol mismatch: got %s", meta.Symbol)
	}
	if meta.Image != "https://ipfs.io/ipfs/QmImg" {
		t.Errorf("Image mismatch: got %s", meta.Image)
	}
	if meta.Twitter != "https://x.com/foo" {
		t.Errorf("Twitter mismatch: got %s", meta.Twitter)
	}
}

func TestFetcher_FetchNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher()

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestFetcher_FetchInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher()

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

func TestFetcher_FetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	fetcher := NewFetcher(WithFetchTimeout(20 * time.Millisecond))

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected timeout error")
	}
}

func TestFetcher_FetchBadURL(t *testing.T) {
	fetcher := NewFetcher()

	if _, err := fetcher.Fetch(context.Background(), "://not-a-url"); err == nil {
		t.Error("expected error for malformed URL")
	}
}
