package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSourceListAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/manifest.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"assets":[{"id":"Aurora","sha256":"abc123","sizeBytes":42},{"id":"Cloudy"}]}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	defer src.Close()

	assets, err := src.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("Expected 2 assets, got %d", len(assets))
	}
	if assets[0].ID != "Aurora" || assets[0].DeclaredHash != "abc123" || assets[0].SizeBytes != 42 {
		t.Errorf("Unexpected first asset: %+v", assets[0])
	}
	if assets[1].DeclaredHash != "" {
		t.Errorf("Expected empty declared hash, got %q", assets[1].DeclaredHash)
	}
}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/skies/Aurora.zip" {
			w.Write([]byte("zip-bytes"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	defer src.Close()

	payload, err := src.Fetch(context.Background(), "Aurora")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(payload) != "zip-bytes" {
		t.Errorf("Unexpected payload: %s", payload)
	}

	if _, err := src.Fetch(context.Background(), "Missing"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for 404, got %v", err)
	}
}

func TestHTTPSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	srv.Close() // refuse connections

	src := NewHTTPSource(srv.URL)
	defer src.Close()

	if _, err := src.ListAvailable(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	if _, err := src.Fetch(context.Background(), "Aurora"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPSourceMalformedManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	defer src.Close()

	if _, err := src.ListAvailable(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}
