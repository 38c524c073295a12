package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// allowAll replaces the SSRF guard so tests can target loopback servers.
func allowAll(string) error { return nil }

func TestFetchDownloadsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp4 bytes"))
	}))
	defer srv.Close()

	c := New()
	c.validate = allowAll

	body, err := c.Fetch(context.Background(), srv.URL+"/media.mp4", 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "mp4 bytes" {
		t.Errorf("expected body to round-trip, got %q", body)
	}
}

func TestFetchRejectsDisallowedURL(t *testing.T) {
	c := New()

	cases := []string{
		"http://127.0.0.1:9000/internal.mp4",
		"https://localhost/media.mp4",
		"https://169.254.169.254/latest/meta-data",
		"ftp://cdn.example.com/media.mp4",
	}
	for _, raw := range cases {
		if _, err := c.Fetch(context.Background(), raw, 0); err == nil {
			t.Errorf("expected %s to be rejected", raw)
		}
	}
}

func TestFetchRevalidatesRedirectHops(t *testing.T) {
	var blockedHit bool
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/blocked", http.StatusFound)
	})
	mux.HandleFunc("/blocked", func(w http.ResponseWriter, r *http.Request) {
		blockedHit = true
		w.Write([]byte("secret"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New()
	c.validate = func(raw string) error {
		if strings.Contains(raw, "blocked") {
			return errors.New("disallowed host")
		}
		return nil
	}

	if _, err := c.Fetch(context.Background(), srv.URL+"/start", 0); err == nil {
		t.Fatal("expected the redirect target to be rejected")
	}
	if blockedHit {
		t.Error("blocked redirect target must never be requested")
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	c := New()
	c.validate = allowAll

	if _, err := c.Fetch(context.Background(), srv.URL, 16); err == nil {
		t.Fatal("expected an oversized body to be rejected, not truncated")
	}
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New()
	c.validate = allowAll

	if _, err := c.Fetch(context.Background(), srv.URL, 0); err == nil {
		t.Fatal("expected a 503 response to be an error")
	}
}
