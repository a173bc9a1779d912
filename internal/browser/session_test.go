package browser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rymbridge/internal/browser"
	"rymbridge/internal/testsupport"
)

func TestSessionNavigateParsesDocument(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><div class="avg_rating">4.12</div></body></html>`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	session, err := browser.NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	doc, err := session.Navigate(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Navigate returned error: %v", err)
	}
	if doc == nil {
		t.Fatal("expected parsed document")
	}
	if !strings.Contains(gotAgent, "Mozilla") {
		t.Fatalf("expected configured user agent, got %q", gotAgent)
	}
}

func TestSessionNavigateRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	session, err := browser.NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if _, err := session.Navigate(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
