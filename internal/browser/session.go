package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/html"

	"rymbridge/internal/config"
)

// maxDocumentBytes bounds how much of a page the session will parse.
const maxDocumentBytes = 4 << 20

// Navigator loads a URL and returns the parsed document once the full body
// has been read.
type Navigator interface {
	Navigate(ctx context.Context, url string) (*html.Node, error)
}

// Session is the shared browsing identity: one cookie jar and one user agent
// for every navigation the process performs.
type Session struct {
	client    *http.Client
	userAgent string
}

// NewSession builds the process-wide browsing session from config.
func NewSession(cfg *config.Config) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Session{
		client: &http.Client{
			Jar:     jar,
			Timeout: cfg.NavigationTimeout(),
		},
		userAgent: cfg.Scraper.UserAgent,
	}, nil
}

// Navigate fetches the URL and parses the response body.
func (s *Session) Navigate(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build navigation request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("navigate %s: status %d", url, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}
