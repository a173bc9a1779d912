package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"rymbridge/internal/browser"
	"rymbridge/internal/config"
	"rymbridge/internal/logging"
	"rymbridge/internal/ratings"
)

// ErrNoListing reports that the search results page held no album candidate.
var ErrNoListing = errors.New("no listing found")

// ParseError reports that an expected element was missing or malformed on a
// page that otherwise loaded. It carries enough context to diagnose site
// markup drift from logs alone.
type ParseError struct {
	URL   string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s on %s: %v", e.Field, e.URL, e.Err)
	}
	return fmt.Sprintf("parse %s on %s: element missing", e.Field, e.URL)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Scraper extracts album ratings from live pages through the navigation gate.
type Scraper struct {
	nav     browser.Navigator
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a scraper that navigates through nav.
func New(nav browser.Navigator, cfg *config.Config, logger *slog.Logger) *Scraper {
	return &Scraper{
		nav:     nav,
		baseURL: strings.TrimRight(cfg.Scraper.BaseURL, "/"),
		logger:  logging.NewComponentLogger(logger, "scraper"),
		now:     time.Now,
	}
}

// Search loads the album search results for (artist, album) and returns the
// URL of the first candidate. The first result wins; there is no ranking or
// disambiguation pass.
func (s *Scraper) Search(ctx context.Context, artist, album string) (string, error) {
	query := url.QueryEscape(strings.TrimSpace(artist + " " + album))
	searchURL := fmt.Sprintf("%s/search?searchterm=%s&searchtype=l", s.baseURL, query)

	doc, err := s.nav.Navigate(ctx, searchURL)
	if err != nil {
		return "", fmt.Errorf("search %q / %q: %w", artist, album, err)
	}

	anchor := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "a" && hasClass(n, "searchpage") && attr(n, "href") != ""
	})
	if anchor == nil {
		return "", fmt.Errorf("search %q / %q: %w", artist, album, ErrNoListing)
	}

	href := attr(anchor, "href")
	resolved, err := s.resolveURL(href)
	if err != nil {
		return "", &ParseError{URL: searchURL, Field: "searchpage href", Err: err}
	}
	return resolved, nil
}

func (s *Scraper) resolveURL(href string) (string, error) {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// FetchDetail loads an album page and extracts its rating fields. The rating
// and vote count are mandatory; genres and release date are best-effort.
func (s *Scraper) FetchDetail(ctx context.Context, albumURL string) (*ratings.Record, error) {
	doc, err := s.nav.Navigate(ctx, albumURL)
	if err != nil {
		return nil, fmt.Errorf("fetch album page: %w", err)
	}

	ratingText := classText(doc, "avg_rating")
	if ratingText == "" {
		return nil, &ParseError{URL: albumURL, Field: "avg_rating"}
	}
	rating, err := strconv.ParseFloat(ratingText, 64)
	if err != nil {
		return nil, &ParseError{URL: albumURL, Field: "avg_rating", Err: err}
	}

	countText := strings.ReplaceAll(classText(doc, "num_ratings"), ",", "")
	countText = strings.Join(strings.Fields(countText), "")
	if countText == "" {
		return nil, &ParseError{URL: albumURL, Field: "num_ratings"}
	}
	count, err := strconv.Atoi(countText)
	if err != nil {
		return nil, &ParseError{URL: albumURL, Field: "num_ratings", Err: err}
	}

	rec := &ratings.Record{
		Rating:      rating,
		RatingCount: count,
		SourceURL:   albumURL,
		Genres:      s.extractGenres(doc),
		ReleaseDate: classText(doc, "release_date"),
		ResolvedAt:  s.now().UTC(),
	}
	return rec, nil
}

func (s *Scraper) extractGenres(doc *html.Node) string {
	var nodes []*html.Node
	findAll(doc, func(n *html.Node) bool {
		return n.Data == "a" && hasClass(n, "genre")
	}, &nodes)

	seen := make(map[string]struct{}, len(nodes))
	var genres []string
	for _, n := range nodes {
		name := textContent(n)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		genres = append(genres, name)
	}
	return strings.Join(genres, ", ")
}

// Lookup composes search and detail extraction into a full record for the
// given names. The display names on the record are the caller's, not the
// site's, so cache keys derived from the record match the original request.
func (s *Scraper) Lookup(ctx context.Context, artist, album string) (*ratings.Record, error) {
	albumURL, err := s.Search(ctx, artist, album)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search matched",
		logging.String("artist", artist),
		logging.String("album", album),
		logging.String("url", albumURL))

	rec, err := s.FetchDetail(ctx, albumURL)
	if err != nil {
		return nil, err
	}
	rec.ArtistName = artist
	rec.AlbumName = album
	if err := rec.Validate(); err != nil {
		return nil, &ParseError{URL: albumURL, Field: "record", Err: err}
	}
	return rec, nil
}
