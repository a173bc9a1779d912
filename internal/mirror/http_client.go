package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rymbridge/internal/config"
	"rymbridge/internal/logging"
	"rymbridge/internal/ratings"
)

// HTTPDoer describes the HTTP client used by the mirror service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	table   string
	client  HTTPDoer
	logger  *slog.Logger
}

// NewConfiguredClient returns a mirror client backed by the configured REST
// endpoint. Missing endpoint or credentials disable the tier.
func NewConfiguredClient(cfg *config.Config, logger *slog.Logger) Client {
	if cfg == nil || !cfg.MirrorEnabled() {
		return NewDisabled()
	}
	return NewHTTPClient(
		cfg.Mirror.URL,
		cfg.Mirror.APIKey,
		cfg.Mirror.Table,
		&http.Client{Timeout: cfg.MirrorTimeout()},
		logger,
	)
}

// NewHTTPClient constructs an HTTP-backed mirror client.
func NewHTTPClient(baseURL, apiKey, table string, client HTTPDoer, logger *slog.Logger) Client {
	if table == "" {
		table = "album_ratings"
	}
	return &httpClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		table:   table,
		client:  client,
		logger:  logging.NewComponentLogger(logger, "mirror"),
	}
}

func (c *httpClient) Enabled() bool {
	return c != nil && c.client != nil && c.baseURL != "" && c.apiKey != ""
}

// row is the REST wire shape for one mirrored rating.
type row struct {
	ArtistName  string  `json:"artist_name"`
	AlbumName   string  `json:"album_name"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
	SourceURL   string  `json:"source_url"`
	Genres      string  `json:"genres,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	ResolvedAt  int64   `json:"resolved_at"`
}

func (c *httpClient) Get(ctx context.Context, key ratings.Key) (*ratings.Record, error) {
	if !c.Enabled() {
		return nil, ErrUnavailable
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?artist_key=eq.%s&album_key=eq.%s&limit=1",
		c.baseURL, c.table, url.QueryEscape(key.Artist), url.QueryEscape(key.Album))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build mirror get request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: mirror returned %d", ErrUnavailable, resp.StatusCode)
	}

	var rows []row
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode mirror response: %v", ErrUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	r := rows[0]
	rec := &ratings.Record{
		ArtistName:  r.ArtistName,
		AlbumName:   r.AlbumName,
		Rating:      r.Rating,
		RatingCount: r.RatingCount,
		SourceURL:   r.SourceURL,
		Genres:      r.Genres,
		ReleaseDate: r.ReleaseDate,
		ResolvedAt:  time.Unix(r.ResolvedAt, 0).UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: malformed mirror row: %v", ErrUnavailable, err)
	}
	return rec, nil
}

func (c *httpClient) Put(ctx context.Context, rec *ratings.Record) error {
	if !c.Enabled() {
		return ErrUnavailable
	}
	if rec == nil {
		return fmt.Errorf("record is nil")
	}

	key := rec.Key()
	payload := struct {
		ArtistKey string `json:"artist_key"`
		AlbumKey  string `json:"album_key"`
		row
	}{
		ArtistKey: key.Artist,
		AlbumKey:  key.Album,
		row: row{
			ArtistName:  rec.ArtistName,
			AlbumName:   rec.AlbumName,
			Rating:      rec.Rating,
			RatingCount: rec.RatingCount,
			SourceURL:   rec.SourceURL,
			Genres:      rec.Genres,
			ReleaseDate: rec.ReleaseDate,
			ResolvedAt:  rec.ResolvedAt.Unix(),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mirror row: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, c.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mirror put request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: mirror returned %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *httpClient) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// PutAsync mirrors a record in the background. Failures are logged and
// otherwise dropped; a mirror write never delays or fails a resolution.
func PutAsync(client Client, logger *slog.Logger, rec *ratings.Record, timeout time.Duration) {
	if client == nil || !client.Enabled() || rec == nil {
		return
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := client.Put(ctx, rec); err != nil {
			if logger != nil {
				logger.Warn("mirror write failed",
					logging.String("artist", rec.ArtistName),
					logging.String("album", rec.AlbumName),
					logging.Error(err))
			}
		}
	}()
}
