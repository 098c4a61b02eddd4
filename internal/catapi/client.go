package catapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

const (
	// DefaultBaseURL is the public TheCatAPI v1 endpoint.
	DefaultBaseURL = "https://api.thecatapi.com/v1"

	// MaxPageSize is the largest page the service returns per search.
	MaxPageSize = 25

	// DefaultExt is used when an image URL has no extension.
	DefaultExt = ".jpg"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Record is one search result.
type Record struct {
	ID     string
	URL    string
	Ext    string
	Width  int
	Height int
	Breeds []imaging.Tag
}

// searchResult mirrors the JSON returned by /images/search.
type searchResult struct {
	ID     string           `json:"id"`
	URL    string           `json:"url"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Breeds []map[string]any `json:"breeds"`
}

// Client talks to the image search service.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL points the client at another service root, such as a test server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithAPIKey sets the x-api-key header value.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New creates a client with a 30 second timeout against DefaultBaseURL.
func New(logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: DefaultBaseURL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to limit random image records that carry breed data.
func (c *Client) Search(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		return nil, fmt.Errorf("invalid search limit %d", limit)
	}

	q := url.Values{}
	q.Set("size", "low")
	q.Set("mime_types", "jpg")
	q.Set("format", "json")
	q.Set("has_breeds", "true")
	q.Set("order", "RANDOM")
	q.Set("page", "0")
	q.Set("limit", strconv.Itoa(min(limit, MaxPageSize)))
	endpoint := c.baseURL + "/images/search?" + q.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to search images: %w", err)
	}
	defer body.Close()

	var results []searchResult
	if err := json.NewDecoder(body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	records := make([]Record, 0, len(results))
	for _, r := range results {
		breeds := make([]imaging.Tag, 0, len(r.Breeds))
		for _, b := range r.Breeds {
			breeds = append(breeds, imaging.Tag(b))
		}
		records = append(records, Record{
			ID:     r.ID,
			URL:    r.URL,
			Ext:    ExtFromURL(r.URL),
			Width:  r.Width,
			Height: r.Height,
			Breeds: breeds,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"requested": limit,
		"received":  len(records),
	}).Debug("Image search completed")
	return records, nil
}

// Fetch downloads the image at rawURL and decodes it into a sample buffer.
func (c *Client) Fetch(ctx context.Context, rawURL string) (imaging.Array, error) {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return imaging.Array{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer body.Close()

	a, err := imaging.Decode(body)
	if err != nil {
		return imaging.Array{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	return a, nil
}

// get performs a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp.Body, nil
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// ExtFromURL returns the lowercased extension of the URL path, including
// the dot, or DefaultExt when the path has none.
func ExtFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || ext == "." {
		return DefaultExt
	}
	return ext
}
