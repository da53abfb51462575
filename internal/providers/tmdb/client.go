package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"mediatrack/internal/config"
	"mediatrack/internal/services"
)

// Searcher defines the TMDB operations used by the resolver.
type Searcher interface {
	SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	SearchMulti(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	Configuration(ctx context.Context) (*Configuration, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "new", "api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "new", "base url required", nil)
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig creates a client from the [tmdb] section of cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.RequireTMDB(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", "new", "", err)
	}
	opts = append([]Option{WithTimeout(cfg.TMDBTimeout())}, opts...)
	return New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, opts...)
}

// SearchOptions contains optional search filters.
type SearchOptions struct {
	Year int `json:"year,omitempty"`
	// Page is 1-based; zero requests the first page.
	Page int `json:"page,omitempty"`
}

// SearchMovie performs a TMDB movie search.
func (c *Client) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	return c.search(ctx, "movie", "primary_release_year", query, opts)
}

// SearchTV performs a TMDB TV search.
func (c *Client) SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	return c.search(ctx, "tv", "first_air_date_year", query, opts)
}

// SearchMulti searches movies, shows, and people at once.
func (c *Client) SearchMulti(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	return c.search(ctx, "multi", "year", query, opts)
}

func (c *Client) search(ctx context.Context, kind, yearParam, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "search_"+kind, "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set(yearParam, strconv.Itoa(opts.Year))
	}
	if opts.Page > 1 {
		params.Set("page", strconv.Itoa(opts.Page))
	}

	var payload Response
	if err := c.get(ctx, "/search/"+kind, params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Configuration fetches the image and change-key settings.
func (c *Client) Configuration(ctx context.Context) (*Configuration, error) {
	var payload Configuration
	if err := c.get(ctx, "/configuration", url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrTransient, "tmdb", path,
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "tmdb", path, "decode response", err)
	}
	return nil
}

var errStatus = errors.New("unexpected tmdb status")

func statusError(path string, status int, latency time.Duration) error {
	marker := services.ErrTransient
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		marker = services.ErrConfiguration
	case status == http.StatusNotFound:
		marker = services.ErrNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		marker = services.ErrTransient
	case status >= 400:
		marker = services.ErrValidation
	}
	return services.Wrap(marker, "tmdb", path,
		fmt.Sprintf("returned %d (latency=%v)", status, latency), errStatus)
}
