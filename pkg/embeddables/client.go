// Package embeddables is a client for the Embeddables entries API.
package embeddables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/caching"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.embeddables.com"

	// MaxBatchSize is the largest page the API returns per call.
	MaxBatchSize = 1000

	// DefaultRequestDelay is the pause between consecutive calls.
	DefaultRequestDelay = 250 * time.Millisecond

	defaultTimeout = 60 * time.Second
)

var (
	// ErrMissingCredentials means the API key or project id was not configured.
	ErrMissingCredentials = errors.New("API key and project ID are required")
	// ErrUnauthorized is returned for HTTP 401.
	ErrUnauthorized = errors.New("invalid API key or unauthorized access")
	// ErrProjectNotFound is returned for HTTP 404.
	ErrProjectNotFound = errors.New("project not found")
	// ErrMalformedResponse means the body was not a JSON array of entries.
	ErrMalformedResponse = errors.New("malformed entries response")
)

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("failed to fetch entries, status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch entries, status code: %d: %s", e.StatusCode, e.Body)
}

// Config configures a Client.
type Config struct {
	APIKey       string
	ProjectID    string
	BaseURL      string
	HTTPClient   *http.Client
	RequestDelay time.Duration // zero uses DefaultRequestDelay, negative disables
	Cache        *caching.Cache
	Logger       *slog.Logger
}

// Client fetches entry batches for one project.
type Client struct {
	apiKey    string
	projectID string
	baseURL   string
	client    *http.Client
	delay     time.Duration
	cache     *caching.Cache
	logger    *slog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.ProjectID == "" {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		apiKey:    cfg.APIKey,
		projectID: cfg.ProjectID,
		baseURL:   cfg.BaseURL,
		client:    cfg.HTTPClient,
		delay:     cfg.RequestDelay,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: defaultTimeout}
	}
	if c.delay == 0 {
		c.delay = DefaultRequestDelay
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}

// BatchParams are the query parameters of one entries call.
type BatchParams struct {
	Limit         int
	UpdatedAfter  string
	UpdatedBefore string
}

func (c *Client) entriesURL(p BatchParams) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("sort", "created_at")
	q.Set("direction", "DESC")
	if p.UpdatedAfter != "" {
		q.Set("updated_after", p.UpdatedAfter)
	}
	if p.UpdatedBefore != "" {
		q.Set("updated_before", p.UpdatedBefore)
	}
	return fmt.Sprintf("%s/projects/%s/entries?%s", c.baseURL, url.PathEscape(c.projectID), q.Encode())
}

// FetchBatch performs a single entries call, newest first. It does not
// filter by embeddable; see FetchAll.
func (c *Client) FetchBatch(ctx context.Context, p BatchParams) ([]models.RawEntry, error) {
	requestURL := c.entriesURL(p)

	if c.cache != nil {
		if body, ok := c.cache.Get(requestURL); ok {
			entries, err := decodeEntries(body)
			if err == nil {
				c.logger.Debug("Batch served from cache", "url", requestURL, "entries", len(entries))
				return entries, nil
			}
			c.logger.Warn("Ignoring unreadable cached batch", "url", requestURL, "error", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("Fetching entries batch", "limit", p.Limit, "updated_after", p.UpdatedAfter, "updated_before", p.UpdatedBefore)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrProjectNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	entries, err := decodeEntries(body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(requestURL, body); err != nil {
			c.logger.Warn("Failed to cache batch", "url", requestURL, "error", err)
		}
	}
	return entries, nil
}

func decodeEntries(body []byte) ([]models.RawEntry, error) {
	var entries []models.RawEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return entries, nil
}

// wait sleeps for the courtesy delay unless ctx ends first.
func (c *Client) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
