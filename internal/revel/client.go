// Package revel is a minimal client for the Revel Systems POS REST API,
// covering the table list used by the table picker.
package revel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-qr-relay/internal/models"
)

const (
	tablesEndpoint = "/resources/Table/"
	authHeader     = "API-AUTHENTICATION"
	maxPages       = 50
)

var ErrMissingCredentials = errors.New("revel API key and secret are required")

// Client lists tables from one Revel establishment.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
}

// Option is a function that configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a client for baseURL, e.g. "https://venue.revelup.com".
func New(baseURL, apiKey, apiSecret string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiSecret:  apiSecret,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type tablePage struct {
	Meta struct {
		Next       *string `json:"next"`
		TotalCount int     `json:"total_count"`
	} `json:"meta"`
	Objects []models.Table `json:"objects"`
}

// ListTables returns every table, following the API's "next" page links.
func (c *Client) ListTables(ctx context.Context) ([]models.Table, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, ErrMissingCredentials
	}

	tables := []models.Table{}
	next := c.baseURL + tablesEndpoint
	for page := 0; next != ""; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("table list exceeds %d pages", maxPages)
		}

		var p tablePage
		if err := c.get(ctx, next, &p); err != nil {
			return nil, err
		}
		tables = append(tables, p.Objects...)

		next = ""
		if p.Meta.Next != nil && *p.Meta.Next != "" {
			resolved, err := c.resolve(*p.Meta.Next)
			if err != nil {
				return nil, err
			}
			next = resolved
		}
	}

	return tables, nil
}

// resolve turns a relative "next" link into an absolute URL on the base host.
func (c *Client) resolve(ref string) (string, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing next link %q: %w", ref, err)
	}
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(authHeader, c.apiKey+":"+c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("API request failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
