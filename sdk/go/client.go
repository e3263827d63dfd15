// Package readtrack is a Go client for the ReadTrack books API.
package readtrack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the ReadTrack client.
type Config struct {
	// BaseURL is the root URL of the ReadTrack server.
	// Examples: "https://books.example.com" or "https://books.example.com/api/v1"
	// The "/api/v1" suffix is appended automatically if missing.
	BaseURL string

	// Token is an optional bearer access token sent with every request.
	Token string

	// HTTPClient is an optional custom HTTP client.
	// If nil, a default client with 10s timeout is used.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if !strings.HasSuffix(c.BaseURL, "/api/v1") {
		c.BaseURL = c.BaseURL + "/api/v1"
	}
}

// Client is the ReadTrack SDK client.
type Client struct {
	cfg Config
}

// NewClient creates a new ReadTrack client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// CreateBook creates a book and links its authors, reusing authors that
// already exist under the same name.
func (c *Client) CreateBook(ctx context.Context, req CreateBookRequest) error {
	return c.do(ctx, http.MethodPost, "/books", req, nil)
}

// GetBook retrieves an active book with its authors.
func (c *Client) GetBook(ctx context.Context, id int64) (*Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodGet, "/books/"+strconv.FormatInt(id, 10), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// ListBooks retrieves one page of active books. Zero page or limit use the server defaults.
func (c *Client) ListBooks(ctx context.Context, page, limit int) (*BookList, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/books"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list BookList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteBook soft-deletes a book.
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/books/"+strconv.FormatInt(id, 10), nil, nil)
}

// PurgeBook permanently deletes a book. Requires an admin token when the
// server has authentication enabled.
func (c *Client) PurgeBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/admin/books/"+strconv.FormatInt(id, 10), nil, nil)
}

// do sends a request and decodes the data of the success envelope into out.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("readtrack: failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("readtrack: failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("readtrack: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("readtrack: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}

	var env successEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("readtrack: failed to parse response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("readtrack: failed to parse response data: %w", err)
	}
	return nil
}

// successEnvelope matches the ReadTrack success envelope.
type successEnvelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp"`
}
