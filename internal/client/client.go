// Package client talks to a running kirinuki server. The command line uses it so
// that it does not open the data directory while the server holds it.
package client

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

	"github.com/hyperjump/kirinuki/internal/corpus"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/internal/service"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the kirinuki API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL. A nil httpClient uses a client
// with a 5 minute timeout, long enough for builds over large corpora.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Reachable reports whether the server answers its health check.
func (c *Client) Reachable(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}

// Health returns the server health summary.
func (c *Client) Health(ctx context.Context) (service.Health, error) {
	var h service.Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

// Build builds or replaces an index.
func (c *Client) Build(ctx context.Context, req models.BuildRequest) (models.Status, error) {
	var st models.Status
	err := c.do(ctx, http.MethodPost, "/api/v1/indexes", req, &st)
	return st, err
}

// Query runs req against the named index.
func (c *Client) Query(ctx context.Context, name string, req models.QueryRequest) ([]models.QueryResult, error) {
	var resp struct {
		Results []models.QueryResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/indexes/"+url.PathEscape(name)+"/query", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Indexes returns the status of every index.
func (c *Client) Indexes(ctx context.Context) ([]models.Status, error) {
	var statuses []models.Status
	err := c.do(ctx, http.MethodGet, "/api/v1/indexes", nil, &statuses)
	return statuses, err
}

// Index returns the status of one index.
func (c *Client) Index(ctx context.Context, name string) (models.Status, error) {
	var st models.Status
	err := c.do(ctx, http.MethodGet, "/api/v1/indexes/"+url.PathEscape(name), nil, &st)
	return st, err
}

// Reset drops one index.
func (c *Client) Reset(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/indexes/"+url.PathEscape(name), nil, nil)
}

// ResetAll drops every index.
func (c *Client) ResetAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/indexes", nil, nil)
}

// Documents lists documents, or searches them when query is not blank.
func (c *Client) Documents(ctx context.Context, query string, limit int) (*corpus.SearchResult, error) {
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/documents"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var result corpus.SearchResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Document returns one document.
func (c *Client) Document(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Ingest registers a document.
func (c *Client) Ingest(ctx context.Context, in models.DocumentInput) (*models.Document, error) {
	var doc models.Document
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", in, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// IngestFolder registers every file below dir on the server side.
func (c *Client) IngestFolder(ctx context.Context, dir string) ([]string, error) {
	var resp struct {
		IDs []string `json:"ids"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents/folder", map[string]string{"path": dir}, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
