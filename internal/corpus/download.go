package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/hyperjump/kirinuki/internal/extract"
	"github.com/hyperjump/kirinuki/internal/models"
)

// DownloadURL fetches rawURL into DocsDir and registers it as a URL document whose
// local copy is the downloaded file. A blank id is generated from the last path
// segment of the URL. Network errors, 429 and 5xx responses are retried with
// Fibonacci backoff; other 4xx responses fail at once.
func (c *Corpus) DownloadURL(ctx context.Context, rawURL, id string) (*models.Document, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidDocument)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: unsupported url %q", ErrInvalidDocument, rawURL)
	}

	seed := path.Base(strings.Trim(u.Path, "/"))
	if seed == "." || seed == "" {
		seed = u.Hostname()
	}
	if seed == "" {
		seed = "download"
	}
	ext := path.Ext(u.Path)
	if ext == "" {
		ext = ".html"
	}

	data, err := c.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id, err = c.resolveID(ctx, id, seed)
	if err != nil {
		return nil, err
	}
	local := filepath.Join(c.docsDir, id+ext)
	if err := os.WriteFile(local, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", local, err)
	}
	return c.RegisterURL(ctx, id, rawURL, local, extract.KindForExtension(ext), nil, DescriptionDownloaded)
}

func (c *Corpus) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var data []byte
	attempt := 0
	backoff := retry.WithMaxRetries(c.retries, retry.NewFibonacci(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Warn("download failed", zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			c.logger.Warn("download failed", zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
			return retry.RetryableError(fmt.Errorf("GET %s: %s", rawURL, resp.Status))
		case resp.StatusCode >= 400:
			return fmt.Errorf("GET %s: %s", rawURL, resp.Status)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read %s: %w", rawURL, err))
		}
		if int64(len(body)) > c.maxBytes {
			return fmt.Errorf("GET %s: body exceeds %d bytes", rawURL, c.maxBytes)
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentUnavailable, err)
	}
	c.logger.Debug("downloaded", zap.String("url", rawURL), zap.Int("bytes", len(data)), zap.Int("attempts", attempt))
	return data, nil
}
