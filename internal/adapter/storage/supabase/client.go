// Package supabase provides a minimal Supabase Storage HTTP client used as
// the clip object store.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

// Client implements domain.ObjectStore against one storage bucket.
type Client struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

// New constructs a storage client for bucket using a service role key.
func New(baseURL, apiKey, bucket string) *Client {
	return NewWithClient(baseURL, apiKey, bucket, &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewWithClient lets tests inject an HTTP client.
func NewWithClient(baseURL, apiKey, bucket string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		bucket:     bucket,
		httpClient: hc,
		newBackOff: func() backoff.BackOff {
			expo := backoff.NewExponentialBackOff()
			expo.InitialInterval = 200 * time.Millisecond
			expo.MaxElapsedTime = 10 * time.Second
			return backoff.WithMaxRetries(expo, 3)
		},
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("apikey", c.apiKey)
}

// escapeKey escapes each path segment of key.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type storageError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func isDuplicate(status int, body []byte) bool {
	if status == http.StatusConflict {
		return true
	}
	var se storageError
	if json.Unmarshal(body, &se) == nil {
		return se.StatusCode == "409" || strings.EqualFold(se.Error, "Duplicate")
	}
	return false
}

// retryable reports whether status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Put uploads data under key without overwriting an existing object.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, escapeKey(key))
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Cache-Control", "max-age=3600")
		req.Header.Set("x-upsert", "false")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if isDuplicate(resp.StatusCode, body) {
			// a previous attempt may have landed before its response was lost
			if attempt > 1 {
				return nil
			}
			return backoff.Permanent(fmt.Errorf("%w: object %s already exists", domain.ErrConflict, key))
		}
		err = fmt.Errorf("storage upload status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if retryable(resp.StatusCode) {
			return err
		}
		return backoff.Permanent(err)
	}
	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return fmt.Errorf("op=storage.put: %w", err)
	}
	return nil
}

// PublicURL returns the public download URL for key.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, escapeKey(key))
}

// Remove deletes the object at key. Removing a missing object succeeds.
func (c *Client) Remove(ctx context.Context, key string) error {
	b, _ := json.Marshal(map[string]any{"prefixes": []string{key}})
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/storage/v1/object/%s", c.baseURL, c.bucket), bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 || resp.StatusCode == http.StatusNotFound {
			return nil
		}
		err = fmt.Errorf("storage remove status %d", resp.StatusCode)
		if retryable(resp.StatusCode) {
			return err
		}
		return backoff.Permanent(err)
	}
	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return fmt.Errorf("op=storage.remove: %w", err)
	}
	return nil
}

// Ready checks that the bucket exists and the key is accepted.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/storage/v1/bucket/%s", c.baseURL, c.bucket), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storage bucket %s status %d", c.bucket, resp.StatusCode)
	}
	return nil
}
