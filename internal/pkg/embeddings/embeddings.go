// Package embeddings is an OpenAI-compatible embeddings client. Vectors are
// cached in Redis keyed by a hash of model+text, so re-ranking the same
// candidate pool does not re-bill every pair.
package embeddings

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/distill-app/core/internal/pkg/apperrors"
	redisc "github.com/distill-app/core/internal/pkg/redis"
	"github.com/distill-app/core/internal/pkg/retry"
)

const cacheKeyPrefix = "distill:embed:"

// Config configures the embeddings client.
type Config struct {
	Endpoint string // base URL, defaults to https://api.openai.com/v1
	APIKey   string
	Model    string // defaults to text-embedding-3-small
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client calls the embeddings endpoint of an OpenAI-compatible service.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	cache    *redisc.Client
	cacheTTL time.Duration
	retry    retry.Config

	mu        sync.Mutex
	dimension int
}

// NewClient builds a client. cache may be nil, which disables caching.
func NewClient(cfg Config, cache *redisc.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("embeddings api key is empty")
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
		retry:    retry.DefaultConfig(),
	}, nil
}

// Dimension returns the vector dimensionality observed so far (0 until the
// first successful call).
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embed returns the embedding vector for text. Failures are reported as
// *apperrors.EmbeddingError.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cachedVector(ctx, text); ok {
		return v, nil
	}

	var vector []float64
	err := retry.WithBackoff(ctx, c.retry, func(ctx context.Context) error {
		v, err := c.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, &apperrors.EmbeddingError{Err: err}
	}

	if err := c.checkDimension(len(vector)); err != nil {
		return nil, &apperrors.EmbeddingError{Err: err}
	}
	c.storeVector(ctx, text, vector)
	return vector, nil
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float64, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"model": c.model,
		"input": text,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("embeddings request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return result.Data[0].Embedding, nil
}

// checkDimension enforces consistent dimensionality across a deployment.
func (c *Client) checkDimension(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimension == 0 {
		c.dimension = n
		return nil
	}
	if c.dimension != n {
		return fmt.Errorf("embedding dimension changed: got %d, expected %d", n, c.dimension)
	}
	return nil
}

func (c *Client) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.model + ":" + text))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, h)
}

func (c *Client) cachedVector(ctx context.Context, text string) ([]float64, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, c.cacheKey(text))
	if err != nil || raw == "" {
		return nil, false
	}
	var v []float64
	if err := json.Unmarshal([]byte(raw), &v); err != nil || len(v) == 0 {
		return nil, false
	}
	return v, true
}

func (c *Client) storeVector(ctx context.Context, text string, v []float64) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	// Best effort: a cold cache only costs an extra upstream call.
	_ = c.cache.Set(ctx, c.cacheKey(text), data, c.cacheTTL)
}
