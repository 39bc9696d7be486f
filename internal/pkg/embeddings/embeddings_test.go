package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingResponse(vec []float64) string {
	payload, _ := json.Marshal(map[string]any{
		"data": []map[string]any{{"embedding": vec}},
	})
	return string(payload)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, "hello world", req.Input)

		fmt.Fprint(w, embeddingResponse([]float64{0.1, 0.2, 0.3}))
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "test-key"}, nil)
	require.NoError(t, err)

	vec, err := client.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, client.Dimension())
}

func TestEmbedRetriesTransientFailure(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, embeddingResponse([]float64{1, 0}))
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "k"}, nil)
	require.NoError(t, err)
	client.retry.BaseDelay = time.Millisecond

	vec, err := client.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, vec)
	assert.EqualValues(t, 2, requests.Load())
}

func TestEmbedWrapsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "k"}, nil)
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "text")
	var eerr *apperrors.EmbeddingError
	require.ErrorAs(t, err, &eerr)
}

func TestEmbedRejectsDimensionChange(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			fmt.Fprint(w, embeddingResponse([]float64{1, 0, 0}))
			return
		}
		fmt.Fprint(w, embeddingResponse([]float64{1, 0}))
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "k"}, nil)
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "first")
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "second")
	var eerr *apperrors.EmbeddingError
	require.ErrorAs(t, err, &eerr)
	assert.Contains(t, err.Error(), "dimension changed")
}
