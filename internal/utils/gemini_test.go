package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, handler func(w http.ResponseWriter, req geminiBatchRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:batchEmbedContents", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req geminiBatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
}

func TestGeminiEmbedKeepsOrder(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, req geminiBatchRequest) {
		out := geminiBatchResponse{}
		for i, r := range req.Requests {
			assert.Equal(t, "models/test-model", r.Model)
			out.Embeddings = append(out.Embeddings, struct {
				Values []float32 `json:"values"`
			}{Values: []float32{float32(i), float32(len(r.Content.Parts[0].Text))}})
		}
		json.NewEncoder(w).Encode(out)
	})
	defer srv.Close()

	g := NewGeminiClientWithBaseURL(srv.URL, "secret", "models/test-model")
	vecs, err := g.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 2}, {2, 3}}, vecs)
}

func TestGeminiEmbedAPIError(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, req geminiBatchRequest) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"bad input","status":"INVALID_ARGUMENT"}}`))
	})
	defer srv.Close()

	g := NewGeminiClientWithBaseURL(srv.URL, "secret", "test-model")
	_, err := g.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad input")
}

func TestGeminiEmbedRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := geminiServer(t, func(w http.ResponseWriter, req geminiBatchRequest) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		w.Write([]byte(`{"embeddings":[{"values":[0.5]}]}`))
	})
	defer srv.Close()

	g := NewGeminiClientWithBaseURL(srv.URL, "secret", "test-model")
	g.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	vecs, err := g.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5}}, vecs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeminiEmbedCountMismatch(t *testing.T) {
	srv := geminiServer(t, func(w http.ResponseWriter, req geminiBatchRequest) {
		w.Write([]byte(`{"embeddings":[{"values":[0.5]}]}`))
	})
	defer srv.Close()

	g := NewGeminiClientWithBaseURL(srv.URL, "secret", "test-model")
	_, err := g.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestGeminiEmbedRequiresKey(t *testing.T) {
	g := NewGeminiClient("", "test-model")
	_, err := g.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
}
