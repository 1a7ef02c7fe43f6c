package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yemaney/filevector/internal/config"
)

func testConfig(url string) config.EmbeddingsConfig {
	return config.EmbeddingsConfig{
		URL:       url,
		APIKey:    "test-key",
		Model:     "test-model",
		Dimension: 3,
	}
}

func TestGenerate_Success(t *testing.T) {
	var gotAuth string
	var gotBody embeddingRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
			"usage": map[string]int{"total_tokens": 5},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	vector, err := c.Generate(context.Background(), "hello world")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotBody.Model)
	assert.Equal(t, "hello world", gotBody.Input)
}

func TestGenerate_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidResponse, "transport-level failures should stay retryable")
	assert.Contains(t, err.Error(), "429")
}

func TestGenerate_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Generate(context.Background(), "hello")

	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerate_WrongDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2}}},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Generate(context.Background(), "hello")

	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGenerate_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Generate(context.Background(), "hello")

	require.Error(t, err)
}
