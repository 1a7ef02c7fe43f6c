package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yemaney/filevector/internal/config"
)

// ErrInvalidResponse marks a provider reply with no usable embedding. Callers
// treat this as non-retryable: resending the same input yields the same reply.
var ErrInvalidResponse = errors.New("invalid embeddings response")

// Client calls an OpenAI-pattern embeddings endpoint: POST {model, input},
// bearer-token authenticated, vector returned at data[0].embedding.
type Client struct {
	url        string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
}

func NewClient(cfg config.EmbeddingsConfig) *Client {
	return &Client{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			// Bound the wait so a stalled provider doesn't pin a worker slot.
			Timeout: 30 * time.Second,
		},
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage map[string]any `json:"usage"`
}

// Generate returns the embedding vector for the given text.
func (c *Client) Generate(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embeddings request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings provider returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}

	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: missing embedding payload", ErrInvalidResponse)
	}

	vector := parsed.Data[0].Embedding
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrInvalidResponse, len(vector), c.dimension)
	}

	return vector, nil
}

// Dimension is the fixed output length of the configured model.
func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) Model() string {
	return c.model
}
