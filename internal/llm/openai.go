package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EmbeddingError reports a non-success response from the embedding service.
// Distinguishable from transport errors so the ingestion layer can decide to
// retry while the retriever swallows it to empty results.
type EmbeddingError struct {
	StatusCode int
	Message    string
}

func (e *EmbeddingError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("embedding service error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("embedding service error: status %d", e.StatusCode)
}

// OpenAIClient talks to an OpenAI-compatible chat-completion and embedding
// API. Constructed once at process start and passed into each component.
type OpenAIClient struct {
	Endpoint          string
	EmbeddingEndpoint string
	APIKey            string
	Model             string
	EmbeddingModel    string
	Temperature       float64
	MaxTokens         int
	HTTPClient        *http.Client
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIClient returns a client with the generation parameters the bot
// uses everywhere: temperature 0.7, at most 2000 output tokens.
func NewOpenAIClient(endpoint, embeddingEndpoint, apiKey, model, embeddingModel string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	return &OpenAIClient{
		Endpoint:          endpoint,
		EmbeddingEndpoint: embeddingEndpoint,
		APIKey:            apiKey,
		Model:             model,
		EmbeddingModel:    embeddingModel,
		Temperature:       0.7,
		MaxTokens:         2000,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetEmbedding embeds input with a single service call. The request is bound
// to ctx so a caller-side deadline cancels the call in flight.
func (c *OpenAIClient) GetEmbedding(ctx context.Context, input string) ([]float32, error) {
	data, err := json.Marshal(openAIEmbeddingRequest{
		Model: c.EmbeddingModel,
		Input: input,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.EmbeddingEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var embeddingResponse openAIEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResponse); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &EmbeddingError{StatusCode: resp.StatusCode}
		}
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if embeddingResponse.Error != nil {
			msg = embeddingResponse.Error.Message
		}
		return nil, &EmbeddingError{StatusCode: resp.StatusCode, Message: msg}
	}

	if len(embeddingResponse.Data) == 0 {
		return nil, &EmbeddingError{StatusCode: resp.StatusCode, Message: "no embedding in response"}
	}

	return embeddingResponse.Data[0].Embedding, nil
}

// ChatCompletion sends the assembled message sequence to the generation
// backend and returns the answer text.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	data, err := json.Marshal(openAIChatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResponse openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResponse); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("generation backend returned status %d", resp.StatusCode)
		}
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		if chatResponse.Error != nil {
			return "", fmt.Errorf("generation backend returned status %d: %s", resp.StatusCode, chatResponse.Error.Message)
		}
		return "", fmt.Errorf("generation backend returned status %d", resp.StatusCode)
	}

	if len(chatResponse.Choices) == 0 {
		return "", fmt.Errorf("no choices in generation backend response")
	}

	return chatResponse.Choices[0].Message.Content, nil
}
