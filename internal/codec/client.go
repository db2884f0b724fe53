// Package codec wraps the external LLM service behind the two capabilities
// the pipeline consumes: SQL generation and secondary relevance
// classification. The service speaks the OpenAI-compatible chat completion
// protocol; any HTTP or decoding failure is a transport error to the caller.
package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adushin/queryguard/internal/sqlgen"
)

// #region wire-types

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// #endregion wire-types

// #region client

// Client is a thin HTTP client for the chat completion endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a chat completion client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete sends the conversation and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, model string, conversation []sqlgen.Message, temperature float64, maxTokens int) (string, error) {
	msgs := make([]chatMessage, len(conversation))
	for i, m := range conversation {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// #endregion client

// #region generator

// Generator binds a Client to a model for the guarded generation loop.
type Generator struct {
	client      *Client
	model       string
	temperature float64
	maxTokens   int
}

// NewGenerator creates the sqlgen generation capability. Low temperature
// keeps SQL drafts close to deterministic.
func NewGenerator(client *Client, model string, temperature float64) *Generator {
	return &Generator{client: client, model: model, temperature: temperature, maxTokens: 1000}
}

// Generate implements sqlgen.Generator.
func (g *Generator) Generate(ctx context.Context, conversation []sqlgen.Message) (string, error) {
	return g.client.Complete(ctx, g.model, conversation, g.temperature, g.maxTokens)
}

// #endregion generator

// #region relevance-classifier

// relevanceSystemPrompt instructs the validation model to answer with a
// single JSON object; llmjudge tolerates any deviation.
const relevanceSystemPrompt = `You classify whether a user request is about the vacancy and salary analytics domain (job postings, salaries, skills, locations, hiring).
Answer with a single JSON object and nothing else:
{"is_relevant": true|false, "category": "<short category>", "reason": "<one sentence>"}`

// RelevanceClassifier binds a Client to the secondary validation model.
type RelevanceClassifier struct {
	client    *Client
	model     string
	maxTokens int
}

// NewRelevanceClassifier creates the llmjudge classify capability.
func NewRelevanceClassifier(client *Client, model string) *RelevanceClassifier {
	return &RelevanceClassifier{client: client, model: model, maxTokens: 200}
}

// Classify implements llmjudge.Classifier. Temperature is pinned to zero so
// the verdict is as deterministic as the model allows.
func (r *RelevanceClassifier) Classify(ctx context.Context, text string) (string, error) {
	conversation := []sqlgen.Message{
		{Role: sqlgen.RoleSystem, Content: relevanceSystemPrompt},
		{Role: sqlgen.RoleUser, Content: text},
	}
	return r.client.Complete(ctx, r.model, conversation, 0, r.maxTokens)
}

// #endregion relevance-classifier
