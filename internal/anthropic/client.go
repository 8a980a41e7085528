// Package anthropic is a completion.Model backed by the Anthropic Messages
// API. The response schema travels in the system prompt since the API has
// no response MIME type.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	DefaultMaxTokens = 4096
)

type Client struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
	logger    *zap.Logger
}

func NewClient(apiKey, model string, logger *zap.Logger) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   defaultBaseURL,
		maxTokens: DefaultMaxTokens,
		client:    &http.Client{Timeout: 120 * time.Second},
		logger:    logger,
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.baseURL = url
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements completion.Model.
func (c *Client) Generate(ctx context.Context, req completion.Request) (string, error) {
	system, err := systemWithSchema(req.System, req.Schema)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &completion.TransportError{Call: req.Name, Temporary: ctx.Err() == nil, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &completion.TransportError{Call: req.Name, Temporary: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		msg := string(respBody)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Type + ": " + errResp.Error.Message
		}
		return "", &completion.TransportError{
			Call:       req.Name,
			StatusCode: resp.StatusCode,
			Temporary:  completion.StatusTemporary(resp.StatusCode),
			Err:        errors.New(msg),
		}
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &completion.ParseError{Call: req.Name, Raw: string(respBody), Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if len(apiResp.Content) == 0 {
		return "", &completion.ParseError{Call: req.Name, Raw: string(respBody), Err: errors.New("empty response content")}
	}

	c.logger.Debug("anthropic completion",
		zap.String("call", req.Name),
		zap.String("stop_reason", apiResp.StopReason),
		zap.Int("input_tokens", apiResp.Usage.InputTokens),
		zap.Int("output_tokens", apiResp.Usage.OutputTokens),
	)
	return apiResp.Content[0].Text, nil
}

func systemWithSchema(system string, schema *completion.Schema) (string, error) {
	if schema == nil {
		return system, nil
	}
	b, err := json.MarshalIndent(schema.JSONSchema(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	return system + "\n\nResponde únicamente con un objeto JSON que cumpla este JSON Schema:\n" + string(b), nil
}
