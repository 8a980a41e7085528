// Package gemini is a completion.Model backed by the Gemini API through the
// genai SDK. Requests carry the schema as a native response schema with a
// JSON response MIME type.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
)

const DefaultModel = "gemini-2.5-flash"

type Client struct {
	cli    *genai.Client
	model  string
	logger *zap.Logger
}

type Option func(*genai.ClientConfig)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *genai.ClientConfig) { c.HTTPOptions.BaseURL = url }
}

func NewClient(ctx context.Context, apiKey, model string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	for _, opt := range opts {
		opt(cfg)
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{cli: cli, model: model, logger: logger}, nil
}

func (c *Client) Name() string { return "gemini:" + c.model }

// Generate implements completion.Model.
func (c *Client) Generate(ctx context.Context, req completion.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if req.Schema != nil {
		cfg.ResponseSchema = toGenaiSchema(req.Schema)
	}

	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return "", transportError(ctx, req.Name, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &completion.ParseError{Call: req.Name, Err: errors.New("empty candidate list")}
	}

	c.logger.Debug("gemini completion",
		zap.String("call", req.Name),
		zap.String("model", c.model),
		zap.String("finish_reason", string(resp.Candidates[0].FinishReason)),
	)
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func transportError(ctx context.Context, call string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		return &completion.TransportError{Call: call, StatusCode: apiErr.Code, Temporary: completion.StatusTemporary(apiErr.Code), Err: err}
	case errors.As(err, &apiErrPtr):
		return &completion.TransportError{Call: call, StatusCode: apiErrPtr.Code, Temporary: completion.StatusTemporary(apiErrPtr.Code), Err: err}
	}
	return &completion.TransportError{Call: call, Temporary: true, Err: err}
}

// toGenaiSchema translates the completion schema into the OpenAPI subset the
// Gemini API accepts.
func toGenaiSchema(s *completion.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		out.Enum = append([]string(nil), s.Enum...)
		out.Format = "enum"
	}
	switch s.Type {
	case completion.TypeObject:
		names := s.PropertyNames()
		out.Properties = make(map[string]*genai.Schema, len(names))
		for _, name := range names {
			out.Properties[name] = toGenaiSchema(s.Properties[name])
		}
		out.PropertyOrdering = names
		out.Required = append([]string(nil), s.Required...)
	case completion.TypeArray:
		if s.Items != nil {
			out.Items = toGenaiSchema(s.Items)
		}
	}
	return out
}

func genaiType(t completion.Type) genai.Type {
	switch t {
	case completion.TypeObject:
		return genai.TypeObject
	case completion.TypeArray:
		return genai.TypeArray
	case completion.TypeNumber:
		return genai.TypeNumber
	case completion.TypeInteger:
		return genai.TypeInteger
	case completion.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
