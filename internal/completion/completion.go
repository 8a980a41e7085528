// Package completion is the schema-constrained completion contract every
// chain in the service is built on: a system instruction, user content and a
// response schema go in, a validated JSON document comes out.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Request is one schema-constrained call.
type Request struct {
	// Name labels the call site in logs, metrics and fakes, e.g. "pipeline.phase1".
	Name   string
	System string
	User   string
	Schema *Schema
}

// Model is a hosted text-generation backend. It returns the raw response
// text and leaves parsing to the Client.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (string, error)

func (f ModelFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Completer is what chain components depend on.
type Completer interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// Client turns a Model into a Completer by extracting, parsing and
// validating the model output against the request schema.
type Client struct {
	model  Model
	logger *zap.Logger
}

func New(model Model, logger *zap.Logger) *Client {
	return &Client{model: model, logger: logger}
}

// Complete runs req and returns a JSON document that matches req.Schema.
func (c *Client) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	if strings.TrimSpace(req.System) == "" || strings.TrimSpace(req.User) == "" {
		return nil, ErrEmptyInput
	}
	if req.Schema == nil {
		return nil, fmt.Errorf("completion %s: nil schema", req.Name)
	}
	compiled, err := compile(req.Name, req.Schema)
	if err != nil {
		return nil, err
	}

	text, err := c.model.Generate(ctx, req)
	if err != nil {
		return nil, asTransport(ctx, req.Name, err)
	}

	raw, err := extractJSON(text)
	if err != nil {
		c.logger.Debug("unparseable completion", zap.String("call", req.Name), zap.String("raw", text))
		return nil, &ParseError{Call: req.Name, Raw: text, Err: err}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.Debug("unparseable completion", zap.String("call", req.Name), zap.String("raw", text))
		return nil, &ParseError{Call: req.Name, Raw: text, Err: err}
	}

	if violations, err := validate(compiled, doc); err != nil {
		return nil, &ParseError{Call: req.Name, Raw: text, Err: err}
	} else if len(violations) > 0 {
		c.logger.Debug("completion violates schema",
			zap.String("call", req.Name),
			zap.Strings("violations", violations),
			zap.String("raw", text),
		)
		return nil, &ParseError{Call: req.Name, Raw: text, Violations: violations}
	}

	return raw, nil
}

// Decode completes req and unmarshals the result into T.
func Decode[T any](ctx context.Context, c Completer, req Request) (T, error) {
	var out T
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ParseError{Call: req.Name, Raw: string(raw), Err: err}
	}
	return out, nil
}

var errNoJSON = errors.New("no JSON document in response")

// extractJSON pulls the JSON document out of a model response. Models that
// honour a response MIME type return bare JSON; others wrap it in markdown
// fences or a sentence of prose.
func extractJSON(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, errNoJSON
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) {
		return []byte(s), nil
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, errNoJSON
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return nil, errNoJSON
	}
	return []byte(s[start : end+1]), nil
}
