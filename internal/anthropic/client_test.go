package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
)

var testReq = completion.Request{
	Name:   "test.call",
	System: "you are a test",
	User:   "hello",
	Schema: completion.Object(map[string]*completion.Schema{"answer": completion.String()}, "answer"),
}

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("expected /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key test-key, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("expected anthropic-version 2023-06-01, got %q", r.Header.Get("anthropic-version"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}
		if !strings.HasPrefix(req.System, "you are a test") {
			t.Errorf("expected system prompt first, got %q", req.System)
		}
		if !strings.Contains(req.System, `"answer"`) {
			t.Errorf("expected schema in system prompt, got %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.MaxTokens != DefaultMaxTokens {
			t.Errorf("expected max_tokens %d, got %d", DefaultMaxTokens, req.MaxTokens)
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"answer\":\"world\"}"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model", zap.NewNop())
	c.SetTestTransport(server.URL)

	result, err := c.Generate(context.Background(), testReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != `{"answer":"world"}` {
		t.Errorf("unexpected result %q", result)
	}
}

func TestGenerate_APIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		temporary bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"overloaded", 529, true},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"type": "some_error", "message": "nope"},
				})
			}))
			defer server.Close()

			c := NewClient("test-key", "test-model", zap.NewNop())
			c.SetTestTransport(server.URL)

			_, err := c.Generate(context.Background(), testReq)
			var te *completion.TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if te.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, te.StatusCode)
			}
			if te.Temporary != tt.temporary {
				t.Errorf("expected temporary=%v", tt.temporary)
			}
			if !strings.Contains(te.Error(), "nope") {
				t.Errorf("expected API message in error, got %q", te.Error())
			}
		})
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model", zap.NewNop())
	c.SetTestTransport(server.URL)

	_, err := c.Generate(context.Background(), testReq)
	var pe *completion.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestGenerate_ThroughCompletionClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"content\":[{\"type\":\"text\",\"text\":\"```json\\n{\\\"answer\\\":\\\"ok\\\"}\\n```\"}]}"))
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model", zap.NewNop())
	c.SetTestTransport(server.URL)

	raw, err := completion.New(c, zap.NewNop()).Complete(context.Background(), testReq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"answer":"ok"}` {
		t.Errorf("unexpected document %s", raw)
	}
}
