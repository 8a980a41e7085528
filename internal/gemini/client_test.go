package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
)

var testSchema = completion.Object(map[string]*completion.Schema{
	"riesgo": completion.Enum("Bajo", "Medio", "Alto"),
	"pasos":  completion.Array(completion.String()),
	"score":  completion.Number().Describe("0-1"),
	"n":      completion.Integer(),
	"ok":     completion.Boolean(),
}, "riesgo", "score")

func TestToGenaiSchema(t *testing.T) {
	got := toGenaiSchema(testSchema)

	assert.Equal(t, genai.TypeObject, got.Type)
	assert.Equal(t, []string{"riesgo", "score"}, got.Required)
	assert.Equal(t, []string{"n", "ok", "pasos", "riesgo", "score"}, got.PropertyOrdering)

	assert.Equal(t, genai.TypeString, got.Properties["riesgo"].Type)
	assert.Equal(t, []string{"Bajo", "Medio", "Alto"}, got.Properties["riesgo"].Enum)
	assert.Equal(t, genai.TypeArray, got.Properties["pasos"].Type)
	require.NotNil(t, got.Properties["pasos"].Items)
	assert.Equal(t, genai.TypeString, got.Properties["pasos"].Items.Type)
	assert.Equal(t, genai.TypeNumber, got.Properties["score"].Type)
	assert.Equal(t, "0-1", got.Properties["score"].Description)
	assert.Equal(t, genai.TypeInteger, got.Properties["n"].Type)
	assert.Equal(t, genai.TypeBoolean, got.Properties["ok"].Type)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), "test-key", "test-model", zap.NewNop(), WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestGenerate_SendsSchemaAndReturnsText(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/test-model:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"riesgo\":\"Alto\",\"score\":0.4}"}]},"finishReason":"STOP"}]}`))
	})

	text, err := c.Generate(context.Background(), completion.Request{
		Name:   "cx.c1",
		System: "eres un validador",
		User:   "faro Jetta",
		Schema: testSchema,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"riesgo":"Alto","score":0.4}`, text)

	gen, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing: %v", body)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.NotNil(t, gen["responseSchema"])
	assert.NotNil(t, body["systemInstruction"])
}

func TestGenerate_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		temporary bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"bad key", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": tt.status, "message": "nope", "status": "ERROR"},
				})
			})

			_, err := c.Generate(context.Background(), completion.Request{Name: "x", System: "s", User: "u", Schema: testSchema})
			var te *completion.TransportError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, tt.status, te.StatusCode)
			assert.Equal(t, tt.temporary, te.Temporary)
		})
	}
}

func TestGenerate_NoCandidatesIsParseError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Generate(context.Background(), completion.Request{Name: "x", System: "s", User: "u", Schema: testSchema})
	var pe *completion.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "", zap.NewNop())
	assert.Error(t, err)
}
