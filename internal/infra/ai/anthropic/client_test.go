package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/formc-review/internal/domain/ai"
)

func messageBody(text string) map[string]any {
	return map[string]any{
		"id":          "msg_test_001",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
	}
}

func TestGenerate_Success(t *testing.T) {
	var req map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageBody("NO ISSUES FOUND")) //nolint:errcheck
	}))
	defer ts.Close()

	out, err := NewClient("test-key", "", ts.URL).Generate(context.Background(), "review this", domain.DefaultGeneration())
	require.NoError(t, err)
	assert.Equal(t, "NO ISSUES FOUND", out.Text)
	assert.Equal(t, "claude-sonnet-4-5-20250929", out.Model)

	assert.Equal(t, DefaultModel, req["model"])
	assert.EqualValues(t, 8000, req["max_tokens"])
	assert.InDelta(t, 0.3, req["temperature"], 1e-9)
	assert.NotContains(t, req, "top_p")
}

func TestGenerate_TopPWithoutTemperature(t *testing.T) {
	var req map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageBody("ok")) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := NewClient("test-key", "claude-haiku-4-5-20251001", ts.URL).Generate(context.Background(), "p",
		domain.GenerationConfig{MaxOutputTokens: 100, TopP: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", req["model"])
	assert.InDelta(t, 0.9, req["top_p"], 1e-9)
	assert.NotContains(t, req, "temperature")
}

func TestGenerate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, domain.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, domain.ErrQuotaExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"nope"}}`)) //nolint:errcheck
			}))
			defer ts.Close()

			_, err := NewClient("test-key", "", ts.URL).Generate(context.Background(), "p", domain.DefaultGeneration())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestGenerate_EmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := messageBody("")
		body["content"] = []map[string]any{}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := NewClient("test-key", "", ts.URL).Generate(context.Background(), "p", domain.DefaultGeneration())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptyResponse))
}
