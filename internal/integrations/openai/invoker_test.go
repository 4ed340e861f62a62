package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbias/internal/domain"
)

func newTestInvoker(t *testing.T, handler http.HandlerFunc) *Invoker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	inv, err := NewInvoker("gpt-mock", domain.DefaultGenerationConfig(),
		WithBaseURL(srv.URL+"/v1"),
		WithAPIKey("sk-test"),
	)
	require.NoError(t, err)
	return inv
}

func TestNewInvoker_EmptyModel(t *testing.T) {
	_, err := NewInvoker(" ", domain.DefaultGenerationConfig())
	require.Error(t, err)
}

func TestInvoke_HappyPath(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-mock", body["model"])
		assert.InDelta(t, 0.3, body["temperature"], 1e-6)
		assert.InDelta(t, 0.9, body["top_p"], 1e-6)
		assert.Equal(t, float64(1000), body["max_tokens"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 1)
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "the prompt", msgs[0].(map[string]any)["content"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Score: 64"}}]}`))
	})

	out, err := inv.Invoke(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "Score: 64", out)
	assert.Equal(t, "gpt-mock", inv.ModelID())
}

func TestInvoke_NoChoicesFallsBack(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	})

	out, err := inv.Invoke(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, noResponse, out)
}

func TestInvoke_RateLimitedCarriesStatus(t *testing.T) {
	inv := newTestInvoker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit","type":"requests","code":"rate_limit_exceeded"}}`))
	})

	_, err := inv.Invoke(context.Background(), "p")
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
}
