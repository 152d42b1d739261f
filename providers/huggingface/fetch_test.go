package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"news-hand/config"
)

func testClient(endpoint string) *Client {
	cfg := &config.Config{
		HFToken:       "test-token",
		HFEndpointURL: endpoint,
	}
	return NewClient(cfg, zap.NewNop())
}

func TestScoreSendsPayloadAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.Header.Get("X-Wait-For-Model"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "some article text", payload["inputs"])

		w.Write([]byte(`{"bias": 0.73}`))
	}))
	defer server.Close()

	score, err := testClient(server.URL).Score(context.Background(), "some article text")
	require.NoError(t, err)
	assert.InDelta(t, 0.73, score, 1e-9)
}

func TestScoreReturnsTypedErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("model loading"))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Score(context.Background(), "text")
	require.Error(t, err)

	var infErr *InferenceError
	require.True(t, errors.As(err, &infErr))
	assert.Equal(t, http.StatusServiceUnavailable, infErr.StatusCode)
	assert.True(t, infErr.Retryable())
	assert.Contains(t, infErr.Error(), "model loading")
}

func TestScoreNonRetryableOnClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Score(context.Background(), "text")
	require.Error(t, err)

	var infErr *InferenceError
	require.True(t, errors.As(err, &infErr))
	assert.False(t, infErr.Retryable())
}

func TestScoreFailsOnUnparsableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no score in here"))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Score(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse bias score")
}
