package httpclient

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-relay-go/internal/platform/errors"
)

func TestSend_PostsJSONAndDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, sonic.Unmarshal(raw, &body))
		assert.Equal(t, "gpt-4o", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := New(Options{})
	out, err := client.Send(context.Background(), http.MethodPost, server.URL,
		map[string]string{"Authorization": "Bearer k", "Content-Type": "application/json"},
		map[string]any{"model": "gpt-4o"}, time.Second)

	require.NoError(t, err)
	choices := out["choices"].([]any)
	assert.Len(t, choices, 1)
}

func TestSend_StatusError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"openai shape", 401, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`, "Incorrect API key"},
		{"anthropic shape", 400, `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: field required"}}`, "max_tokens: field required"},
		{"string error", 429, `{"error":"rate limited"}`, "rate limited"},
		{"message field", 500, `{"message":"upstream down"}`, "upstream down"},
		{"plain text", 502, "Bad Gateway\n", "Bad Gateway"},
		{"empty", 503, "", "empty response body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(Options{}).Send(context.Background(), http.MethodPost, server.URL, nil, map[string]any{}, time.Second)

			require.Error(t, err)
			var statusErr *StatusError
			require.True(t, stderrors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.Status)
			assert.Equal(t, tt.message, statusErr.Message)
			assert.Equal(t, tt.body, statusErr.Body)
			assert.True(t, errors.IsKind(err, errors.KindProvider))
		})
	}
}

func TestSend_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(Options{}).Send(context.Background(), http.MethodGet, url, nil, nil, time.Second)

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNetwork))
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := New(Options{}).Send(context.Background(), http.MethodGet, server.URL, nil, nil, 50*time.Millisecond)

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNetwork))
	assert.Contains(t, err.Error(), "timed out")
}

func TestSend_UndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := New(Options{}).Send(context.Background(), http.MethodGet, server.URL, nil, nil, time.Second)

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestSend_EmptyBodyIsEmptyObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	out, err := New(Options{}).Send(context.Background(), http.MethodDelete, server.URL, nil, nil, time.Second)

	require.NoError(t, err)
	assert.Empty(t, out)
}
