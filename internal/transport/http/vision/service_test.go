package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-relay-go/internal/app/analysis"
	domainauth "vision-relay-go/internal/domain/auth"
	"vision-relay-go/internal/domain/credential"
	"vision-relay-go/internal/domain/provider"
	"vision-relay-go/internal/platform/config"
	"vision-relay-go/internal/platform/httpclient"
	platformtesting "vision-relay-go/internal/platform/testing"
	httptransport "vision-relay-go/internal/transport/http"
)

var pngBytes = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 24)...)

type senderFunc func(url string, body map[string]any) (map[string]any, error)

func (f senderFunc) Send(_ context.Context, _, url string, _ map[string]string, body map[string]any, _ time.Duration) (map[string]any, error) {
	return f(url, body)
}

func replyWith(text string) senderFunc {
	return func(string, map[string]any) (map[string]any, error) {
		return map[string]any{
			"choices": []any{map[string]any{
				"message":       map[string]any{"content": text},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": float64(5), "completion_tokens": float64(2)},
		}, nil
	}
}

type countingResolver struct {
	inner *credential.Resolver
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context) (credential.Credentials, error) {
	r.calls++
	return r.inner.Resolve(ctx)
}

type harness struct {
	engine   *gin.Engine
	store    credential.Store
	resolver *countingResolver
}

func newHarness(t *testing.T, sender analysis.Sender, auth gin.HandlerFunc, sets ...credential.Credentials) *harness {
	t.Helper()
	return newHarnessWithConfig(t, platformtesting.SetupTestConfig(t), sender, auth, sets...)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config, sender analysis.Sender, auth gin.HandlerFunc, sets ...credential.Credentials) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := platformtesting.SetupTestLogger(t).Legacy()
	store := platformtesting.SeedCredentials(t, sets...)

	resolver := &countingResolver{inner: credential.NewResolver(store, logger)}
	orch := analysis.NewOrchestrator(analysis.Options{
		Resolver: resolver,
		Sender:   sender,
		Catalog:  provider.NewCatalog(nil, logger),
		Logger:   logger,
	})
	svc, err := NewService(Options{Config: cfg, Logger: logger, Orchestrator: orch, Credentials: store})
	require.NoError(t, err)

	router, err := httptransport.Build(httptransport.Options{Config: cfg, Logger: logger, AuthMiddleware: auth})
	require.NoError(t, err)
	svc.Register(router.API, router.Secured)
	return &harness{engine: router.Engine, store: store, resolver: resolver}
}

func (h *harness) do(req *http.Request) (*httptest.ResponseRecorder, httptransport.APIResponse) {
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	var resp httptransport.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func uploadRequest(t *testing.T, fileName, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/vision", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func openAISet() credential.Credentials {
	return credential.Credentials{Name: credential.PrimarySet, ProviderID: provider.OpenAI, APIKey: "sk-test-123456"}
}

func TestStatus(t *testing.T) {
	h := newHarness(t, replyWith("x"), nil)
	rec, _ := h.do(httptest.NewRequest(http.MethodGet, "/api/vision", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no credentials configured")

	h = newHarness(t, replyWith("x"), nil, openAISet())
	rec, _ = h.do(httptest.NewRequest(http.MethodGet, "/api/vision", nil))
	assert.Contains(t, rec.Body.String(), "provider openai")
}

func TestUpload_Analyses(t *testing.T) {
	var sentURL string
	sender := senderFunc(func(url string, body map[string]any) (map[string]any, error) {
		sentURL = url
		return replyWith("a tiny png")(url, body)
	})
	h := newHarness(t, sender, nil, openAISet())

	rec, resp := h.do(uploadRequest(t, "pixel.png", "image/png", pngBytes, map[string]string{
		"question": "what is it?",
		"model":    "gpt-4o",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", sentURL)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "a tiny png", data["result"])
	assert.Equal(t, "image/png", data["mimeType"])
	assert.Equal(t, "openai", data["provider"])
	assert.Equal(t, 1, h.resolver.calls, "credentials resolved once per upload")
}

func TestUpload_RejectsUnsupportedFormat(t *testing.T) {
	h := newHarness(t, replyWith("never"), nil, openAISet())

	rec, resp := h.do(uploadRequest(t, "notes.txt", "text/plain", []byte("hello world"), map[string]string{
		"question": "what is it?",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "UnsupportedFormat")
	assert.Contains(t, resp.Message, "image/jpeg, image/png, image/gif, image/webp")
}

func TestUpload_MissingCredentials(t *testing.T) {
	h := newHarness(t, replyWith("never"), nil)

	rec, resp := h.do(uploadRequest(t, "pixel.png", "image/png", pngBytes, map[string]string{"question": "q"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, resp.Message, "visionApi")
}

func TestUpload_ProviderFailure(t *testing.T) {
	sender := senderFunc(func(string, map[string]any) (map[string]any, error) {
		return nil, &httpclient.StatusError{Status: http.StatusTooManyRequests, Message: "slow down"}
	})
	h := newHarness(t, sender, nil, openAISet())

	rec, resp := h.do(uploadRequest(t, "pixel.png", "image/png", pngBytes, map[string]string{"question": "q"}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, resp.Message, "slow down")
}

func TestBatch(t *testing.T) {
	h := newHarness(t, replyWith("batch answer"), nil, openAISet())

	payload := map[string]any{
		"items": []any{
			map[string]any{
				"json":   map[string]any{"id": 1},
				"binary": map[string]any{"data": map[string]any{"data": base64.StdEncoding.EncodeToString(pngBytes)}},
			},
			map[string]any{"json": map[string]any{"id": 2}},
		},
		"params": map[string]any{"prompt": "describe", "continueOnFail": true, "includeMetadata": true},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/vision/batch", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec, resp := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	items := resp.Data.(map[string]any)["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)["json"].(map[string]any)
	second := items[1].(map[string]any)["json"].(map[string]any)
	assert.Equal(t, "batch answer", first["analysis"])
	assert.NotNil(t, first["metadata"])
	assert.Equal(t, "validation", second["errorKind"])
}

func batchRequest(t *testing.T, params map[string]any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"items": []any{map[string]any{
			"json":   map[string]any{"id": 1},
			"binary": map[string]any{"data": map[string]any{"data": base64.StdEncoding.EncodeToString(pngBytes)}},
		}},
		"params": params,
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/vision/batch", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBatch_IncludeMetadataOverridesConfig(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	cfg.Vision.IncludeMetadata = true
	h := newHarnessWithConfig(t, cfg, replyWith("ok"), nil, openAISet())

	tests := []struct {
		name   string
		params map[string]any
		want   bool
	}{
		{"config default", map[string]any{"prompt": "describe"}, true},
		{"explicit false", map[string]any{"prompt": "describe", "includeMetadata": false}, false},
		{"explicit true", map[string]any{"prompt": "describe", "includeMetadata": true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := h.do(batchRequest(t, tt.params))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			items := resp.Data.(map[string]any)["items"].([]any)
			require.Len(t, items, 1)
			fields := items[0].(map[string]any)["json"].(map[string]any)
			_, has := fields["metadata"]
			assert.Equal(t, tt.want, has)
		})
	}
}

func TestModels_Unsupported(t *testing.T) {
	h := newHarness(t, replyWith("x"), nil, credential.Credentials{
		Name: credential.PrimarySet, ProviderID: provider.Together, APIKey: "tk",
	})

	rec, resp := h.do(httptest.NewRequest(http.MethodGet, "/api/vision/models", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["unsupported"])
	assert.Equal(t, "together", data["provider"])
	assert.Equal(t, 1, h.resolver.calls)
}

func TestEvents_DisabledWithoutRepository(t *testing.T) {
	h := newHarness(t, replyWith("x"), nil)
	rec, _ := h.do(httptest.NewRequest(http.MethodGet, "/api/vision/events", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestCredentialsLifecycle(t *testing.T) {
	h := newHarness(t, replyWith("x"), nil)

	put := httptest.NewRequest(http.MethodPut, "/api/credentials/visionApi",
		strings.NewReader(`{"provider":"anthropic","apiKey":"sk-ant-abcdefgh1234"}`))
	put.Header.Set("Content-Type", "application/json")
	rec, resp := h.do(put)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sk-...1234", resp.Data.(map[string]any)["apiKey"])

	stored, err := h.store.Get(context.Background(), "visionApi")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-abcdefgh1234", stored.APIKey)

	rec, resp = h.do(httptest.NewRequest(http.MethodGet, "/api/credentials", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]any), 1)
	assert.NotContains(t, rec.Body.String(), "sk-ant-abcdefgh1234")

	rec, _ = h.do(httptest.NewRequest(http.MethodDelete, "/api/credentials/visionApi", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = h.do(httptest.NewRequest(http.MethodGet, "/api/credentials/visionApi", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCredentials_RejectsBadProvider(t *testing.T) {
	h := newHarness(t, replyWith("x"), nil)

	for _, body := range []string{
		`{"provider":"acme","apiKey":"k"}`,
		`{"provider":"custom","apiKey":"k"}`,
		`{"provider":"openai"}`,
	} {
		req := httptest.NewRequest(http.MethodPut, "/api/credentials/visionApi", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec, _ := h.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestBearerAuth(t *testing.T) {
	tokens := domainauth.NewAuthToken("secret")
	h := newHarness(t, replyWith("x"), httptransport.BearerAuth(tokens), openAISet())

	rec, _ := h.do(httptest.NewRequest(http.MethodGet, "/api/vision", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "status stays public")

	rec, _ = h.do(httptest.NewRequest(http.MethodGet, "/api/credentials", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := tokens.GenerateToken("ci")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/credentials", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, _ = h.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
