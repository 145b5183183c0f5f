package builder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/futig/uiprime-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loadTestConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()

	t.Setenv("CHAT_KNOWLEDGE_FILE", "../config/knowledge.json")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.Load("test")
	require.NoError(t, err)
	return cfg
}

func post(t *testing.T, h http.Handler, path, body string) (int, map[string]string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestBuild_MissingSecretsDisableFeaturesOnly(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := loadTestConfig(t, map[string]string{"ENABLE_MOCKS": "false", "LLM_TOKEN": "", "MAIL_HOST": ""})

	app, err := build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	code, body := post(t, app.Handler(), "/api/v1/chat", `{"query":"Hi","language":"en"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Chat is currently unavailable.", body["error"])

	code, _ = post(t, app.Handler(), "/api/v1/send-message", `{"content":"hi","sender_mail":"a@b.com","sender_full_name":"A"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuild_WithMocks(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{"ENABLE_MOCKS": "true"})

	app, err := build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	code, body := post(t, app.Handler(), "/api/v1/chat", `{"query":"What services do you offer?","language":"en"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "What services do you offer?", body["query"])
	assert.NotEmpty(t, body["answer"])

	code, body = post(t, app.Handler(), "/send-message", `{"content":"hi","sender_mail":"a@b.com","sender_full_name":"A"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Email sent successfully", body["details"])
}

func TestBuild_MemoryRetrievalWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`[
		{"id":"pricing","text":"Landing pages start at 50 euro."},
		{"id":"seo","text":"We offer SEO audits."}
	]`), 0o600))

	cfg := loadTestConfig(t, map[string]string{
		"ENABLE_MOCKS":        "true",
		"RAG_ENABLED":         "true",
		"RAG_PROVIDER":        "memory",
		"RAG_SEED_FILE":       seed,
		"EMBEDDING_CACHE_TTL": "1m",
		"RATE_LIMIT_BACKEND":  "redis",
		"REDIS_ADDR":          mr.Addr(),
	})

	app, err := build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { app.release(context.Background()) })

	code, _ := post(t, app.Handler(), "/chat", `{"query":"How much is a landing page?","language":"en"}`)
	assert.Equal(t, http.StatusOK, code)

	keys := mr.Keys()
	assert.True(t, hasPrefix(keys, "emb:"), keys)
	assert.True(t, hasPrefix(keys, "ratelimit:"), keys)
}

func TestBuild_EmbeddingOutageDoesNotBlockStartup(t *testing.T) {
	var embedCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embeddings":
			embedCalls.Add(1)
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
		case "/chat/completions":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
				"choices":[{"index":0,"message":{"role":"assistant","content":"We build websites."},"finish_reason":"stop"}],
				"usage":{"prompt_tokens":10,"completion_tokens":4,"total_tokens":14}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`[{"id":"seo","text":"We offer SEO audits."}]`), 0o600))

	cfg := loadTestConfig(t, map[string]string{
		"ENABLE_MOCKS":          "false",
		"LLM_TOKEN":             "sk-test",
		"LLM_SERVICE_URL":       upstream.URL,
		"EMBEDDING_PROVIDER":    "openai",
		"EMBEDDING_TOKEN":       "sk-test",
		"EMBEDDING_SERVICE_URL": upstream.URL,
		"RAG_ENABLED":           "true",
		"RAG_PROVIDER":          "memory",
		"RAG_SEED_FILE":         seed,
		"RAG_FAILURE_POLICY":    "tolerant",
		"MAIL_HOST":             "smtp.example.com",
		"MAIL_RECIPIENT":        "inbox@example.com",
	})

	app, err := build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, embedCalls.Load())

	code, _ := post(t, app.Handler(), "/api/v1/send-message", `{"content":"","sender_mail":"a@b.com","sender_full_name":"A"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := post(t, app.Handler(), "/api/v1/chat", `{"query":"Do you do SEO?","language":"en"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "We build websites.", body["answer"])
	assert.Positive(t, embedCalls.Load())
}

func TestBuild_RedisUnavailableFailsStartup(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"RATE_LIMIT_BACKEND": "redis",
		"REDIS_ADDR":         "127.0.0.1:1",
		"REDIS_DIAL_TIMEOUT": "200ms",
		"REDIS_MAX_RETRIES":  "0",
	})

	_, err := build(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "setup redis")
}

func TestBuild_InvalidSettingFailsStartup(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"ENABLE_MOCKS":    "false",
		"LLM_TOKEN":       "sk-test",
		"MAIL_HOST":       "smtp.example.com",
		"MAIL_RECIPIENT":  "inbox@example.com",
		"MAIL_TLS_POLICY": "sometimes",
	})

	_, err := build(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "MAIL_TLS_POLICY")
}

func TestSetupLogger(t *testing.T) {
	logger, err := setupLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = setupLogger("loud")
	assert.Error(t, err)
}

func hasPrefix(keys []string, prefix string) bool {
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}
