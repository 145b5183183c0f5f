package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	chatapi "github.com/futig/uiprime-backend/internal/api/chat"
	contactapi "github.com/futig/uiprime-backend/internal/api/contact"
	"github.com/futig/uiprime-backend/internal/api/middleware"
	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/futig/uiprime-backend/internal/integration/mail"
	"github.com/futig/uiprime-backend/internal/pkg/ratelimit"
	"github.com/futig/uiprime-backend/internal/pkg/validator"
	"github.com/futig/uiprime-backend/internal/prompt"
	chatuc "github.com/futig/uiprime-backend/internal/usecase/chat"
	contactuc "github.com/futig/uiprime-backend/internal/usecase/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLLM struct {
	calls  atomic.Int32
	answer string
	err    error
}

func (f *fakeLLM) Generate(context.Context, entity.ComposedPrompt) (string, error) {
	f.calls.Add(1)
	return f.answer, f.err
}

type testServer struct {
	handler http.Handler
	llm     *fakeLLM
	mail    *mail.MockConnector
}

func testConfig() *config.Config {
	return &config.Config{
		MaxBodyBytes:   64 << 10,
		RequestTimeout: 5 * time.Second,
		CORSCfg: config.CORSConfig{
			AllowedOrigins: []string{"https://uiprime.com"},
			MaxAge:         300,
		},
	}
}

func newTestServer(t *testing.T, withChat, withContact bool) *testServer {
	t.Helper()

	logger := zap.NewNop()
	cfg := testConfig()
	v := validator.New(validator.Limits{MaxQueryLength: 1000, MaxContentLength: 5000, RequireLanguage: true})

	ts := &testServer{
		llm:  &fakeLLM{answer: "We offer web design, online shops and SEO."},
		mail: mail.NewMockConnector(logger),
	}

	var handlers Handlers
	if withChat {
		uc := chatuc.NewUsecase(
			v,
			prompt.NewResolver([]string{"en", "ro"}, "en"),
			prompt.NewComposer(config.DefaultKnowledge(), prompt.FormatPlain),
			prompt.NewShaper(prompt.FormatPlain),
			ts.llm,
			nil,
			time.Second,
			logger,
		)
		handlers.Chat = chatapi.NewHandler(uc)
	}
	if withContact {
		uc := contactuc.NewUsecase(v, ts.mail, contactuc.Relay{
			From:      "UIPrime <noreply@uiprime.com>",
			Recipient: "inbox@uiprime.com",
		}, logger)
		handlers.Contact = contactapi.NewHandler(uc)
	}

	limiter := ratelimit.NewMemoryLimiter(ratelimit.Policies{
		ratelimit.OperationContact: {Limit: 3, Window: time.Minute},
		ratelimit.OperationChat:    {Limit: 10, Window: time.Minute},
	}, time.Minute)

	clientIP, err := middleware.NewClientIP(nil)
	require.NoError(t, err)

	ts.handler = SetupRouter(cfg, handlers, limiter, clientIP, logger)
	return ts
}

func (ts *testServer) post(path, body, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestChat_AnswersQuestion(t *testing.T) {
	ts := newTestServer(t, true, true)

	rec := ts.post("/api/v1/chat", `{"query":"What services do you offer?","language":"en"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "What services do you offer?", body["query"])
	assert.NotEmpty(t, body["answer"])
}

func TestChat_LegacyAndTrailingSlashPaths(t *testing.T) {
	ts := newTestServer(t, true, true)

	for _, path := range []string{"/chat", "/chat/", "/api/v1/chat/"} {
		rec := ts.post(path, `{"query":"Hi","language":"en"}`, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestChat_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty query", `{"query":"","language":"en"}`, "No query provided."},
		{"whitespace query", `{"query":"   \n\t","language":"en"}`, "No query provided."},
		{"missing language", `{"query":"Hello"}`, "No language provided."},
		{"query too long", `{"query":"` + strings.Repeat("a", 1001) + `","language":"en"}`, "Query is too long."},
		{"malformed body", `{"query":`, "Invalid request body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, true, true)

			rec := ts.post("/api/v1/chat", tt.body, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]string{"error": tt.want}, decode(t, rec))
			assert.Zero(t, ts.llm.calls.Load())
		})
	}
}

func TestChat_UpstreamFailureIsGeneric(t *testing.T) {
	ts := newTestServer(t, true, true)
	ts.llm.err = errors.New("openai: 401 invalid api key sk-secret")

	rec := ts.post("/api/v1/chat", `{"query":"What services do you offer?","language":"en"}`, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "Failed to get response from OpenAI."}, decode(t, rec))
	assert.NotContains(t, rec.Body.String(), "sk-secret")
}

func TestSendMessage_Success(t *testing.T) {
	ts := newTestServer(t, true, true)

	rec := ts.post("/api/v1/send-message",
		`{"content":"I need a website","sender_mail":"ana@example.com","sender_full_name":"Ana Pop"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"details": "Email sent successfully"}, decode(t, rec))

	sent := ts.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Email from Ana Pop | ana@example.com", sent[0].Subject)
}

func TestSendMessage_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"content too long", `{"content":"` + strings.Repeat("a", 5001) + `","sender_mail":"a@b.com","sender_full_name":"A"}`, "Email content is too long."},
		{"missing field", `{"content":"hi","sender_mail":"a@b.com"}`, "Not all fields are provided."},
		{"malformed email", `{"content":"hi","sender_mail":"not-an-email","sender_full_name":"A"}`, "Invalid email address format."},
		{"malformed body", `[]`, "Invalid request body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, true, true)

			rec := ts.post("/api/v1/send-message", tt.body, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]string{"error": tt.want}, decode(t, rec))
			assert.Empty(t, ts.mail.Sent())
		})
	}
}

func TestSendMessage_RateLimitedPerClient(t *testing.T) {
	ts := newTestServer(t, true, true)
	body := `{"content":"hi","sender_mail":"a@b.com","sender_full_name":"A"}`

	for i := 0; i < 3; i++ {
		rec := ts.post("/send-message", body, "203.0.113.7:5000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := ts.post("/send-message", body, "203.0.113.7:5001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, map[string]string{"error": "Too many requests. Try again later."}, decode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Len(t, ts.mail.Sent(), 3)

	rec = ts.post("/send-message", body, "198.51.100.1:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChat_RateLimitedBeforeModel(t *testing.T) {
	ts := newTestServer(t, true, false)
	body := `{"query":"What services do you offer?","language":"en"}`

	for i := 0; i < 10; i++ {
		rec := ts.post("/api/v1/chat", body, "203.0.113.8:5000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := ts.post("/api/v1/chat", body, "203.0.113.8:5001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, map[string]string{"error": "Too many requests. Try again later."}, decode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, int32(10), ts.llm.calls.Load())

	rec = ts.post("/api/v1/chat", body, "198.51.100.2:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(11), ts.llm.calls.Load())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false, false)

	for _, path := range []string{"/health", "/health/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Origin", "https://anywhere.example")
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, map[string]string{"status": "ok"}, decode(t, rec))
		assert.Equal(t, "https://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORS_APIUsesAllowList(t *testing.T) {
	ts := newTestServer(t, true, true)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, "https://uiprime.com", preflight("https://uiprime.com").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, preflight("https://evil.example").Header().Get("Access-Control-Allow-Origin"))
}

func TestDisabledFeaturesAnswerUnavailable(t *testing.T) {
	ts := newTestServer(t, false, false)

	rec := ts.post("/api/v1/chat", `{"query":"Hi","language":"en"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, map[string]string{"error": "Chat is currently unavailable."}, decode(t, rec))

	rec = ts.post("/api/v1/send-message", `{"content":"hi","sender_mail":"a@b.com","sender_full_name":"A"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, map[string]string{"error": "Contact form is currently unavailable."}, decode(t, rec))
}
