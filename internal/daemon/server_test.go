package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluebird-io/portal/internal/config"
	"github.com/bluebird-io/portal/internal/models"
	"github.com/bluebird-io/portal/internal/sessions"
	"github.com/bluebird-io/portal/internal/site"
	"github.com/bluebird-io/portal/internal/storage"
	"github.com/bluebird-io/portal/internal/v2board"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests map[string][]byte
}

func (b *fakeBackend) lastBody(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests["/api/v1"+path]
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()

	backend := &fakeBackend{requests: make(map[string][]byte)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		backend.mu.Lock()
		backend.requests[r.URL.Path] = body
		backend.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/v1/passport/auth/login":
			w.Write([]byte(`{"data":{"token":"secret-token","auth_data":{"id":7,"email":"user@qq.com"}}}`))
		case "/api/v1/passport/auth/register":
			w.Write([]byte(`{"data":true}`))
		case "/api/v1/passport/comm/sendEmailVerify":
			w.Write([]byte(`{"data":true}`))
		case "/api/v1/passport/auth/forget":
			w.Write([]byte(`{"data":true}`))
		case "/api/v1/user/logout":
			w.Write([]byte(`{"data":true}`))
		case "/api/v1/user/info":
			w.Write([]byte(`{"data":{"id":7,"email":"user@qq.com","balance":1200}}`))
		case "/api/v1/passport/comm/checkEmail":
			w.Write([]byte(`{"data":{"is_exist":true}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	return backend, server
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *fakeBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend, backendServer := newFakeBackend(t)

	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}

	client, err := v2board.NewClient(backendServer.URL)
	require.NoError(t, err)

	manager := sessions.NewManager(context.Background(), client, storage.NewMemoryStore())

	return NewServer(cfg, manager, site.New(cfg)), backend
}

func perform(handler http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if len(body) > 0 {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeResult(t *testing.T, recorder *httptest.ResponseRecorder) models.Result {
	t.Helper()
	var result models.Result
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	return result
}

func TestServer_HealthAndReady(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	health := perform(handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), `"status":"healthy"`)
	assert.Contains(t, health.Body.String(), `"instance":`)
	assert.NotEmpty(t, health.Header().Get(correlationIDHeader))

	ready := perform(handler, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), `"status":"ready"`)
}

func TestServer_HealthDisabled(t *testing.T) {
	server, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.Health.Enabled = false
	})

	assert.Equal(t, http.StatusNotFound, perform(server.Handler(), http.MethodGet, "/health", "").Code)
}

func TestServer_SiteContent(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	siteResp := perform(handler, http.MethodGet, "/api/site", "")
	require.Equal(t, http.StatusOK, siteResp.Code)

	var info site.Info
	require.NoError(t, json.Unmarshal(siteResp.Body.Bytes(), &info))
	assert.Equal(t, "青鸟", info.Name)
	assert.True(t, info.Features.EmailVerification)

	var plans []site.Plan
	require.NoError(t, json.Unmarshal(perform(handler, http.MethodGet, "/api/plans", "").Body.Bytes(), &plans))
	assert.Len(t, plans, 3)

	var faq []site.FAQ
	require.NoError(t, json.Unmarshal(perform(handler, http.MethodGet, "/api/faq", "").Body.Bytes(), &faq))
	assert.Len(t, faq, 6)
}

func TestServer_LoginFlow(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	session := perform(handler, http.MethodGet, "/api/session", "")
	assert.Contains(t, session.Body.String(), `"isAuthenticated":false`)

	login := perform(handler, http.MethodPost, "/api/auth/login", `{"email":"user@qq.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, login.Code)
	result := decodeResult(t, login)
	assert.True(t, result.Success)
	assert.True(t, result.Authenticated)

	session = perform(handler, http.MethodGet, "/api/session", "")
	assert.Contains(t, session.Body.String(), `"isAuthenticated":true`)
	assert.NotContains(t, session.Body.String(), "secret-token")

	refresh := perform(handler, http.MethodPost, "/api/auth/refresh", "")
	require.Equal(t, http.StatusOK, refresh.Code)
	assert.Contains(t, refresh.Body.String(), `"balance":1200`)
	assert.NotContains(t, refresh.Body.String(), "secret-token")

	logout := perform(handler, http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, logout.Code)
	assert.Equal(t, "已退出登录", decodeResult(t, logout).Message)

	session = perform(handler, http.MethodGet, "/api/session", "")
	assert.Contains(t, session.Body.String(), `"isAuthenticated":false`)
}

func TestServer_LoginRejectsInvalidInput(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	malformed := perform(handler, http.MethodPost, "/api/auth/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, malformed.Code)
	assert.Equal(t, "请求格式错误", decodeResult(t, malformed).Message)

	incomplete := perform(handler, http.MethodPost, "/api/auth/login", `{"email":"user@qq.com"}`)
	assert.Equal(t, http.StatusBadRequest, incomplete.Code)
	assert.Equal(t, "请填写完整信息", decodeResult(t, incomplete).Message)
}

func TestServer_Register(t *testing.T) {
	server, backend := newTestServer(t, nil)
	handler := server.Handler()

	resp := perform(handler, http.MethodPost, "/api/auth/register", `{
		"email": "user@qq.com",
		"code": "123456",
		"password": "secret1",
		"confirm_password": "secret1",
		"invite_code": "FRIEND",
		"agree_to_terms": true
	}`)
	require.Equal(t, http.StatusOK, resp.Code)

	result := decodeResult(t, resp)
	assert.True(t, result.Success)
	assert.False(t, result.Authenticated)
	assert.Equal(t, "注册成功，请登录", result.Message)

	var sent models.RegisterRequest
	require.NoError(t, json.Unmarshal(backend.lastBody("/passport/auth/register"), &sent))
	assert.Equal(t, "123456", sent.EmailCode)
	assert.Equal(t, "FRIEND", sent.InviteCode)
	assert.Equal(t, "secret1", sent.PasswordConfirmation)
}

func TestServer_RegisterDisabled(t *testing.T) {
	server, backend := newTestServer(t, func(cfg *config.Config) {
		cfg.Features.Registration = false
	})

	resp := perform(server.Handler(), http.MethodPost, "/api/auth/register", `{"email":"user@qq.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "暂未开放注册", decodeResult(t, resp).Message)
	assert.Nil(t, backend.lastBody("/passport/auth/register"))
}

func TestServer_SendCode(t *testing.T) {
	server, backend := newTestServer(t, nil)
	handler := server.Handler()

	resp := perform(handler, http.MethodPost, "/api/auth/send-code", `{"email":"user@qq.com","type":"reset_password"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeResult(t, resp).Success)

	var sent models.SendEmailCodeRequest
	require.NoError(t, json.Unmarshal(backend.lastBody("/passport/comm/sendEmailVerify"), &sent))
	assert.Equal(t, models.EmailCodeResetPassword, sent.Type)

	invalid := perform(handler, http.MethodPost, "/api/auth/send-code", `{"email":"user@qq.com","type":"sms"}`)
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
}

func TestServer_ResetPassword(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	resp := perform(handler, http.MethodPost, "/api/auth/reset-password", `{
		"email": "user@qq.com",
		"code": "654321",
		"password": "secret2",
		"confirm_password": "secret2"
	}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeResult(t, resp).Success)

	short := perform(handler, http.MethodPost, "/api/auth/reset-password", `{
		"email": "user@qq.com",
		"code": "654321",
		"password": "abc",
		"confirm_password": "abc"
	}`)
	assert.Equal(t, http.StatusBadRequest, short.Code)
	assert.Equal(t, "密码长度至少为6位", decodeResult(t, short).Message)
}

func TestServer_RefreshRequiresSession(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := perform(server.Handler(), http.MethodPost, "/api/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "您尚未登录", decodeResult(t, resp).Message)
}

func TestServer_CheckEmail(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	missing := perform(handler, http.MethodGet, "/api/auth/check-email", "")
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	resp := perform(handler, http.MethodGet, "/api/auth/check-email?email=user@qq.com", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"email":"user@qq.com","exists":true}`, resp.Body.String())
}

func TestServer_CORS(t *testing.T) {
	server, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	assert.Equal(t, "http://localhost:3000", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_CORSCorrelationID(t *testing.T) {
	server, _ := newTestServer(t, nil)

	// Header names come back canonicalised, so compare case-insensitively
	preflight := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	preflight.Header.Set("Origin", "http://localhost:3000")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	preflight.Header.Set("Access-Control-Request-Headers", correlationIDHeader)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, preflight)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Contains(t,
		strings.ToLower(recorder.Header().Get("Access-Control-Allow-Headers")),
		strings.ToLower(correlationIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	recorder = httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	assert.NotEmpty(t, recorder.Header().Get(correlationIDHeader))
	assert.Contains(t,
		strings.ToLower(recorder.Header().Get("Access-Control-Expose-Headers")),
		strings.ToLower(correlationIDHeader))
}

func TestServer_CorrelationIDIsReused(t *testing.T) {
	server, _ := newTestServer(t, nil)

	id := "0b8f2f7a-54a4-4f55-9d1c-6d2d8f3b9a10"
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req.Header.Set(correlationIDHeader, id)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)

	assert.Equal(t, id, recorder.Header().Get(correlationIDHeader))
}

func TestServer_AuthRoutesAreRateLimited(t *testing.T) {
	server, _ := newTestServer(t, nil)
	server.limiter = NewRateLimiter(0.001, 1)
	defer server.limiter.Stop()

	handler := server.Handler()

	first := perform(handler, http.MethodGet, "/api/auth/check-email?email=user@qq.com", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := perform(handler, http.MethodGet, "/api/auth/check-email?email=user@qq.com", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Content routes are not limited
	assert.Equal(t, http.StatusOK, perform(handler, http.MethodGet, "/api/site", "").Code)
}

func TestServer_LogsWithoutLogger(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := perform(server.Handler(), http.MethodGet, "/api/logs", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestServer_SessionEvents(t *testing.T) {
	server, _ := newTestServer(t, nil)

	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpServer.URL+"/api/session/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	nextState := func() sessions.State {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(line, "data:"); ok {
				var state sessions.State
				require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(data)), &state))
				return state
			}
		}
	}

	initial := nextState()
	assert.False(t, initial.IsAuthenticated)

	login := perform(server.Handler(), http.MethodPost, "/api/auth/login", `{"email":"user@qq.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, login.Code)

	// Bursts may be coalesced, so read until the authenticated snapshot
	for {
		state := nextState()
		if state.IsAuthenticated {
			assert.Equal(t, int64(7), state.User.ID)
			break
		}
	}
}
