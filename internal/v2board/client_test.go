package v2board

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluebird-io/portal/internal/models"
)

func TestNormaliseBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "bare host", input: "https://api.example.com", expected: "https://api.example.com/api/v1"},
		{name: "trailing slashes", input: "https://api.example.com///", expected: "https://api.example.com/api/v1"},
		{name: "prefix present", input: "https://api.example.com/api/v1", expected: "https://api.example.com/api/v1"},
		{name: "prefix with slash", input: "https://api.example.com/api/v1/", expected: "https://api.example.com/api/v1"},
		{name: "sub path", input: "https://example.com/panel", expected: "https://example.com/panel/api/v1"},
		{name: "empty", input: "", wantErr: true},
		{name: "no scheme", input: "api.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NormaliseBaseURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStatus_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
	}{
		{`"success"`, StatusSuccess},
		{`"SUCCESS"`, StatusSuccess},
		{`"fail"`, StatusFail},
		{`true`, StatusSuccess},
		{`false`, StatusFail},
		{`null`, ""},
		{`1`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var status Status
			require.NoError(t, json.Unmarshal([]byte(tt.input), &status))
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected bool
	}{
		{name: "status success", body: `{"status":"success","data":null}`, expected: true},
		{name: "status true", body: `{"status":true}`, expected: true},
		{name: "code 200", body: `{"code":200}`, expected: true},
		{name: "data true", body: `{"data":true}`, expected: true},
		{name: "message ok", body: `{"message":"ok"}`, expected: true},
		{name: "status fail", body: `{"status":"fail","message":"nope"}`, expected: false},
		{name: "data false", body: `{"data":false}`, expected: false},
		{name: "empty", body: `{}`, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env envelope
			require.NoError(t, json.Unmarshal([]byte(tt.body), &env))
			resp := &Response[json.RawMessage]{
				Message: env.Message,
				Status:  env.Status,
				Code:    env.Code,
				RawData: env.Data,
			}
			assert.Equal(t, tt.expected, resp.IsSuccess())
		})
	}
}

func TestClient_Login(t *testing.T) {
	var received models.LoginRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/passport/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"token":"t1","auth_data":{"id":1,"email":"user@example.com"}}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	resp, err := client.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", received.Email)
	assert.Equal(t, "secret1", received.Password)
	assert.True(t, resp.Data.HasCredentials())
	assert.Equal(t, "t1", resp.Data.Token)
	assert.Equal(t, int64(1), resp.Data.AuthData.ID)
}

func TestClient_BearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/user/info":
			assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"data":{"id":1,"email":"user@example.com","balance":100}}`))
		case "/api/v1/user/logout":
			assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"data":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL + "/")
	require.NoError(t, err)
	client.SetToken("t1")

	info, err := client.GetUserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", info.Data.Email)

	_, err = client.Logout(context.Background())
	require.NoError(t, err)
	assert.False(t, client.HasToken())
}

func TestClient_CheckEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/passport/comm/checkEmail", r.URL.Path)
		assert.Equal(t, "a+b@example.com", r.URL.Query().Get("email"))
		w.Write([]byte(`{"data":{"is_exist":true}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	resp, err := client.CheckEmail(context.Background(), "a+b@example.com")
	require.NoError(t, err)
	assert.True(t, resp.Data.IsExist)
}

func TestClient_RequestError(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		expectedMessage string
	}{
		{
			name:            "message",
			status:          http.StatusBadRequest,
			body:            `{"message":"invalid credentials"}`,
			expectedMessage: "invalid credentials",
		},
		{
			name:            "validation errors",
			status:          http.StatusUnprocessableEntity,
			body:            `{"message":"","errors":{"email":["email is taken"]}}`,
			expectedMessage: "email is taken",
		},
		{
			name:            "non json body",
			status:          http.StatusBadGateway,
			body:            `<html>bad gateway</html>`,
			expectedMessage: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(server.URL)
			require.NoError(t, err)

			_, err = client.ResetPassword(context.Background(), models.ResetPasswordRequest{Email: "a@b.c"})
			require.Error(t, err)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Equal(t, tt.expectedMessage, reqErr.Message)
			assert.Equal(t, tt.body, string(reqErr.Body))
		})
	}
}

func TestNewRequestError_ValidationMessageIsStable(t *testing.T) {
	body := []byte(`{"errors":{"password":["password too short"],"email":["email is taken"],"invite_code":[],"code":["code expired"]}}`)

	// Map iteration order varies between runs, so check many times
	for range 50 {
		reqErr := newRequestError(http.StatusUnprocessableEntity, body)
		assert.Equal(t, "code expired", reqErr.Message)
	}

	reqErr := newRequestError(http.StatusUnprocessableEntity, []byte(`{"errors":{"a":[],"b":["second field"]}}`))
	assert.Equal(t, "second field", reqErr.Message)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(url)
	require.NoError(t, err)

	_, err = client.SendEmailCode(context.Background(), models.SendEmailCodeRequest{
		Email: "a@b.c",
		Type:  models.EmailCodeRegister,
	})
	require.Error(t, err)

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.MethodPost, transportErr.Method)
}

func TestClient_UnexpectedPayloadShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":"not-an-object","message":"weird"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	resp, err := client.Login(context.Background(), models.LoginRequest{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)
	assert.False(t, resp.Data.HasCredentials())
	assert.Equal(t, "weird", resp.Message)
	assert.Equal(t, `"not-an-object"`, string(resp.RawData))
}

func TestClient_GetHostname(t *testing.T) {
	client, err := NewClient("https://api.example.com:8443/")
	require.NoError(t, err)
	assert.Equal(t, "api.example.com:8443", client.GetHostname())
	assert.Equal(t, "https://api.example.com:8443/api/v1", client.GetBaseURL())
}
