package v2board

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/bluebird-io/portal/internal/models"
)

const APIPrefix = "/api/v1"

const (
	pathSendEmailCode = "/passport/comm/sendEmailVerify"
	pathRegister      = "/passport/auth/register"
	pathLogin         = "/passport/auth/login"
	pathUserInfo      = "/user/info"
	pathLogout        = "/user/logout"
	pathResetPassword = "/passport/auth/forget"
	pathCheckEmail    = "/passport/comm/checkEmail"
)

// Client talks to a V2Board compatible backend. Every call is a single
// attempt; there is no retry or backoff.
type Client struct {
	baseURL string
	http    *resty.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.SetTimeout(timeout)
		}
	}
}

// WithHTTPClient swaps the underlying transport, mostly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(httpClient)
		c.configure()
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if len(userAgent) > 0 {
			c.http.SetHeader("User-Agent", userAgent)
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	normalised, err := NormaliseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	client := &Client{
		baseURL: normalised,
		http:    resty.New(),
	}
	client.configure()

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) configure() {
	c.http.
		SetBaseURL(c.baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(logrus.StandardLogger())
}

// NormaliseBaseURL trims trailing slashes and appends the API prefix
// unless the URL already ends with it.
func NormaliseBaseURL(baseURL string) (string, error) {
	baseURL = strings.TrimSpace(baseURL)
	if len(baseURL) == 0 {
		return "", fmt.Errorf("api base url is empty")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if len(parsed.Scheme) == 0 || len(parsed.Host) == 0 {
		return "", fmt.Errorf("invalid api base url %q: scheme and host are required", baseURL)
	}

	base := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(base, APIPrefix) {
		base += APIPrefix
	}

	return base, nil
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// GetHostname is used to namespace persisted sessions per backend.
func (c *Client) GetHostname() string {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	return parsed.Host
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) GetToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) HasToken() bool {
	return len(c.GetToken()) > 0
}

func (c *Client) SendEmailCode(ctx context.Context, req models.SendEmailCodeRequest) (*Response[json.RawMessage], error) {
	return do[json.RawMessage](ctx, c, http.MethodPost, pathSendEmailCode, req, nil)
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*Response[models.AuthData], error) {
	return do[models.AuthData](ctx, c, http.MethodPost, pathRegister, req, nil)
}

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*Response[models.AuthData], error) {
	return do[models.AuthData](ctx, c, http.MethodPost, pathLogin, req, nil)
}

func (c *Client) GetUserInfo(ctx context.Context) (*Response[models.UserInfo], error) {
	return do[models.UserInfo](ctx, c, http.MethodGet, pathUserInfo, nil, nil)
}

func (c *Client) Logout(ctx context.Context) (*Response[json.RawMessage], error) {
	resp, err := do[json.RawMessage](ctx, c, http.MethodPost, pathLogout, nil, nil)
	if err != nil {
		return nil, err
	}
	c.ClearToken()
	return resp, nil
}

func (c *Client) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (*Response[json.RawMessage], error) {
	return do[json.RawMessage](ctx, c, http.MethodPost, pathResetPassword, req, nil)
}

func (c *Client) CheckEmail(ctx context.Context, email string) (*Response[models.CheckEmailData], error) {
	return do[models.CheckEmailData](ctx, c, http.MethodGet, pathCheckEmail, nil, map[string]string{
		"email": email,
	})
}

func do[T any](
	ctx context.Context,
	c *Client,
	method string,
	path string,
	body any,
	query map[string]string,
) (*Response[T], error) {

	request := c.http.R().SetContext(ctx)

	if token := c.GetToken(); len(token) > 0 {
		request.SetAuthToken(token)
	}
	if body != nil {
		request.SetBody(body)
	}
	if len(query) > 0 {
		request.SetQueryParams(query)
	}

	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	}).Debugln("Calling backend")

	resp, err := request.Execute(method, path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).WithError(err).Errorln("Backend request failed")

		return nil, &TransportError{
			Method: method,
			URL:    c.baseURL + path,
			Err:    err,
		}
	}

	if !resp.IsSuccess() {
		reqErr := newRequestError(resp.StatusCode(), resp.Body())

		logrus.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode(),
		}).WithError(reqErr).Warnln("Backend returned an error")

		return nil, reqErr
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	result := &Response[T]{
		Message: env.Message,
		Status:  env.Status,
		Code:    env.Code,
		RawData: env.Data,
	}

	if result.HasData() {
		// A payload of an unexpected shape is not an error here; callers
		// check the structure they need.
		if err := json.Unmarshal(env.Data, &result.Data); err != nil {
			logrus.WithFields(logrus.Fields{
				"path": path,
			}).WithError(err).Debugln("Response payload did not match the expected shape")
		}
	}

	return result, nil
}
