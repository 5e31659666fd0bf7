package salesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chrisdamba/excursiondesk/pkg/session"
	"github.com/google/uuid"
)

const (
	CSRFHeader      = "X-CSRFToken"
	RequestIDHeader = "X-Request-ID"
	DefaultCSRFPath = "csrf/"
)

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is the single choke point for calls to the sales API. It carries
// the session cookies, injects the CSRF header on mutating verbs and retries
// a rejected mutation exactly once with a refreshed token.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	csrfPath   string
	session    *session.Session
	logger     *slog.Logger
}

type Option func(*Client)

// RequestOptions mirror a fetch init: Method defaults to GET. A string or
// []byte Body is sent as is; any other value is JSON-encoded.
type RequestOptions struct {
	Method string
	Body   any
	Header http.Header
}

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithCSRFPath(path string) Option {
	return func(c *Client) {
		c.csrfPath = path
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(sess *session.Session, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(sess.Origin().String(), "/"),
		csrfPath:   DefaultCSRFPath,
		session:    sess,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) Get(ctx context.Context, target string) (*Response, error) {
	return c.Do(ctx, target, RequestOptions{Method: http.MethodGet})
}

func (c *Client) Post(ctx context.Context, target string, body any) (*Response, error) {
	return c.Do(ctx, target, RequestOptions{Method: http.MethodPost, Body: body})
}

func (c *Client) Patch(ctx context.Context, target string, body any) (*Response, error) {
	return c.Do(ctx, target, RequestOptions{Method: http.MethodPatch, Body: body})
}

func (c *Client) Put(ctx context.Context, target string, body any) (*Response, error) {
	return c.Do(ctx, target, RequestOptions{Method: http.MethodPut, Body: body})
}

func (c *Client) Delete(ctx context.Context, target string) (*Response, error) {
	return c.Do(ctx, target, RequestOptions{Method: http.MethodDelete})
}

func (c *Client) Do(ctx context.Context, target string, opts RequestOptions) (*Response, error) {
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	u := c.resolve(target)

	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	header := c.headers(opts.Header)
	if body != nil && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}

	mutating := isMutating(method)
	if mutating && header.Get(CSRFHeader) == "" {
		token := c.session.CSRFToken()
		if token == "" {
			// first mutation of the session: make the server issue a token
			token, err = c.AcquireCSRF(ctx)
			if err != nil {
				return nil, err
			}
		}
		setToken(header, token)
	}

	resp, err := c.send(ctx, method, u, body, header)
	if err != nil {
		return nil, err
	}

	retried := false
	if resp.StatusCode == http.StatusForbidden && mutating {
		discard(resp)
		c.logger.Info("csrf token rejected, refreshing",
			"method", method, "url", u, "request_id", header.Get(RequestIDHeader))

		token, err := c.AcquireCSRF(ctx)
		if err != nil {
			return nil, fmt.Errorf("csrf refresh failed: %w", err)
		}
		setToken(header, token)

		resp, err = c.send(ctx, method, u, body, header)
		if err != nil {
			return nil, err
		}
		retried = true
	}

	out := readResponse(resp)
	if !out.OK() {
		return nil, newRequestError(method, u, out, retried)
	}
	return out, nil
}

// AcquireCSRF asks the server for a fresh token. The token is taken from the
// response body when present, else from the cookie the server just set, and
// is stored in the session's token cache.
func (c *Client) AcquireCSRF(ctx context.Context) (string, error) {
	u := c.resolve(c.csrfPath)
	header := c.headers(nil)

	resp, err := c.send(ctx, http.MethodGet, u, nil, header)
	if err != nil {
		return "", err
	}
	out := readResponse(resp)
	if !out.OK() {
		c.logger.Warn("csrf endpoint answered with an error", "status", out.StatusCode)
	}

	var body struct {
		CSRFToken string `json:"csrftoken"`
	}
	_ = out.Decode(&body)

	token := body.CSRFToken
	if token == "" {
		token = c.session.Cookie(session.CSRFCookieName)
	}
	if token == "" {
		c.session.Tokens().Clear()
	} else {
		c.session.Tokens().Set(token)
	}
	return token, nil
}

// InitCSRF warms the session up so a token cookie exists before the first
// mutation. Failures are ignored.
func (c *Client) InitCSRF(ctx context.Context) {
	if _, err := c.AcquireCSRF(ctx); err != nil {
		c.logger.Debug("csrf warm-up failed", "error", err)
	}
}

func (c *Client) send(ctx context.Context, method, u string, body []byte, header http.Header) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: u, Err: err}
	}
	req.Header = header.Clone()
	for _, cookie := range c.session.Jar().Cookies(req.URL) {
		req.AddCookie(cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: u, Err: err}
	}
	if cookies := resp.Cookies(); len(cookies) > 0 {
		c.session.Jar().SetCookies(req.URL, cookies)
	}

	c.logger.Debug("sales api call",
		"method", method,
		"url", u,
		"status", resp.StatusCode,
		"request_id", header.Get(RequestIDHeader),
	)
	return resp, nil
}

func (c *Client) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return c.baseURL + "/" + strings.TrimLeft(target, "/")
}

func (c *Client) headers(extra http.Header) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("X-Requested-With", "XMLHttpRequest")
	for k, values := range extra {
		h.Del(k)
		for _, v := range values {
			h.Add(k, v)
		}
	}
	if h.Get(RequestIDHeader) == "" {
		h.Set(RequestIDHeader, uuid.NewString())
	}
	return h
}

func setToken(header http.Header, token string) {
	if token == "" {
		header.Del(CSRFHeader)
		return
	}
	header.Set(CSRFHeader, token)
}

func encodeBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(v), "application/json", nil
	case []byte:
		return v, "application/json", nil
	case json.RawMessage:
		return v, "application/json", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
