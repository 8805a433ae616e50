package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// Client drives an http.Handler in process and keeps the cookies it is
// handed, the way a browser would.
type Client struct {
	handler http.Handler
	jar     http.CookieJar
	base    *url.URL
	headers map[string]string
}

type Response struct {
	*httptest.ResponseRecorder
	Envelope Envelope
}

// Envelope mirrors the JSON body every API response is wrapped in.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

func NewClient(handler http.Handler) *Client {
	jar, _ := cookiejar.New(nil)
	base, _ := url.Parse("http://app.test")
	return &Client{
		handler: handler,
		jar:     jar,
		base:    base,
		headers: map[string]string{},
	}
}

// WithHeader returns a client sharing this client's cookies that sends an
// extra header on every request.
func (c *Client) WithHeader(key, value string) *Client {
	headers := make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		headers[k] = v
	}
	headers[key] = value
	return &Client{handler: c.handler, jar: c.jar, base: c.base, headers: headers}
}

func (c *Client) Get(t *testing.T, path string) *Response {
	return c.Request(t, http.MethodGet, path, nil)
}

func (c *Client) Post(t *testing.T, path string, body any) *Response {
	return c.Request(t, http.MethodPost, path, body)
}

func (c *Client) Patch(t *testing.T, path string, body any) *Response {
	return c.Request(t, http.MethodPatch, path, body)
}

// Request sends body as JSON. A string body is sent verbatim.
func (c *Client) Request(t *testing.T, method, path string, body any) *Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err, "failed to marshal request body")
		reader = bytes.NewReader(encoded)
	}

	ref, err := url.Parse(path)
	require.NoError(t, err, "invalid request path")

	req := httptest.NewRequest(method, c.base.ResolveReference(ref).String(), reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for _, cookie := range c.jar.Cookies(c.base) {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	c.jar.SetCookies(c.base, rec.Result().Cookies())

	resp := &Response{ResponseRecorder: rec}
	if rec.Body.Len() > 0 && json.Valid(rec.Body.Bytes()) {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp.Envelope)
	}
	return resp
}

// Cookie returns the named cookie the client currently holds, or nil.
func (c *Client) Cookie(name string) *http.Cookie {
	for _, cookie := range c.jar.Cookies(c.base) {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func (r *Response) AssertStatus(t *testing.T, expected int) {
	t.Helper()
	require.Equal(t, expected, r.Code, "unexpected status code. Response: %s", r.Body.String())
}

// DecodeData unmarshals the envelope's data into v.
func (r *Response) DecodeData(t *testing.T, v any) {
	t.Helper()
	require.NotEmpty(t, r.Envelope.Data, "response carries no data: %s", r.Body.String())
	require.NoError(t, json.Unmarshal(r.Envelope.Data, v))
}
