package clients

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

type HTTP struct{ c *http.Client }

// NewHTTP returns a client without an overall timeout; callers bound each
// request through its context.
func NewHTTP() *HTTP {
	return &HTTP{c: &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}}
}

// NewHTTPWithClient wraps an existing client, e.g. one from httptest.
func NewHTTPWithClient(c *http.Client) *HTTP {
	if c == nil {
		return NewHTTP()
	}
	return &HTTP{c: c}
}

type rawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// postAudio sends body as-is with a bearer credential.
func (h *HTTP) postAudio(ctx context.Context, url, apiKey, contentType string, body []byte) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	return &rawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: b}, nil
}
