// Package apiclient handles all communication with the external media and
// CRM persistence boundaries. Auth tokens pass through opaquely; the
// service never inspects them.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrRequestFailed covers transport errors and non-2xx responses.
	ErrRequestFailed = errors.New("boundary request failed")
	// ErrBadResponse covers responses whose shape deviates from the
	// contract (undecodable JSON, missing fields).
	ErrBadResponse = errors.New("malformed boundary response")
)

// Client talks to one boundary service.
type Client struct {
	BaseURL    string
	HttpClient *http.Client

	serviceToken string
}

// New creates a client for a boundary. serviceToken is used when the caller
// supplies no token of their own.
func New(baseURL, serviceToken string) *Client {
	return &Client{
		BaseURL:      baseURL,
		HttpClient:   &http.Client{},
		serviceToken: serviceToken,
	}
}

// do is the single helper for plain requests. Streaming multipart requests
// build their own request but share token handling via authorize.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create boundary request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(req, token)

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return resp, nil
}

func (c *Client) authorize(req *http.Request, token string) {
	if token == "" {
		token = c.serviceToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func readBody(resp *http.Response) string {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return string(bodyBytes)
}
