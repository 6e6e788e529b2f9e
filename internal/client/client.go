// Package client talks to a running intentgate server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"intentgate/internal/domain"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("server status=%d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

func (c *Client) Ask(ctx context.Context, query string) (domain.AskResponse, error) {
	var out domain.AskResponse
	err := c.do(ctx, http.MethodPost, "/ask", domain.AskRequest{Query: query, Token: c.token}, &out)
	return out, err
}

func (c *Client) Execute(ctx context.Context, tool string, args map[string]any) (domain.AskResponse, error) {
	var out domain.AskResponse
	err := c.do(ctx, http.MethodPost, "/v1/execute", domain.ExecuteRequest{Tool: tool, Args: args, Token: c.token}, &out)
	return out, err
}

func (c *Client) Capabilities(ctx context.Context) (domain.CapabilitiesResponse, error) {
	var out domain.CapabilitiesResponse
	err := c.do(ctx, http.MethodGet, "/v1/capabilities", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp domain.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Kind = errResp.ErrorKind
			apiErr.Message = errResp.Error
		}
		return apiErr
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
