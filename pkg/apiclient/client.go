// Package apiclient provides a client for the icecold admin API.
package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iskaald/icecold/pkg/api/handlers"
	"github.com/iskaald/icecold/pkg/service"
)

// Client is the icecold admin API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Quit waits for the vote and teardown.
			Timeout: 2 * time.Minute,
		},
	}
}

// envelope covers both the standard response wrapper and RFC 7807 problems.
// Their "status" fields differ in type (string vs number), so it is not
// decoded.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Title  string          `json:"title"`
	Detail string          `json:"detail"`
}

// do performs a request and decodes the data field into result. The data
// field is decoded even for error statuses, since some endpoints (POST
// /quit) return a body alongside the failure.
func (c *Client) do(method, path string, result any) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if result != nil && decodeErr == nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		if decodeErr == nil {
			switch {
			case env.Detail != "":
				apiErr.Message = env.Detail
			case env.Error != "":
				apiErr.Message = env.Error
			case env.Title != "":
				apiErr.Message = env.Title
			}
		}
		return apiErr
	}

	if decodeErr != nil && result != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return nil
}

func (c *Client) get(path string, result any) error {
	return c.do(http.MethodGet, path, result)
}

func (c *Client) post(path string, result any) error {
	return c.do(http.MethodPost, path, result)
}

// Ready reports whether the runtime finished startup.
func (c *Client) Ready() (bool, error) {
	err := c.get("/health/ready", nil)
	if err == nil {
		return true, nil
	}
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusServiceUnavailable {
		return false, nil
	}
	return false, err
}

// Services lists registered services in startup order.
func (c *Client) Services() ([]service.DescriptorInfo, error) {
	var out []service.DescriptorInfo
	if err := c.get("/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Service returns one registered service.
func (c *Client) Service(name string) (*service.DescriptorInfo, error) {
	var out service.DescriptorInfo
	if err := c.get("/services/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Routes returns the installed routing table.
func (c *Client) Routes() (*handlers.CatalogResponse, error) {
	var out handlers.CatalogResponse
	if err := c.get("/routes", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Explain returns the routing decision for path at level.
func (c *Client) Explain(path, level string) (*handlers.DecisionResponse, error) {
	q := url.Values{}
	q.Set("path", path)
	if level != "" {
		q.Set("level", level)
	}

	var out handlers.DecisionResponse
	if err := c.get("/routes?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quit requests a negotiated quit. A vetoed or ignored request returns the
// outcome together with an *APIError carrying 409.
func (c *Client) Quit() (*handlers.QuitResponse, error) {
	var out handlers.QuitResponse
	err := c.post("/quit", &out)
	if err != nil && out.Outcome == "" {
		return nil, err
	}
	return &out, err
}
