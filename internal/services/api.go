// Raw JSON-over-HTTP client shared by the service implementations
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/jamx/internal/shared"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 4 << 20
)

// NewHTTPClient returns an [http.Client] with the default request timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// APIService performs raw HTTP requests against a single base URL.
//
// Headers set with [APIService.WithHeader] are sent on every request.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
}

// NewAPIService creates a new API service instance for baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if client == nil {
		client = NewHTTPClient()
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
		header:     http.Header{},
	}
}

// WithHeader returns a copy of the service that also sends key: value on each request.
func (a *APIService) WithHeader(key, value string) *APIService {
	clone := *a
	clone.header = a.header.Clone()
	clone.header.Set(key, value)
	return &clone
}

// APIRequest describes one call relative to the service's base URL.
type APIRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
}

// OK reports whether the status code is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Do sends the request and reads the full response body.
//
// Transport failures are wrapped with [shared.ErrNetwork]; any HTTP status is returned as a response.
func (a *APIService) Do(ctx context.Context, r APIRequest) (*APIResponse, error) {
	fullURL := a.baseURL + r.Path
	if len(r.Query) > 0 {
		fullURL += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range a.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range r.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
		IsJSON:     json.Valid(data),
	}, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string, query url.Values) (*APIResponse, error) {
	return a.Do(ctx, APIRequest{Method: http.MethodGet, Path: path, Query: query})
}

// PostJSON marshals payload and POSTs it to path.
func (a *APIService) PostJSON(ctx context.Context, path string, payload any) (*APIResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return a.Do(ctx, APIRequest{Method: http.MethodPost, Path: path, Body: data})
}
