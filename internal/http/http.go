package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"net/url"
	"strings"
	"time"
)

// MethodPost is the method of every provider request, as defined in net/http.
const MethodPost = "POST"

const errorBodyLimit = 512

var retryStatusCodes = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// StatusError is returned for responses with a status code of 400 or above.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("(HTTP Error %d) %s", e.StatusCode, e.Body)
}

type Client struct {
	httpClient *gohttp.Client
	maxRetries int
	retryDelay time.Duration

	endpoint string
	apiKey   string
	headers  map[string]string
}

type ClientOption func(*Client)

func NewClient(endpoint string, opts ...ClientOption) Client {
	c := Client{
		endpoint: endpoint,
		httpClient: &gohttp.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries: 1,
		retryDelay: 500 * time.Millisecond,
		headers:    make(map[string]string),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// WithApiKey sends the key as a bearer token.
func WithApiKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHeader sets a static header on every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the total number of attempts for a request.
// Values below 1 are treated as a single attempt.
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = max(maxRetries, 1)
	}
}

func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

func WithHTTPClient(hc *gohttp.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func (c Client) Endpoint() string {
	return c.endpoint
}

// Request sends payload as JSON and decodes the JSON response into out.
// A nil payload sends no body, a nil out discards the response body.
func (c *Client) Request(ctx context.Context, method string, path string, payload any, out any) error {
	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to deserialize response from '%s': %w", path, err)
	}
	return nil
}

func (c *Client) RequestStream(ctx context.Context, method string, path string, payload any) (io.ReadCloser, error) {
	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method string, path string, payload any) (*gohttp.Response, error) {
	uri, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	uri.Path = strings.TrimRight(uri.Path, "/") + path

	var jsonData []byte
	if payload != nil {
		jsonData, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize request payload: %w", err)
		}
	}

	var resp *gohttp.Response
	for i := range c.maxRetries {
		var body io.Reader
		if jsonData != nil {
			body = bytes.NewReader(jsonData)
		}

		req, err := gohttp.NewRequestWithContext(ctx, method, uri.String(), body)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req, jsonData != nil)

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if i == c.maxRetries-1 {
				return nil, err
			}
			continue
		}

		if _, ok := retryStatusCodes[resp.StatusCode]; ok && i < c.maxRetries-1 {
			resp.Body.Close()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i+1) * c.retryDelay):
			}
			continue
		}
		break
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBytes, _ := io.ReadAll(resp.Body)

		// truncate error responses
		if len(respBytes) > errorBodyLimit {
			respBytes = respBytes[:errorBodyLimit]
		}

		return nil, StatusError{StatusCode: resp.StatusCode, Body: string(respBytes)}
	}

	return resp, nil
}

func (c *Client) setHeaders(req *gohttp.Request, hasBody bool) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}
