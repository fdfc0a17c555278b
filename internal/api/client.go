// Package api talks to the OpenRouter chat-completions endpoint and maps
// between conversation messages and the wire format.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/tidwall/gjson"

	apperrors "github.com/diogo/imagestudio/internal/errors"
	"github.com/diogo/imagestudio/internal/models"
)

// DefaultTimeout bounds a single completion call
const DefaultTimeout = 300 * time.Second

// maxResponseSize caps how much of a reply is read; generated images are inline
const maxResponseSize = 64 * 1024 * 1024

// httpDoer is the part of tls_client.HttpClient the client uses
type httpDoer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

// Client sends completion requests to the trusted API host
type Client struct {
	httpClient httpDoer
	endpoint   string
	timeout    time.Duration
	referer    string
	title      string
	logger     *slog.Logger
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithEndpoint overrides the completion URL; it must still be on the trusted host
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAppInfo sets the HTTP-Referer and X-Title headers
func WithAppInfo(referer, title string) ClientOption {
	return func(c *Client) {
		if referer != "" {
			c.referer = referer
		}
		if title != "" {
			c.title = title
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// withHTTPClient injects the transport, used by tests
func withHTTPClient(doer httpDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// NewClient creates a Client backed by tls-client
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		endpoint: models.EndpointCompletion,
		timeout:  DefaultTimeout,
		referer:  models.AppReferer,
		title:    models.AppTitle,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := CheckEndpoint(client.endpoint); err != nil {
		return nil, err
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// CheckEndpoint accepts only https URLs on the trusted API host
func CheckEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUntrustedEndpoint, err)
	}
	if u.Scheme != "https" || !strings.EqualFold(u.Hostname(), models.TrustedHost) || u.User != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrUntrustedEndpoint, u.Redacted())
	}
	return nil
}

// Endpoint returns the completion URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Complete posts a request and returns the raw reply body.
// Non-2xx replies become *APIError with the server's message when it sent one.
func (c *Client) Complete(ctx context.Context, apiKey string, req *models.Request) ([]byte, error) {
	if apiKey == "" {
		return nil, apperrors.ErrMissingCredential
	}
	if err := CheckEndpoint(c.endpoint); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range models.DefaultHeaders() {
		httpReq.Header.Set(key, value)
	}
	httpReq.Header.Set("HTTP-Referer", c.referer)
	httpReq.Header.Set("X-Title", c.title)
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	c.logger.Debug("sending completion", "model", req.Model, "messages", len(req.Messages), "bytes", len(payload))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewNetworkError("chat completion", c.endpoint, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apperrors.NewNetworkError("read completion", c.endpoint, err)
	}

	c.logger.Debug("completion received", "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, fhttp.StatusText(resp.StatusCode))
		}
		return nil, apperrors.NewAPIError(resp.StatusCode, c.endpoint, msg)
	}

	return body, nil
}

// Send completes a request and parses the reply
func (c *Client) Send(ctx context.Context, apiKey string, req *models.Request) (*models.Result, error) {
	body, err := c.Complete(ctx, apiKey, req)
	if err != nil {
		return nil, err
	}
	return ParseResponse(body)
}
