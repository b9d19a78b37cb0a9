// Package gateway implements the HTTP client for the remote OAuth gateway
// that brokers Google Analytics and Stripe authorisation flows.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appErrors "github.com/pulsehub/pulsehub/pkg/errors"
	"github.com/pulsehub/pulsehub/pkg/metrics"
)

// Provider identifiers understood by the gateway.
const (
	ProviderGoogleAnalytics = "google-analytics"
	ProviderStripe          = "stripe"
)

// DefaultTimeout bounds a single gateway round trip. The gateway is contacted
// at most once per request; there is no retry.
const DefaultTimeout = 10 * time.Second

// ErrEmptyAuthURL is returned when the gateway answers 2xx without an
// authorisation URL. Callers must treat this the same as a failed request.
var ErrEmptyAuthURL = errors.New("gateway: empty auth_url in response")

// Config holds the settings required to talk to the gateway.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// CompletionResult is the gateway's verdict on an OAuth callback exchange.
// ProjectID identifies the project the flow was initiated for; the gateway
// recovers it from the opaque state parameter.
type CompletionResult struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
}

// Succeeded reports whether the exchange completed successfully.
func (r CompletionResult) Succeeded() bool {
	return strings.EqualFold(r.Status, "success")
}

// Client talks to the remote OAuth gateway over HTTPS.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("gateway: invalid base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// ValidProvider reports whether the supplied provider is known to the gateway.
func ValidProvider(provider string) bool {
	return provider == ProviderGoogleAnalytics || provider == ProviderStripe
}

// AuthURL asks the gateway for the provider's authorisation URL. The caller's
// bearer token is forwarded so the gateway can associate the flow with the
// user. A non-2xx answer or a 2xx answer without auth_url is an error.
func (c *Client) AuthURL(ctx context.Context, provider, projectID, bearer string) (string, error) {
	if !ValidProvider(provider) {
		return "", fmt.Errorf("gateway: unknown provider %q", provider)
	}

	endpoint := fmt.Sprintf("%s/%s/auth-url", c.baseURL, provider)
	if projectID != "" {
		endpoint += "?project_id=" + url.QueryEscape(projectID)
	}

	body, status, err := c.get(ctx, endpoint, bearer)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(provider, "auth_url", "error").Inc()
		return "", err
	}

	if status < 200 || status >= 300 {
		metrics.GatewayRequests.WithLabelValues(provider, "auth_url", "error").Inc()
		return "", appErrors.ErrUpstreamGateway.WithInternal(
			fmt.Errorf("gateway: auth-url returned status %d: %s", status, gatewayErrorMessage(body)))
	}

	var payload struct {
		AuthURL string `json:"auth_url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.GatewayRequests.WithLabelValues(provider, "auth_url", "error").Inc()
		return "", appErrors.ErrUpstreamGateway.WithInternal(fmt.Errorf("gateway: decode auth-url response: %w", err))
	}

	if strings.TrimSpace(payload.AuthURL) == "" {
		metrics.GatewayRequests.WithLabelValues(provider, "auth_url", "error").Inc()
		return "", appErrors.ErrUpstreamGateway.WithInternal(ErrEmptyAuthURL)
	}

	metrics.GatewayRequests.WithLabelValues(provider, "auth_url", "success").Inc()
	return payload.AuthURL, nil
}

// Complete forwards the provider's callback parameters to the gateway, which
// exchanges the code for credentials it stores itself. The returned result
// carries a status and a human-readable message for the redirect.
func (c *Client) Complete(ctx context.Context, provider, code, state, bearer string) (CompletionResult, error) {
	if !ValidProvider(provider) {
		return CompletionResult{}, fmt.Errorf("gateway: unknown provider %q", provider)
	}
	if strings.TrimSpace(code) == "" {
		return CompletionResult{}, errors.New("gateway: authorization code is required")
	}

	query := url.Values{"code": {code}}
	if state != "" {
		query.Set("state", state)
	}
	endpoint := fmt.Sprintf("%s/%s/callback?%s", c.baseURL, provider, query.Encode())

	body, status, err := c.get(ctx, endpoint, bearer)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(provider, "complete", "error").Inc()
		return CompletionResult{}, err
	}

	if status < 200 || status >= 300 {
		metrics.GatewayRequests.WithLabelValues(provider, "complete", "error").Inc()
		return CompletionResult{}, appErrors.ErrUpstreamGateway.WithInternal(
			fmt.Errorf("gateway: callback returned status %d: %s", status, gatewayErrorMessage(body)))
	}

	var result CompletionResult
	if err := json.Unmarshal(body, &result); err != nil {
		metrics.GatewayRequests.WithLabelValues(provider, "complete", "error").Inc()
		return CompletionResult{}, appErrors.ErrUpstreamGateway.WithInternal(fmt.Errorf("gateway: decode callback response: %w", err))
	}

	if result.Status == "" {
		metrics.GatewayRequests.WithLabelValues(provider, "complete", "error").Inc()
		return CompletionResult{}, appErrors.ErrUpstreamGateway.WithInternal(errors.New("gateway: missing status in callback response"))
	}

	metrics.GatewayRequests.WithLabelValues(provider, "complete", "success").Inc()
	return result, nil
}

func (c *Client) get(ctx context.Context, endpoint, bearer string) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, appErrors.ErrUpstreamGateway.WithInternal(fmt.Errorf("gateway: request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, appErrors.ErrUpstreamGateway.WithInternal(fmt.Errorf("gateway: read response: %w", err))
	}

	return body, resp.StatusCode, nil
}

func gatewayErrorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return "unexpected response"
}
