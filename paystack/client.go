// Package paystack implements a minimal client for the Paystack REST API:
// transaction initialize, transaction verify, and webhook signature
// validation with typed event decoding.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	paygate "github.com/dfirstlabs/paygate"
)

// DefaultBaseURL is Paystack's public API host.
const DefaultBaseURL = "https://api.paystack.co"

// Config configures the Paystack client.
type Config struct {
	// BaseURL is the API host (optional, defaults to DefaultBaseURL)
	BaseURL string

	// SecretKey is the sk_ key sent as a bearer token on every call
	SecretKey string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration
}

// Client issues authenticated requests against the Paystack REST API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a new Paystack client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &Client{
		baseURL:    baseURL,
		secretKey:  config.SecretKey,
		httpClient: httpClient,
	}
}

// Initialize creates a transaction and returns the hosted checkout handle.
func (c *Client) Initialize(ctx context.Context, initReq *InitializeRequest) (*InitializeResponse, error) {
	body, err := json.Marshal(initReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create initialize request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("initialize request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("initialize", resp.StatusCode, responseBody)
	}

	var initResponse InitializeResponse
	if err := json.Unmarshal(responseBody, &initResponse); err != nil {
		return nil, fmt.Errorf("failed to decode initialize response: %w", err)
	}

	return &initResponse, nil
}

// Verify fetches the current status of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("verify", resp.StatusCode, responseBody)
	}

	var verifyResponse VerifyResponse
	if err := json.Unmarshal(responseBody, &verifyResponse); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return &verifyResponse, nil
}

// upstreamError shapes a non-200 provider response into a GatewayError,
// keeping Paystack's own message when the body parses.
func upstreamError(operation string, statusCode int, body []byte) error {
	var errResponse ErrorResponse
	if err := json.Unmarshal(body, &errResponse); err == nil && errResponse.Message != "" {
		return paygate.NewUpstreamError(errResponse.Message, map[string]interface{}{
			"operation":   operation,
			"status_code": statusCode,
		})
	}
	return paygate.NewUpstreamError(
		fmt.Sprintf("paystack %s failed (%d): %s", operation, statusCode, string(body)),
		nil,
	)
}
