// Package mpesa implements a minimal client for the Safaricom Daraja API:
// OAuth token issuance, STK-Push initiation, status query, and result
// callback decoding.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	paygate "github.com/dfirstlabs/paygate"
)

const (
	// SandboxBaseURL is the Daraja test host.
	SandboxBaseURL = "https://sandbox.safaricom.co.ke"
	// ProductionBaseURL is the Daraja live host.
	ProductionBaseURL = "https://api.safaricom.co.ke"
)

// transactionType identifies a paybill STK prompt.
const transactionType = "CustomerPayBillOnline"

// timestampLayout is the Daraja password timestamp format.
const timestampLayout = "20060102150405"

// tokenExpiryMargin refreshes the cached token slightly before Daraja
// would reject it.
const tokenExpiryMargin = 30 * time.Second

// defaultTokenTTL is assumed when the token response carries an
// unparseable expires_in value.
const defaultTokenTTL = 3599 * time.Second

// Config configures the M-Pesa client.
type Config struct {
	// BaseURL is the API host (optional, defaults to SandboxBaseURL)
	BaseURL string

	// ConsumerKey and ConsumerSecret are the Daraja app credentials used
	// as HTTP Basic auth on token requests
	ConsumerKey    string
	ConsumerSecret string

	// ShortCode is the paybill business short code
	ShortCode string

	// Passkey is the Lipa Na M-Pesa online passkey used to derive the
	// STK password
	Passkey string

	// CallbackURL receives the asynchronous STK result
	CallbackURL string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration
}

// Client issues authenticated requests against the Daraja REST API.
// An OAuth token is fetched on demand and cached until shortly before
// expiry; concurrent callers share one fetch.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	httpClient     *http.Client

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new M-Pesa client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = SandboxBaseURL
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
		baseURL:        baseURL,
		consumerKey:    config.ConsumerKey,
		consumerSecret: config.ConsumerSecret,
		shortCode:      config.ShortCode,
		passkey:        config.Passkey,
		callbackURL:    config.CallbackURL,
		httpClient:     httpClient,
	}
}

// Token returns a bearer token for API calls, fetching a fresh one only
// when the cached token has expired. The mutex is held across the fetch so
// concurrent callers issue a single upstream request.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", paygate.NewGatewayError(
			paygate.ErrCodeToken,
			fmt.Sprintf("mpesa token failed (%d): %s", resp.StatusCode, string(responseBody)),
			nil,
		)
	}

	var token tokenResponse
	if err := json.Unmarshal(responseBody, &token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", paygate.NewGatewayError(paygate.ErrCodeToken, "token response missing access_token", nil)
	}

	ttl := defaultTokenTTL
	if seconds, err := strconv.Atoi(token.ExpiresIn); err == nil && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(ttl - tokenExpiryMargin)
	return c.token, nil
}

// Password derives the STK password for time t: the base64 encoding of
// shortcode + passkey + timestamp. The timestamp is returned alongside
// because Daraja requires the same value in the request body.
func (c *Client) Password(t time.Time) (password, timestamp string) {
	timestamp = t.Format(timestampLayout)
	password = base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))
	return password, timestamp
}

// STKPush asks Daraja to push a PIN prompt to the payer's handset.
func (c *Client) STKPush(ctx context.Context, input *STKPushInput) (*STKPushResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	password, timestamp := c.Password(time.Now())

	accountReference := input.AccountReference
	if accountReference == "" {
		accountReference = "DFirstTrader"
	}
	description := input.Description
	if description == "" {
		description = "Payment"
	}

	payload := stkPushPayload{
		BusinessShortCode: c.shortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            input.Amount,
		PartyA:            input.PhoneNumber,
		PartyB:            c.shortCode,
		PhoneNumber:       input.PhoneNumber,
		CallBackURL:       c.callbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}

	var response STKPushResponse
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", token, payload, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// STKQuery polls the status of a prompt by checkout request id.
func (c *Client) STKQuery(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	password, timestamp := c.Password(time.Now())

	payload := stkQueryPayload{
		BusinessShortCode: c.shortCode,
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	var response STKQueryResponse
	if err := c.post(ctx, "/mpesa/stkpushquery/v1/query", token, payload, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// post sends an authenticated JSON request and decodes the body into out.
func (c *Client) post(ctx context.Context, path, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return upstreamError(resp.StatusCode, responseBody)
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// upstreamError shapes a non-200 provider response into a GatewayError,
// keeping Daraja's own message when the body parses.
func upstreamError(statusCode int, body []byte) error {
	var errResponse errorResponse
	if err := json.Unmarshal(body, &errResponse); err == nil && errResponse.ErrorMessage != "" {
		return paygate.NewUpstreamError(errResponse.ErrorMessage, map[string]interface{}{
			"error_code":  errResponse.ErrorCode,
			"status_code": statusCode,
		})
	}
	return paygate.NewUpstreamError(
		fmt.Sprintf("mpesa request failed (%d): %s", statusCode, string(body)),
		nil,
	)
}
