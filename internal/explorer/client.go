package explorer

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
)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 8 * time.Second
)

// ErrMissingAPIKey is returned when the client was constructed without an
// API key. Callers treat it as a skip, not a failure.
var ErrMissingAPIKey = errors.New("explorer api key not configured")

// Client calls an etherscan-style explorer HTTP JSON API.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new explorer API client. The API key is injected
// here explicitly; it is never read from ambient environment state.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: 2.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenTransfers retrieves the full available token transfer history for
// an address. The API offers no since-filter; callers filter locally.
func (c *Client) TokenTransfers(ctx context.Context, address string) ([]RawTransfer, error) {
	params := url.Values{
		"module":     {"account"},
		"action":     {"tokentx"},
		"address":    {address},
		"startblock": {"0"},
		"endblock":   {"999999999"},
		"sort":       {"desc"},
	}

	var result []RawTransfer
	if err := c.call(ctx, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// TokenHolders retrieves the holder balance list for a token contract.
func (c *Client) TokenHolders(ctx context.Context, tokenAddress string) ([]RawHolder, error) {
	params := url.Values{
		"module":          {"token"},
		"action":          {"tokenholderlist"},
		"contractaddress": {tokenAddress},
	}

	var result []RawHolder
	if err := c.call(ctx, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// call performs a GET request with retries and exponential backoff.
// Empty result sets ("No transactions found") are not errors.
func (c *Client) call(ctx context.Context, params url.Values, result interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	params.Set("apikey", c.apiKey)

	endpoint := c.baseURL + "/api?" + params.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var envelope struct {
			apiResponse
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if envelope.Status != "1" {
			// "0" with this message means an empty result set, not a failure.
			if strings.Contains(envelope.Message, "No transactions found") {
				return nil
			}
			// API-level errors (bad key, quota) are not retried.
			return fmt.Errorf("explorer api error: %s", apiErrorDetail(envelope.Message, envelope.Result))
		}

		if result != nil && envelope.Result != nil {
			if err := json.Unmarshal(envelope.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// apiErrorDetail combines the envelope message with the result payload,
// which carries the human-readable reason on API-level errors.
func apiErrorDetail(message string, result json.RawMessage) string {
	var detail string
	if len(result) > 0 {
		_ = json.Unmarshal(result, &detail)
	}
	if detail == "" {
		return message
	}
	return message + ": " + detail
}
