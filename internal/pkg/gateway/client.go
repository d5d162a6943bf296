package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds payment gateway configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the external payment gateway that actually holds buyer funds.
// The escrow state machine only transitions on a successful gateway call.
type Client struct {
	httpClient *http.Client
	config     Config
}

// CaptureRequest asks the gateway to capture buyer funds for an escrow.
type CaptureRequest struct {
	PaymentID string          `json:"payment_id"`
	BuyerID   string          `json:"buyer_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// CaptureResponse is the gateway's answer to a capture.
type CaptureResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// RefundRequest asks the gateway to return captured funds to the buyer.
type RefundRequest struct {
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// RefundResponse is the gateway's answer to a refund.
type RefundResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// NewClient creates a new gateway client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// Capture captures buyer funds. Returns an error on any non-2xx status or when
// the gateway reports a status other than "captured".
func (c *Client) Capture(ctx context.Context, req CaptureRequest) (*CaptureResponse, error) {
	if req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.PaymentID) == "" {
		return nil, fmt.Errorf("validation error: payment_id must be non-empty")
	}

	var out CaptureResponse
	if err := c.post(ctx, "/api/v1/payments/capture", req, &out); err != nil {
		return nil, err
	}
	if out.Status != "captured" {
		return nil, fmt.Errorf("gateway declined capture: status %q", out.Status)
	}
	return &out, nil
}

// Refund returns captured funds to the buyer.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	if strings.TrimSpace(req.PaymentID) == "" {
		return nil, fmt.Errorf("validation error: payment_id must be non-empty")
	}

	var out RefundResponse
	if err := c.post(ctx, "/api/v1/payments/refund", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("gateway client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return fmt.Errorf("gateway config error: base_url is empty")
	}

	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("gateway api call failed: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned non-2xx status: %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}

	return nil
}
