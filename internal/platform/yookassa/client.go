package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

// Client talks to the YooKassa payments API. It is the source of truth for
// payment status; every call is fallible and bounded by the request context.
type Client struct {
	httpClient *http.Client
	baseURL    string
	shopID     string
	secretKey  string
}

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// Payment is the subset of the YooKassa payment object the bot consumes.
type Payment struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Amount       Amount        `json:"amount"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type createRequest struct {
	Amount       Amount         `json:"amount"`
	Confirmation Confirmation   `json:"confirmation"`
	Capture      bool           `json:"capture"`
	Description  string         `json:"description,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type apiError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func NewClient(httpClient *http.Client, baseURL, shopID, secretKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		shopID:     shopID,
		secretKey:  secretKey,
	}
}

func (c *Client) do(ctx context.Context, method, path, idempotenceKey string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotenceKey != "" {
		req.Header.Set("Idempotence-Key", idempotenceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("yookassa %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yookassa %s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Description != "" {
			return fmt.Errorf("yookassa %s %s: %s (%s)", method, path, apiErr.Description, apiErr.Code)
		}
		return fmt.Errorf("yookassa %s %s: status %d", method, path, resp.StatusCode)
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("yookassa %s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// CreatePayment creates a redirect-confirmed, auto-captured payment intent.
// The idempotence key makes retried calls return the same payment.
func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal, currency, returnURL, description, idempotenceKey string, metadata map[string]any) (*Payment, error) {
	req := createRequest{
		Amount: Amount{
			Value:    amount.StringFixed(2),
			Currency: currency,
		},
		Confirmation: Confirmation{
			Type:      "redirect",
			ReturnURL: returnURL,
		},
		Capture:     true,
		Description: description,
		Metadata:    metadata,
	}
	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/payments", idempotenceKey, req, &payment); err != nil {
		return nil, err
	}
	if payment.ID == "" || payment.Status == "" {
		return nil, fmt.Errorf("yookassa: malformed payment object in create response")
	}
	return &payment, nil
}

// GetPayment fetches the current state of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, "", nil, &payment); err != nil {
		return nil, err
	}
	if payment.ID == "" || payment.Status == "" {
		return nil, fmt.Errorf("yookassa: malformed payment object for %s", paymentID)
	}
	return &payment, nil
}
