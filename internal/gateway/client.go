// Package gateway is a thin adapter around the payment gateway's HTTP API.
// It translates domain intents into gateway calls and verifies the signature
// on asynchronous event deliveries. The gateway itself is an external
// collaborator; only the wire contract lives here.
package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PaymentIntent is the gateway's representation of an authorized-but-not-yet
// or already captured payment.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	LatestCharge string            `json:"latest_charge"`
	Metadata     map[string]string `json:"metadata"`
}

// BalanceTransaction carries the gateway's own fee for a charge.
type BalanceTransaction struct {
	ID  string `json:"id"`
	Fee int64  `json:"fee"`
	Net int64  `json:"net"`
}

// Charge is the gateway's capture record.
type Charge struct {
	ID                 string              `json:"id"`
	PaymentIntent      string              `json:"payment_intent"`
	BalanceTransaction *BalanceTransaction `json:"balance_transaction"`
}

// PaymentIntentRequest is the domain-side input for creating an intent.
type PaymentIntentRequest struct {
	AmountCents         int64
	Currency            string
	StatementDescriptor string
	Metadata            map[string]string
}

// Client talks to the payment gateway's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a gateway client with a bounded request timeout.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding gateway request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiErrorBody
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gateway error (%d %s): %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return fmt.Errorf("gateway error: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding gateway response: %w", err)
		}
	}
	return nil
}

// CreatePaymentIntent asks the gateway to open a payment for the given amount.
func (c *Client) CreatePaymentIntent(req PaymentIntentRequest) (*PaymentIntent, error) {
	payload := map[string]interface{}{
		"amount":               req.AmountCents,
		"currency":             req.Currency,
		"statement_descriptor": req.StatementDescriptor,
		"metadata":             req.Metadata,
		"automatic_payment_methods": map[string]bool{
			"enabled": true,
		},
	}
	intent := &PaymentIntent{}
	if err := c.do(http.MethodPost, "/v1/payment_intents", payload, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// GetPaymentIntent retrieves an intent by its gateway identifier.
func (c *Client) GetPaymentIntent(paymentIntentID string) (*PaymentIntent, error) {
	intent := &PaymentIntent{}
	if err := c.do(http.MethodGet, "/v1/payment_intents/"+paymentIntentID, nil, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// GetChargeFee looks up the gateway's own fee for a charge. Lookup failures
// degrade to a zero fee rather than blocking reconciliation; the fee can be
// backfilled manually from gateway reports.
func (c *Client) GetChargeFee(chargeID string) int64 {
	charge := &Charge{}
	if err := c.do(http.MethodGet, "/v1/charges/"+chargeID+"?expand=balance_transaction", nil, charge); err != nil {
		return 0
	}
	if charge.BalanceTransaction == nil {
		return 0
	}
	return charge.BalanceTransaction.Fee
}
