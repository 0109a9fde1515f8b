package chapa

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Chapa payment gateway. All requests carry the secret
// key as a bearer token and respect the context deadline.
type Client struct {
	URL           string
	SecretKey     string
	WebhookSecret string
	HTTP          *http.Client
}

func New(url, secretKey, webhookSecret string, timeout time.Duration) *Client {
	return &Client{
		URL:           url,
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		HTTP:          &http.Client{Timeout: timeout},
	}
}

type InitializeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
}

type InitializeResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`

	// Raw is the unparsed gateway body, persisted for diagnostics.
	Raw json.RawMessage `json:"-"`
}

type VerifyResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    struct {
		TxRef     string  `json:"tx_ref"`
		Reference string  `json:"reference"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
		Status    string  `json:"status"`
	} `json:"data"`
}

// GatewayError is returned when Chapa answers with a non-2xx status. Body
// carries the gateway diagnostic payload verbatim.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("chapa responded %d: %s", e.StatusCode, e.Body)
}

// Initialize creates a hosted checkout for the transaction and returns the
// URL the buyer must be redirected to.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error) {
	var out InitializeResponse

	j, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("marshaling initialize request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/v1/transaction/initialize", bytes.NewReader(j))
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding initialize response: %w", err)
	}
	out.Raw = raw

	if out.Status != "success" || out.Data.CheckoutURL == "" {
		return out, &GatewayError{StatusCode: http.StatusOK, Body: string(raw)}
	}

	return out, nil
}

// Verify asks the gateway for the authoritative state of a transaction.
// Payment handlers must call this before marking anything paid.
func (c *Client) Verify(ctx context.Context, txRef string) (VerifyResponse, error) {
	var out VerifyResponse

	raw, err := c.do(ctx, http.MethodGet, "/v1/transaction/verify/"+txRef, nil)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding verify response: %w", err)
	}

	return out, nil
}

// Paid reports whether a verify response describes a settled transaction.
func (v VerifyResponse) Paid() bool {
	return v.Status == "success" && v.Data.Status == "success"
}

// VerifySignature checks the webhook HMAC-SHA256 signature over the raw
// event body against the configured webhook secret.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c.WebhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gateway response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}
