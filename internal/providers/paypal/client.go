package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"donation-api/internal/infra"
)

// ErrMissingCredentials indicates that the client was configured without an app id or secret.
var ErrMissingCredentials = errors.New("paypal: client id and secret are required")

// tokenSlack renews the access token slightly before PayPal expires it.
const tokenSlack = time.Minute

// Options configures the PayPal Orders v2 client.
type Options struct {
	ClientID       string
	ClientSecret   string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the PayPal REST API.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	now          func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// Amount is PayPal's money shape: an ISO code plus a decimal string.
type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Capture is one settled payment inside a purchase unit.
type Capture struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Amount *Amount `json:"amount,omitempty"`
}

// PurchaseUnit is the part of an order that carries the amount and, once captured, the captures.
type PurchaseUnit struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	Amount      *Amount   `json:"amount,omitempty"`
	Payments    *Payments `json:"payments,omitempty"`
}

// Payments lists what was collected for a purchase unit.
type Payments struct {
	Captures []Capture `json:"captures"`
}

// Order is the subset of the Orders v2 resource the adapter reads. Raw holds the full response body.
type Order struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	PurchaseUnits []PurchaseUnit  `json:"purchase_units"`
	Raw           json.RawMessage `json:"-"`
}

// FirstCapture returns the first capture of the order, if any.
func (o *Order) FirstCapture() *Capture {
	for i := range o.PurchaseUnits {
		if p := o.PurchaseUnits[i].Payments; p != nil && len(p.Captures) > 0 {
			return &p.Captures[0]
		}
	}
	return nil
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ErrorDetail is one entry of the details array of a PayPal error.
type ErrorDetail struct {
	Field       string `json:"field,omitempty"`
	Issue       string `json:"issue"`
	Description string `json:"description,omitempty"`
}

// APIError is a non-2xx answer from PayPal.
type APIError struct {
	StatusCode int           `json:"-"`
	Name       string        `json:"name"`
	Message    string        `json:"message"`
	DebugID    string        `json:"debug_id"`
	Details    []ErrorDetail `json:"details"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("paypal: status %d", e.StatusCode)
	if e.Name != "" {
		msg += " " + e.Name
	}
	if len(e.Details) > 0 && e.Details[0].Issue != "" {
		msg += " (" + e.Details[0].Issue + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.DebugID != "" {
		msg += " [debug_id " + e.DebugID + "]"
	}
	return msg
}

// Issue returns the first detail issue code, e.g. ORDER_NOT_APPROVED.
func (e *APIError) Issue() string {
	if len(e.Details) == 0 {
		return ""
	}
	return e.Details[0].Issue
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		now:          time.Now,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// CreateOrder creates a CAPTURE-intent order for a single purchase unit.
func (c *Client) CreateOrder(ctx context.Context, amount Amount) (*Order, error) {
	payload := createOrderRequest{
		Intent:        "CAPTURE",
		PurchaseUnits: []PurchaseUnit{{Amount: &amount}},
	}
	return c.orderCall(ctx, http.MethodPost, "/v2/checkout/orders", payload)
}

// CaptureOrder captures the payment of an order the payer has approved.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	path, err := orderPath(orderID)
	if err != nil {
		return nil, err
	}
	return c.orderCall(ctx, http.MethodPost, path+"/capture", nil)
}

// GetOrder reads an order without changing it.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	path, err := orderPath(orderID)
	if err != nil {
		return nil, err
	}
	return c.orderCall(ctx, http.MethodGet, path, nil)
}

func orderPath(orderID string) (string, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return "", errors.New("paypal: order id is required")
	}
	return "/v2/checkout/orders/" + url.PathEscape(id), nil
}

func (c *Client) orderCall(ctx context.Context, method, path string, payload any) (*Order, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingCredentials
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("paypal: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	raw, status, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.dropToken()
	}
	if status >= 300 {
		return nil, decodeError(status, raw)
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("paypal: decode response: %w", err)
	}
	order.Raw = json.RawMessage(raw)
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("order", order.ID).
		Str("status", order.Status).
		Msg("paypal: order call")
	return &order, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	raw, status, err := c.send(req)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", decodeError(status, raw)
	}
	var decoded tokenResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("paypal: decode token: %w", err)
	}
	if decoded.AccessToken == "" {
		return "", errors.New("paypal: empty access token")
	}
	ttl := time.Duration(decoded.ExpiresIn)*time.Second - tokenSlack
	if ttl < 0 {
		ttl = 0
	}
	c.token = decoded.AccessToken
	c.expires = c.now().Add(ttl)
	c.logger.Debug().Dur("ttl", ttl).Msg("paypal: access token refreshed")
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) send(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("paypal: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("paypal: read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func decodeError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(raw, apiErr); err != nil || (apiErr.Name == "" && apiErr.Message == "") {
		// The OAuth endpoint answers with error/error_description instead.
		var oauth struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.Unmarshal(raw, &oauth) == nil && oauth.Error != "" {
			apiErr.Name, apiErr.Message = oauth.Error, oauth.Description
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	return apiErr
}
