// Package billing handles firm subscriptions: collecting payment through an
// external gateway and keeping each firm's subscription status current.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Order statuses reported by the gateway.
const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
	OrderStatusExpired = "expired"
)

// Order is a payment order at the gateway.
type Order struct {
	ID         string    `json:"id"`
	FirmID     int64     `json:"firm_id"`
	Plan       string    `json:"plan"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	PaymentURL string    `json:"payment_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// GatewayClient is a simple HTTP client to call the payment gateway API.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGatewayClient constructs a client with baseURL and API key.
func NewGatewayClient(baseURL, apiKey string) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type createOrderRequest struct {
	FirmID   int64   `json:"firm_id"`
	Plan     string  `json:"plan"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CreateOrder opens a payment order for a firm's subscription renewal and
// returns the order including the hosted payment URL for the client.
func (c *GatewayClient) CreateOrder(ctx context.Context, firmID int64, plan string, amount float64) (*Order, error) {
	endpoint := fmt.Sprintf("%s/api/v1/orders", c.baseURL)
	body := createOrderRequest{FirmID: firmID, Plan: plan, Amount: amount, Currency: "INR"}

	var order Order
	if err := c.doPost(ctx, endpoint, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches the current state of an order.
func (c *GatewayClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	endpoint := fmt.Sprintf("%s/api/v1/orders/%s", c.baseURL, url.PathEscape(orderID))

	var order Order
	if err := c.doGet(ctx, endpoint, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// HealthCheck checks if the gateway is available.
func (c *GatewayClient) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/healthz", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *GatewayClient) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *GatewayClient) doPost(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *GatewayClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func (c *GatewayClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
