// Package whatsapp is the HTTP client for the WhatsApp bridge, the external
// service that actually delivers messages. It implements notify.Notifier.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"studioflow/shared/notify"
)

// BridgeClient is a simple HTTP client to call the WhatsApp bridge API.
type BridgeClient struct {
	baseURL    string
	apiKey     string
	senderID   string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewBridgeClient constructs a client with baseURL, API key and sender id.
func NewBridgeClient(baseURL, apiKey, senderID string) *BridgeClient {
	return &BridgeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		senderID:   senderID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *BridgeClient) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

type sendMessageRequest struct {
	SenderID  string `json:"sender_id,omitempty"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

type sendMessageResponse struct {
	MessageID string `json:"message_id"`
}

// Send delivers one message. Non-2xx responses come back as
// *notify.BridgeError so the sender can tell throttling from hard failures.
func (c *BridgeClient) Send(ctx context.Context, recipient, body string) error {
	endpoint := fmt.Sprintf("%s/api/v1/messages", c.baseURL)
	payload := sendMessageRequest{SenderID: c.senderID, Recipient: recipient, Body: body}

	var resp sendMessageResponse
	return c.doPost(ctx, endpoint, payload, &resp)
}

// ContactStatus reports whether a phone number is reachable on WhatsApp.
type ContactStatus struct {
	Phone     string `json:"phone"`
	Reachable bool   `json:"reachable"`
}

// GetContactStatus checks reachability of a recipient. Results are cached
// because the bridge rate-limits this lookup aggressively.
func (c *BridgeClient) GetContactStatus(ctx context.Context, phone string) (*ContactStatus, error) {
	endpoint := fmt.Sprintf("%s/api/v1/contacts/%s", c.baseURL, url.PathEscape(phone))
	cacheKey := fmt.Sprintf("whatsapp:contact:%s", phone)
	var status ContactStatus

	if c.readCache(ctx, cacheKey, &status) {
		return &status, nil
	}

	if err := c.doGet(ctx, endpoint, &status); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, status)
	return &status, nil
}

// HealthCheck checks if the bridge is available.
func (c *BridgeClient) HealthCheck(ctx context.Context) error {
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

func (c *BridgeClient) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *BridgeClient) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *BridgeClient) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *BridgeClient) doPost(ctx context.Context, endpoint string, body, out any) error {
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

func (c *BridgeClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return bridgeError(resp)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func (c *BridgeClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}

// bridgeError builds a typed error from a non-2xx response, pulling the
// message from the body and Retry-After from the header when present.
func bridgeError(resp *http.Response) *notify.BridgeError {
	bErr := &notify.BridgeError{Code: resp.StatusCode}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			bErr.RetryAfter = seconds
		}
	}

	var body struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && json.Unmarshal(data, &body) == nil && body.Error != "" {
		bErr.Message = body.Error
	} else {
		bErr.Message = http.StatusText(resp.StatusCode)
	}
	return bErr
}
