package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/models"
	"studioflow/shared/notify"
)

func TestSend(t *testing.T) {
	var gotAPIKey, gotPath string
	var gotBody sendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"message_id": "m-1"})
	}))
	defer server.Close()

	client := NewBridgeClient(server.URL, "secret", "studio-1")
	err := client.Send(context.Background(), "+919900112233", "hello")
	require.NoError(t, err)

	assert.Equal(t, "secret", gotAPIKey)
	assert.Equal(t, "/api/v1/messages", gotPath)
	assert.Equal(t, "+919900112233", gotBody.Recipient)
	assert.Equal(t, "hello", gotBody.Body)
	assert.Equal(t, "studio-1", gotBody.SenderID)
}

func TestSendBridgeErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		retryAfter  string
		body        string
		wantCode    int
		wantRetry   int
		wantMessage string
	}{
		{
			name:       "throttled with retry-after",
			status:     http.StatusTooManyRequests,
			retryAfter: "7",
			body:       `{"error":"rate limited"}`,
			wantCode:   429, wantRetry: 7, wantMessage: "rate limited",
		},
		{
			name:     "opt out",
			status:   http.StatusForbidden,
			body:     `{"error":"recipient opted out"}`,
			wantCode: 403, wantMessage: "recipient opted out",
		},
		{
			name:     "plain body falls back to status text",
			status:   http.StatusBadGateway,
			body:     `gateway exploded`,
			wantCode: 502, wantMessage: "Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewBridgeClient(server.URL, "", "")
			err := client.Send(context.Background(), "+91000", "x")
			require.Error(t, err)

			bErr, ok := notify.IsBridgeError(err)
			require.True(t, ok, "error must be a BridgeError")
			assert.Equal(t, tt.wantCode, bErr.Code)
			assert.Equal(t, tt.wantRetry, bErr.RetryAfter)
			assert.Equal(t, tt.wantMessage, bErr.Message)
		})
	}
}

func TestGetContactStatusCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(ContactStatus{Phone: "+91111", Reachable: true})
	}))
	defer server.Close()

	client := NewBridgeClient(server.URL, "", "")
	client.UseRedisCache(redisClient, time.Minute)

	for i := 0; i < 3; i++ {
		status, err := client.GetContactStatus(context.Background(), "+91111")
		require.NoError(t, err)
		assert.True(t, status.Reachable)
	}
	assert.Equal(t, 1, hits, "repeat lookups must come from cache")

	// Expired cache falls through to the bridge again.
	mr.FastForward(2 * time.Minute)
	_, err := client.GetContactStatus(context.Background(), "+91111")
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewBridgeClient(server.URL, "", "")
	assert.NoError(t, client.HealthCheck(context.Background()))

	client = NewBridgeClient(server.URL+"/missing", "", "")
	assert.Error(t, client.HealthCheck(context.Background()))
}

func TestComposerTemplates(t *testing.T) {
	composer := Composer{StudioName: "Lens & Light"}

	reminder := composer.EventReminder(notify.UpcomingEvent{
		Title:      "Mehta Wedding",
		Venue:      "Taj Banquet Hall",
		StartDate:  time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
		ClientName: "Rohan Mehta",
	})
	assert.Contains(t, reminder, "Lens & Light")
	assert.Contains(t, reminder, "Hi Rohan!")
	assert.Contains(t, reminder, "Mehta Wedding")
	assert.Contains(t, reminder, "Friday, 20 November 2026")
	assert.Contains(t, reminder, "Taj Banquet Hall")

	notice := composer.AssignmentNotice("Asha Rao", "Mehta Wedding", models.RoleDronePilot,
		models.NewDateRange(
			time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 11, 21, 0, 0, 0, 0, time.UTC),
		))
	assert.Contains(t, notice, "Hi Asha")
	assert.Contains(t, notice, "drone pilot")
	assert.Contains(t, notice, "2026-11-20 – 2026-11-21")

	receipt := composer.PaymentReceipt("Rohan Mehta", "Mehta Wedding", 50000)
	assert.Contains(t, receipt, "₹50000.00")
	assert.Contains(t, receipt, "Thank you")
}
