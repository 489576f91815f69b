package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// BridgeError represents an error from the WhatsApp bridge API.
type BridgeError struct {
	Code       int
	Message    string
	RetryAfter int // seconds to wait before retrying (for 429 errors)
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

// IsBridgeError checks if the error is a BridgeError.
func IsBridgeError(err error) (*BridgeError, bool) {
	var bErr *BridgeError
	if errors.As(err, &bErr) {
		return bErr, true
	}
	return nil, false
}

// SenderConfig holds configuration for the sender.
type SenderConfig struct {
	// RatePerSecond is the sustained outbound message rate.
	RatePerSecond float64
	// Burst is the maximum burst of messages.
	Burst int
	// Retry controls the backoff ladder.
	Retry RetryConfig
}

// DefaultSenderConfig returns the default configuration.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		RatePerSecond: 10.0,
		Burst:         20,
		Retry:         DefaultRetryConfig(),
	}
}

// Sender delivers queued notifications with rate limiting and retries.
type Sender struct {
	notifier    Notifier
	repo        Repository
	limiter     *rate.Limiter
	retryConfig RetryConfig
	metrics     *Metrics
	logger      Logger
}

// NewSender creates a new notification sender.
func NewSender(notifier Notifier, repo Repository, config SenderConfig, metrics *Metrics, logger Logger) *Sender {
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = 20
	}

	return &Sender{
		notifier:    notifier,
		repo:        repo,
		limiter:     rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		retryConfig: config.Retry,
		metrics:     metrics,
		logger:      logger,
	}
}

// SendWithRetry delivers one notification, honoring the rate limit and the
// retry ladder, and records the final state in the repository.
func (s *Sender) SendWithRetry(ctx context.Context, n *Notification) error {
	if !s.limiter.Allow() {
		if s.metrics != nil {
			s.metrics.IncRateLimitWaits()
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	started := time.Now()
	var lastErr error
	maxRetries := s.retryConfig.MaxRetries
	delays := s.retryConfig.RetryDelays

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := s.notifier.Send(ctx, n.Recipient, n.Body)
		if err == nil {
			if s.metrics != nil {
				s.metrics.ObserveSendDuration(time.Since(started).Seconds())
			}
			return s.markAsSent(ctx, n)
		}

		lastErr = err

		if bErr, ok := IsBridgeError(err); ok {
			switch bErr.Code {
			case 429: // bridge is throttling us
				waitTime := time.Duration(bErr.RetryAfter) * time.Second
				if waitTime == 0 {
					waitTime = backoffDelay(delays, attempt)
				}
				s.logger.Info("rate limited by bridge, waiting",
					"retry_after", waitTime,
					"attempt", attempt,
					"notification_id", n.ID)

				select {
				case <-time.After(waitTime):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}

			case 403: // recipient opted out of WhatsApp messages
				s.logger.Info("recipient opted out",
					"recipient", n.Recipient,
					"notification_id", n.ID)
				return s.markAsFailed(ctx, n, "recipient_opt_out")

			case 400: // malformed number or payload, retrying won't help
				s.logger.Error("bad request to bridge",
					"error", err,
					"notification_id", n.ID)
				return s.markAsFailed(ctx, n, "bad_request")
			}
		}

		// For other errors, retry with backoff
		if attempt < maxRetries {
			delay := backoffDelay(delays, attempt)
			if s.metrics != nil {
				s.metrics.IncRetries()
			}
			s.logger.Info("retrying notification send",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay", delay,
				"error", err)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	s.logger.Error("max retries exceeded for notification",
		"notification_id", n.ID,
		"recipient", n.Recipient,
		"error", lastErr)

	return s.markAsFailed(ctx, n, "max_retries_exceeded")
}

// backoffDelay picks the wait for an attempt, holding at the last rung when
// the caller allows more retries than the ladder has steps.
func backoffDelay(delays []time.Duration, attempt int) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	if attempt >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempt]
}

func (s *Sender) markAsSent(ctx context.Context, n *Notification) error {
	now := time.Now()
	n.Status = StatusSent
	n.SentAt = &now
	n.UpdatedAt = now

	if err := s.repo.UpdateNotification(ctx, n); err != nil {
		s.logger.Error("failed to mark notification as sent",
			"notification_id", n.ID,
			"error", err)
		return err
	}

	if s.metrics != nil {
		s.metrics.IncSent("sent", n.Kind)
	}
	s.logger.Info("notification sent",
		"notification_id", n.ID,
		"kind", n.Kind,
		"recipient", n.Recipient)

	return nil
}

func (s *Sender) markAsFailed(ctx context.Context, n *Notification, reason string) error {
	n.Status = StatusFailed
	n.LastError = reason
	n.UpdatedAt = time.Now()

	if err := s.repo.UpdateNotification(ctx, n); err != nil {
		s.logger.Error("failed to mark notification as failed",
			"notification_id", n.ID,
			"error", err)
		return err
	}

	if s.metrics != nil {
		s.metrics.IncSent("failed", n.Kind)
	}
	s.logger.Info("notification marked as failed",
		"notification_id", n.ID,
		"reason", reason)

	return nil
}
