package billing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"studioflow/internal/events"
	"studioflow/internal/metrics"
	"studioflow/internal/models"
)

// SubscriptionStore is the storage surface the refresher needs.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context) ([]models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, firmID int64, status models.SubscriptionStatus) error
}

// RefresherConfig holds configuration for the subscription refresher.
type RefresherConfig struct {
	// Location for scheduling (billing days roll over at local midnight).
	Location *time.Location
	// DailyHour is the hour (0-23) when statuses are recomputed.
	DailyHour int
	// CheckInterval is how often to check if it's time to run.
	CheckInterval time.Duration
}

// DefaultRefresherConfig returns the default refresher configuration.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Location:      time.UTC,
		DailyHour:     1,
		CheckInterval: time.Minute,
	}
}

// StatusChange is the payload published on subscription transitions.
type StatusChange struct {
	FirmID int64
	From   models.SubscriptionStatus
	To     models.SubscriptionStatus
}

// Refresher recomputes every firm's subscription status once a day: trials
// run out, grace periods elapse and paid windows expire without any payment
// arriving to trigger a write.
type Refresher struct {
	config RefresherConfig
	store  SubscriptionStore
	bus    *events.Bus
	logger zerolog.Logger

	mu         sync.Mutex
	lastRunDay string // YYYY-MM-DD of last run
	running    bool
	stopCh     chan struct{}
}

// NewRefresher creates a subscription status refresher.
func NewRefresher(config RefresherConfig, store SubscriptionStore, bus *events.Bus, logger zerolog.Logger) *Refresher {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}

	return &Refresher{
		config: config,
		store:  store,
		bus:    bus,
		logger: logger.With().Str("component", "billing_refresher").Logger(),
		stopCh: make(chan struct{}),
	}
}

// Start begins the refresher loop.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info().
		Int("daily_hour", r.config.DailyHour).
		Str("location", r.config.Location.String()).
		Msg("Subscription refresher started")

	ticker := time.NewTicker(r.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Subscription refresher stopped by context")
			return
		case <-r.stopCh:
			r.logger.Info().Msg("Subscription refresher stopped")
			return
		case <-ticker.C:
			r.checkAndRun(ctx)
		}
	}
}

// Stop stops the refresher.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.running {
		r.running = false
		close(r.stopCh)
	}
	r.mu.Unlock()
}

// checkAndRun runs once per local day at the configured hour.
func (r *Refresher) checkAndRun(ctx context.Context) {
	now := time.Now().In(r.config.Location)
	today := now.Format("2006-01-02")

	r.mu.Lock()
	alreadyRan := r.lastRunDay == today
	r.mu.Unlock()

	if alreadyRan || now.Hour() != r.config.DailyHour {
		return
	}

	r.mu.Lock()
	r.lastRunDay = today
	r.mu.Unlock()

	r.RunNow(ctx)
}

// RunNow recomputes all subscription statuses immediately.
func (r *Refresher) RunNow(ctx context.Context) {
	start := time.Now()

	subs, err := r.store.ListSubscriptions(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list subscriptions")
		return
	}

	var changed int
	for i := range subs {
		select {
		case <-ctx.Done():
			r.logger.Info().Int("processed", i).Msg("Subscription refresh interrupted")
			return
		default:
		}

		sub := &subs[i]
		effective := sub.EvaluateStatus(time.Now())
		if effective == sub.Status {
			continue
		}

		if err := r.store.UpdateSubscriptionStatus(ctx, sub.FirmID, effective); err != nil {
			r.logger.Error().Err(err).
				Int64("firm_id", sub.FirmID).
				Msg("Failed to update subscription status")
			continue
		}

		changed++
		metrics.IncSubscriptionChange(string(effective))
		r.logger.Info().
			Int64("firm_id", sub.FirmID).
			Str("from", string(sub.Status)).
			Str("to", string(effective)).
			Msg("Subscription status changed")

		if r.bus != nil {
			r.bus.Publish(events.TopicSubscriptionChange, StatusChange{
				FirmID: sub.FirmID,
				From:   sub.Status,
				To:     effective,
			})
		}
	}

	r.logger.Info().
		Int("total", len(subs)).
		Int("changed", changed).
		Dur("duration", time.Since(start)).
		Msg("Subscription refresh completed")
}

// IsRunning returns whether the refresher loop is active.
func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
