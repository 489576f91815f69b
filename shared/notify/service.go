package notify

import (
	"context"
	"sync"
	"time"
)

// Config holds configuration for the notification service.
type Config struct {
	// CheckInterval is how often to scan for due work.
	// Default: 15 minutes.
	CheckInterval time.Duration

	// ReminderHoursBefore is how many hours before an event the client
	// reminder goes out. Default: 24 hours.
	ReminderHoursBefore int

	// MaxConcurrentSends limits parallel deliveries. Default: 10.
	MaxConcurrentSends int

	// RetentionDays is how long sent and failed notifications are kept
	// before cleanup. Default: 30.
	RetentionDays int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:       15 * time.Minute,
		ReminderHoursBefore: 24,
		MaxConcurrentSends:  10,
		RetentionDays:       30,
	}
}

// Composer renders a reminder body for an upcoming event.
type Composer interface {
	EventReminder(event UpcomingEvent) string
}

// Service owns the notification queue: it turns upcoming events into
// reminder notifications, dispatches whatever is due and cleans up old rows.
type Service struct {
	config   *Config
	events   EventStore
	repo     Repository
	sender   *Sender
	composer Composer
	metrics  *Metrics
	logger   Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewService creates a new notification service.
func NewService(
	config *Config,
	events EventStore,
	repo Repository,
	sender *Sender,
	composer Composer,
	metrics *Metrics,
	logger Logger,
) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CheckInterval == 0 {
		config.CheckInterval = 15 * time.Minute
	}
	if config.ReminderHoursBefore == 0 {
		config.ReminderHoursBefore = 24
	}
	if config.MaxConcurrentSends == 0 {
		config.MaxConcurrentSends = 10
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 30
	}

	return &Service{
		config:   config,
		events:   events,
		repo:     repo,
		sender:   sender,
		composer: composer,
		metrics:  metrics,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the notification check loop.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.reclaimStale()

	s.wg.Add(1)
	go s.loop()

	if s.logger != nil {
		s.logger.Info("Notification service started",
			"check_interval", s.config.CheckInterval,
			"reminder_hours_before", s.config.ReminderHoursBefore,
		)
	}
}

// reclaimStale resets processing rows left behind by a previous run. Stop
// waits for in-flight sends, so at startup every processing row is an orphan.
func (s *Service) reclaimStale() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reclaimed, err := s.repo.ResetStaleNotifications(ctx, time.Now())
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Failed to reclaim stale notifications", "error", err)
		}
		return
	}
	if reclaimed > 0 && s.logger != nil {
		s.logger.Info("Reclaimed stale notifications", "count", reclaimed)
	}
}

// Stop gracefully stops the notification service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	if s.logger != nil {
		s.logger.Info("Notification service stopped")
	}
}

func (s *Service) loop() {
	defer s.wg.Done()

	// Run immediately on start
	s.runOnce()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Service) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.queueEventReminders(ctx)
	s.dispatchDue(ctx)
	s.cleanup(ctx)

	if s.metrics != nil {
		if pending, err := s.repo.CountPendingNotifications(ctx); err == nil {
			s.metrics.SetQueueSize(pending)
		}
	}
}

// queueEventReminders turns events starting soon into pending reminders.
func (s *Service) queueEventReminders(ctx context.Context) {
	// Look one hour past the reminder window to not miss events between ticks.
	lookAhead := time.Duration(s.config.ReminderHoursBefore+1) * time.Hour

	upcoming, err := s.events.GetUpcomingEvents(ctx, lookAhead)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Failed to get upcoming events", "error", err)
		}
		return
	}

	for _, event := range upcoming {
		if event.ClientPhone == "" {
			continue
		}

		remindAt := event.StartDate.Add(-time.Duration(s.config.ReminderHoursBefore) * time.Hour)
		if time.Now().Before(remindAt) {
			continue
		}

		eventID := event.EventID
		n := &Notification{
			FirmID:      event.FirmID,
			Recipient:   event.ClientPhone,
			EventID:     &eventID,
			Kind:        KindEventReminder,
			Body:        s.composer.EventReminder(event),
			ScheduledAt: remindAt,
			Status:      StatusPending,
		}
		if err := s.repo.CreateNotification(ctx, n); err != nil {
			if s.logger != nil {
				s.logger.Error("Failed to queue event reminder",
					"event_id", event.EventID,
					"error", err,
				)
			}
			continue
		}
		if err := s.events.MarkReminderQueued(ctx, event.EventID); err != nil {
			if s.logger != nil {
				s.logger.Error("Failed to mark reminder queued (reminder was queued)",
					"event_id", event.EventID,
					"error", err,
				)
			}
		}
	}
}

// dispatchDue sends every pending notification whose time has come.
func (s *Service) dispatchDue(ctx context.Context) {
	now := time.Now()
	due, err := s.repo.FindNotifications(ctx, Filter{
		Status:          []Status{StatusPending},
		ScheduledBefore: &now,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Failed to find due notifications", "error", err)
		}
		return
	}
	if len(due) == 0 {
		return
	}

	if s.logger != nil {
		s.logger.Debug("Dispatching due notifications", "count", len(due))
	}

	// Use semaphore to limit concurrent sends
	sem := make(chan struct{}, s.config.MaxConcurrentSends)
	var wg sync.WaitGroup

	for i := range due {
		n := due[i]

		acquired, err := s.repo.TryAcquireNotification(ctx, n.ID)
		if err != nil || !acquired {
			continue
		}

		wg.Add(1)
		sem <- struct{}{} // acquire

		go func(n Notification) {
			defer wg.Done()
			defer func() { <-sem }() // release

			if err := s.sender.SendWithRetry(ctx, &n); err != nil {
				if s.logger != nil {
					s.logger.Error("Failed to send notification",
						"notification_id", n.ID,
						"recipient", n.Recipient,
						"error", err,
					)
				}
			}
		}(n)
	}

	wg.Wait()
}

// cleanup removes old sent and failed notifications.
func (s *Service) cleanup(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	removed, err := s.repo.DeleteNotifications(ctx, Filter{
		Status:       []Status{StatusSent, StatusFailed},
		SentBefore:   &cutoff,
		FailedBefore: &cutoff,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Notification cleanup failed", "error", err)
		}
		return
	}
	if removed > 0 {
		if s.metrics != nil {
			s.metrics.IncCleanedUp(removed)
		}
		if s.logger != nil {
			s.logger.Debug("Cleaned up old notifications", "count", removed)
		}
	}
}

// Queue enqueues a one-off notification (assignment notice, payment
// receipt) for the next dispatch pass.
func (s *Service) Queue(ctx context.Context, n *Notification) error {
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.ScheduledAt.IsZero() {
		n.ScheduledAt = time.Now()
	}
	return s.repo.CreateNotification(ctx, n)
}

// CheckNow triggers an immediate pass (useful for testing).
func (s *Service) CheckNow() {
	s.runOnce()
}
