// Package notify delivers WhatsApp notifications to clients and crew:
// event reminders, assignment notices and payment receipts. Delivery is
// queue-backed with rate limiting and retries; the WhatsApp bridge itself
// is an external HTTP collaborator behind the Notifier interface.
package notify

import (
	"context"
	"time"
)

// Kind defines the type of notification.
type Kind string

const (
	KindEventReminder    Kind = "event_reminder"
	KindAssignmentNotice Kind = "assignment_notice"
	KindPaymentReceipt   Kind = "payment_receipt"
)

// Status defines the delivery state of a notification.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Notification is one queued outbound message.
type Notification struct {
	ID          int64
	FirmID      int64
	Recipient   string // phone number in international format
	PersonID    *int64
	EventID     *int64
	Kind        Kind
	Body        string
	ScheduledAt time.Time
	SentAt      *time.Time
	Status      Status
	RetryCount  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter defines criteria for querying notifications.
type Filter struct {
	Status          []Status
	ScheduledBefore *time.Time
	SentBefore      *time.Time
	FailedBefore    *time.Time
	FirmID          *int64
	EventID         *int64
	Kind            *Kind
}

// Repository provides access to the notification queue.
type Repository interface {
	// CreateNotification enqueues a notification. A duplicate of an
	// existing (firm, event, person, kind) tuple is silently ignored;
	// payment receipts are exempt and always enqueue.
	CreateNotification(ctx context.Context, n *Notification) error

	// UpdateNotification updates an existing notification.
	UpdateNotification(ctx context.Context, n *Notification) error

	// FindNotifications returns notifications matching the filter.
	FindNotifications(ctx context.Context, filter Filter) ([]Notification, error)

	// TryAcquireNotification atomically acquires a pending notification
	// for processing. Returns false if it is already being processed.
	TryAcquireNotification(ctx context.Context, id int64) (bool, error)

	// DeleteNotifications deletes notifications matching the filter and
	// returns the number removed.
	DeleteNotifications(ctx context.Context, filter Filter) (int64, error)

	// CountPendingNotifications returns the count of pending notifications.
	CountPendingNotifications(ctx context.Context) (int64, error)

	// ResetStaleNotifications flips processing rows last touched before the
	// cutoff back to pending, reclaiming sends orphaned by a crash.
	ResetStaleNotifications(ctx context.Context, cutoff time.Time) (int64, error)
}

// UpcomingEvent is the slice of an event the reminder builder needs.
type UpcomingEvent struct {
	EventID     int64
	FirmID      int64
	Title       string
	Venue       string
	StartDate   time.Time
	ClientName  string
	ClientPhone string
}

// EventStore provides access to events for reminder scheduling.
type EventStore interface {
	// GetUpcomingEvents returns confirmed events starting within the given
	// duration whose reminder has not been queued yet.
	GetUpcomingEvents(ctx context.Context, within time.Duration) ([]UpcomingEvent, error)

	// MarkReminderQueued marks an event so its reminder is queued once.
	MarkReminderQueued(ctx context.Context, eventID int64) error
}

// Notifier sends a message to a recipient over the bridge.
type Notifier interface {
	Send(ctx context.Context, recipient, body string) error
}

// Logger interface for logging.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
}
