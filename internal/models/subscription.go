package models

import "time"

// SubscriptionStatus is the billing state of a firm's subscription.
type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

// Subscription tracks a firm's access to the product.
type Subscription struct {
	FirmID      int64              `json:"firm_id"`
	Plan        string             `json:"plan"`
	Status      SubscriptionStatus `json:"status"`
	TrialEndsAt time.Time          `json:"trial_ends_at"`
	PaidUntil   *time.Time         `json:"paid_until,omitempty"`
	GraceDays   int                `json:"grace_days"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// EvaluateStatus computes the effective status at a point in time:
//
//	trialing: never paid, trial window still open
//	active:   paid through now
//	past_due: paid window elapsed but still within the grace period
//	expired:  trial over and never paid, or grace period exhausted
//
// The function is pure; persistence and change events are the caller's job.
func (s *Subscription) EvaluateStatus(now time.Time) SubscriptionStatus {
	if s.PaidUntil == nil {
		if now.Before(s.TrialEndsAt) {
			return SubscriptionTrialing
		}
		return SubscriptionExpired
	}

	if now.Before(*s.PaidUntil) {
		return SubscriptionActive
	}

	graceEnd := s.PaidUntil.AddDate(0, 0, s.GraceDays)
	if s.GraceDays > 0 && now.Before(graceEnd) {
		return SubscriptionPastDue
	}
	return SubscriptionExpired
}

// IsUsable reports whether the firm may keep using the product.
func (s *Subscription) IsUsable(now time.Time) bool {
	switch s.EvaluateStatus(now) {
	case SubscriptionTrialing, SubscriptionActive, SubscriptionPastDue:
		return true
	}
	return false
}
