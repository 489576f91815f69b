package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"studioflow/internal/events"
	"studioflow/internal/metrics"
	"studioflow/internal/models"
)

// ErrUnknownPlan is returned for a renewal request naming a plan that is not
// in the catalog.
var ErrUnknownPlan = errors.New("unknown plan")

// Plan is a purchasable subscription term.
type Plan struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Days   int     `json:"days"`
}

// DefaultPlans is the built-in plan catalog, priced in INR.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		"monthly": {Name: "monthly", Amount: 999, Days: 30},
		"yearly":  {Name: "yearly", Amount: 9990, Days: 365},
	}
}

// OrderGateway is the slice of the payment gateway the renewal flow needs.
// *GatewayClient satisfies it.
type OrderGateway interface {
	CreateOrder(ctx context.Context, firmID int64, plan string, amount float64) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

// RenewalStore persists renewal orders and the paid window they buy.
// *database.DB satisfies it.
type RenewalStore interface {
	GetSubscription(ctx context.Context, firmID int64) (*models.Subscription, error)
	ExtendSubscription(ctx context.Context, firmID int64, days int) error
	SaveRenewalOrder(ctx context.Context, o *Order) error
	GetRenewalOrder(ctx context.Context, orderID string) (*Order, error)
	MarkRenewalOrderPaid(ctx context.Context, orderID string) (bool, error)
}

// RenewalService runs the subscription renewal flow: open an order at the
// gateway, then extend the firm's paid window when the order comes back paid.
type RenewalService struct {
	gateway OrderGateway
	store   RenewalStore
	plans   map[string]Plan
	bus     *events.Bus
	logger  zerolog.Logger
}

// NewRenewalService creates a renewal service. A nil plan catalog gets the
// defaults.
func NewRenewalService(gateway OrderGateway, store RenewalStore, plans map[string]Plan, bus *events.Bus, logger zerolog.Logger) *RenewalService {
	if plans == nil {
		plans = DefaultPlans()
	}
	return &RenewalService{
		gateway: gateway,
		store:   store,
		plans:   plans,
		bus:     bus,
		logger:  logger.With().Str("component", "billing_renewal").Logger(),
	}
}

// Plan looks up a catalog plan by name.
func (s *RenewalService) Plan(name string) (Plan, bool) {
	p, ok := s.plans[name]
	return p, ok
}

// StartRenewal opens a gateway order for the firm's next term and records it.
// The returned order carries the hosted payment URL for the client.
func (s *RenewalService) StartRenewal(ctx context.Context, firmID int64, planName string) (*Order, error) {
	plan, ok := s.plans[planName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, planName)
	}

	// The firm must already have a subscription row; renewal never creates one.
	if _, err := s.store.GetSubscription(ctx, firmID); err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, firmID, plan.Name, plan.Amount)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := s.store.SaveRenewalOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("firm_id", firmID).
		Str("plan", plan.Name).
		Str("order_id", order.ID).
		Msg("Renewal order opened")
	return order, nil
}

// ConfirmRenewal re-reads the order at the gateway and, the first time it is
// seen paid, extends the firm's subscription by the plan's term.
func (s *RenewalService) ConfirmRenewal(ctx context.Context, orderID string) (*Order, error) {
	stored, err := s.store.GetRenewalOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	// The stored row is the authority on who the order belongs to.
	order.FirmID = stored.FirmID
	order.Plan = stored.Plan

	if order.Status != OrderStatusPaid {
		if order.Status != stored.Status {
			if err := s.store.SaveRenewalOrder(ctx, order); err != nil {
				return nil, err
			}
		}
		return order, nil
	}

	first, err := s.store.MarkRenewalOrderPaid(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !first {
		return order, nil
	}

	plan, ok := s.plans[stored.Plan]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, stored.Plan)
	}

	sub, err := s.store.GetSubscription(ctx, stored.FirmID)
	if err != nil {
		return nil, err
	}
	if err := s.store.ExtendSubscription(ctx, stored.FirmID, plan.Days); err != nil {
		return nil, fmt.Errorf("extend subscription: %w", err)
	}

	metrics.IncSubscriptionChange(string(models.SubscriptionActive))
	s.logger.Info().
		Int64("firm_id", stored.FirmID).
		Str("plan", plan.Name).
		Int("days", plan.Days).
		Str("order_id", orderID).
		Msg("Subscription renewed")

	if s.bus != nil && sub.Status != models.SubscriptionActive {
		s.bus.Publish(events.TopicSubscriptionChange, StatusChange{
			FirmID: stored.FirmID,
			From:   sub.Status,
			To:     models.SubscriptionActive,
		})
	}
	return order, nil
}
