package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/events"
	"studioflow/internal/models"
)

// fakeStore is an in-memory SubscriptionStore.
type fakeStore struct {
	subs    []models.Subscription
	updates map[int64]models.SubscriptionStatus
	listErr error
}

func (f *fakeStore) ListSubscriptions(context.Context) ([]models.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.subs, nil
}

func (f *fakeStore) UpdateSubscriptionStatus(_ context.Context, firmID int64, status models.SubscriptionStatus) error {
	if f.updates == nil {
		f.updates = make(map[int64]models.SubscriptionStatus)
	}
	f.updates[firmID] = status
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }

func TestRefresherRunNow(t *testing.T) {
	now := time.Now()

	store := &fakeStore{subs: []models.Subscription{
		// Trial elapsed, never paid: trialing -> expired.
		{FirmID: 1, Status: models.SubscriptionTrialing, TrialEndsAt: now.AddDate(0, 0, -2)},
		// Paid window elapsed yesterday, 7 grace days: active -> past_due.
		{FirmID: 2, Status: models.SubscriptionActive, TrialEndsAt: now.AddDate(0, -1, 0),
			PaidUntil: timePtr(now.AddDate(0, 0, -1)), GraceDays: 7},
		// Paid through next month: stays active, no write.
		{FirmID: 3, Status: models.SubscriptionActive, TrialEndsAt: now.AddDate(0, -1, 0),
			PaidUntil: timePtr(now.AddDate(0, 1, 0)), GraceDays: 7},
	}}

	bus := events.NewBus()
	var published []StatusChange
	bus.Subscribe(events.TopicSubscriptionChange, func(e events.Event) error {
		published = append(published, e.Payload.(StatusChange))
		return nil
	})

	refresher := NewRefresher(DefaultRefresherConfig(), store, bus, zerolog.Nop())
	refresher.RunNow(context.Background())

	require.Len(t, store.updates, 2)
	assert.Equal(t, models.SubscriptionExpired, store.updates[1])
	assert.Equal(t, models.SubscriptionPastDue, store.updates[2])
	_, touched := store.updates[3]
	assert.False(t, touched, "an unchanged subscription must not be rewritten")

	require.Len(t, published, 2)
	assert.Equal(t, int64(1), published[0].FirmID)
	assert.Equal(t, models.SubscriptionTrialing, published[0].From)
	assert.Equal(t, models.SubscriptionExpired, published[0].To)
}

func TestRefresherStoreErrorIsNonFatal(t *testing.T) {
	store := &fakeStore{listErr: assert.AnError}
	refresher := NewRefresher(DefaultRefresherConfig(), store, nil, zerolog.Nop())

	// Must not panic or write anything.
	refresher.RunNow(context.Background())
	assert.Empty(t, store.updates)
}

// fakeGateway is an in-memory OrderGateway. Orders start as created and are
// flipped to paid by the test.
type fakeGateway struct {
	orders map[string]*Order
	nextID int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: make(map[string]*Order)}
}

func (g *fakeGateway) CreateOrder(_ context.Context, firmID int64, plan string, amount float64) (*Order, error) {
	g.nextID++
	o := &Order{
		ID: fmt.Sprintf("ord-%d", g.nextID), FirmID: firmID, Plan: plan,
		Amount: amount, Currency: "INR", Status: OrderStatusCreated,
		PaymentURL: "https://pay.example/order",
	}
	g.orders[o.ID] = o
	return o, nil
}

func (g *fakeGateway) GetOrder(_ context.Context, orderID string) (*Order, error) {
	o, ok := g.orders[orderID]
	if !ok {
		return nil, assert.AnError
	}
	clone := *o
	return &clone, nil
}

// fakeRenewalStore is an in-memory RenewalStore for one firm.
type fakeRenewalStore struct {
	sub       *models.Subscription
	orders    map[string]*Order
	extension []int
}

func (f *fakeRenewalStore) GetSubscription(_ context.Context, firmID int64) (*models.Subscription, error) {
	if f.sub == nil || f.sub.FirmID != firmID {
		return nil, assert.AnError
	}
	clone := *f.sub
	return &clone, nil
}

func (f *fakeRenewalStore) ExtendSubscription(_ context.Context, firmID int64, days int) error {
	f.extension = append(f.extension, days)
	f.sub.Status = models.SubscriptionActive
	return nil
}

func (f *fakeRenewalStore) SaveRenewalOrder(_ context.Context, o *Order) error {
	if f.orders == nil {
		f.orders = make(map[string]*Order)
	}
	clone := *o
	f.orders[o.ID] = &clone
	return nil
}

func (f *fakeRenewalStore) GetRenewalOrder(_ context.Context, orderID string) (*Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, assert.AnError
	}
	clone := *o
	return &clone, nil
}

func (f *fakeRenewalStore) MarkRenewalOrderPaid(_ context.Context, orderID string) (bool, error) {
	o := f.orders[orderID]
	if o.Status == OrderStatusPaid {
		return false, nil
	}
	o.Status = OrderStatusPaid
	return true, nil
}

func TestRenewalServiceFlow(t *testing.T) {
	gateway := newFakeGateway()
	store := &fakeRenewalStore{sub: &models.Subscription{
		FirmID: 7, Plan: "monthly", Status: models.SubscriptionTrialing,
		TrialEndsAt: time.Now().AddDate(0, 0, 3), GraceDays: 7,
	}}

	bus := events.NewBus()
	var published []StatusChange
	bus.Subscribe(events.TopicSubscriptionChange, func(e events.Event) error {
		published = append(published, e.Payload.(StatusChange))
		return nil
	})

	svc := NewRenewalService(gateway, store, nil, bus, zerolog.Nop())

	order, err := svc.StartRenewal(context.Background(), 7, "monthly")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCreated, order.Status)
	assert.NotEmpty(t, order.PaymentURL)
	require.Contains(t, store.orders, order.ID)

	// An unpaid order confirms without touching the subscription.
	got, err := svc.ConfirmRenewal(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCreated, got.Status)
	assert.Empty(t, store.extension)

	gateway.orders[order.ID].Status = OrderStatusPaid

	got, err = svc.ConfirmRenewal(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPaid, got.Status)
	require.Equal(t, []int{30}, store.extension)
	assert.Equal(t, models.SubscriptionActive, store.sub.Status)

	require.Len(t, published, 1)
	assert.Equal(t, int64(7), published[0].FirmID)
	assert.Equal(t, models.SubscriptionTrialing, published[0].From)
	assert.Equal(t, models.SubscriptionActive, published[0].To)

	// A replayed confirmation must not buy a second term.
	_, err = svc.ConfirmRenewal(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{30}, store.extension)
	assert.Len(t, published, 1)
}

func TestRenewalServiceUnknownPlan(t *testing.T) {
	svc := NewRenewalService(newFakeGateway(), &fakeRenewalStore{}, nil, nil, zerolog.Nop())

	_, err := svc.StartRenewal(context.Background(), 7, "diamond")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestGatewayClientOrders(t *testing.T) {
	var gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/orders":
			var req createOrderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			json.NewEncoder(w).Encode(Order{
				ID: "ord-1", FirmID: req.FirmID, Plan: req.Plan, Amount: req.Amount,
				Currency: req.Currency, Status: OrderStatusCreated,
				PaymentURL: "https://pay.example/ord-1",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/orders/ord-1":
			json.NewEncoder(w).Encode(Order{ID: "ord-1", Status: OrderStatusPaid})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL, "gw-secret")

	order, err := client.CreateOrder(context.Background(), 7, "standard", 2999)
	require.NoError(t, err)
	assert.Equal(t, "gw-secret", gotAPIKey)
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, int64(7), order.FirmID)
	assert.Equal(t, OrderStatusCreated, order.Status)
	assert.NotEmpty(t, order.PaymentURL)

	order, err = client.GetOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPaid, order.Status)

	_, err = client.GetOrder(context.Background(), "missing")
	assert.Error(t, err)
}
