package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/and161185/cacti-shop/internal/errs"
	"github.com/and161185/cacti-shop/internal/gateway"
	"github.com/and161185/cacti-shop/internal/model"
)

type fakeOrders struct {
	createID  string
	createErr error

	createInToken  string
	createInUser   string
	createInItems  []model.CartLine
	createInAmount float64

	listOut []model.Order
	listErr error
}

var _ gateway.Orders = (*fakeOrders)(nil)

func (f *fakeOrders) Place(_ context.Context, token, userID string, items []model.CartLine, amount float64, _ time.Time) (string, error) {
	f.createInToken, f.createInUser = token, userID
	f.createInItems = append([]model.CartLine(nil), items...)
	f.createInAmount = amount
	return f.createID, f.createErr
}
func (f *fakeOrders) ListForUser(_ context.Context, _, _ string) ([]model.Order, error) {
	return append([]model.Order(nil), f.listOut...), f.listErr
}

type fakePush struct {
	mu    sync.Mutex
	sends []string // recipient tokens
	err   error
}

var _ gateway.Push = (*fakePush)(nil)

func (f *fakePush) Send(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, to)
	return f.err
}

func (f *fakePush) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

// authedSession returns a manager already holding a long-lived session.
func authedSession(t *testing.T) *SessionManager {
	t.Helper()
	m := NewSessionManager(verifiedIdentity(time.Hour), newFakeStore(), nil)
	if err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return m
}

func TestSubmit_NotAuthenticated(t *testing.T) {
	t.Parallel()
	m := NewSessionManager(&fakeIdentity{}, newFakeStore(), nil)
	o := NewOrderOrchestrator(&fakeOrders{}, &fakePush{}, NewCartAggregator(), m, nil)

	_, err := o.Submit(context.Background())
	if !errors.Is(err, errs.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
}

func TestSubmit_GatewayFailureLeavesCartIntact(t *testing.T) {
	t.Parallel()
	cart := NewCartAggregator()
	_ = cart.AddItem(model.Product{ID: "p1", Title: "Aloe", Price: 10}, 2)
	o := NewOrderOrchestrator(&fakeOrders{createErr: errs.ErrNetwork}, &fakePush{}, cart, authedSession(t), nil)

	_, err := o.Submit(context.Background())
	if !errors.Is(err, errs.ErrNetwork) {
		t.Fatalf("want ErrNetwork, got %v", err)
	}
	if got := cart.Snapshot(); len(got.Lines) != 1 || got.TotalItems != 2 {
		t.Fatalf("cart must be untouched on failure: %+v", got)
	}
	if len(o.Orders()) != 0 {
		t.Fatalf("no order must be recorded on failure")
	}
}

func TestSubmit_SuccessRecordsOrderAndClearsCart(t *testing.T) {
	t.Parallel()
	cart := NewCartAggregator()
	_ = cart.AddItem(model.Product{ID: "p1", Title: "Aloe", Price: 10}, 2)
	_ = cart.AddItem(model.Product{ID: "p2", Title: "Saguaro", Price: 5.5}, 1)
	ordersGW := &fakeOrders{createID: "order-1"}
	o := NewOrderOrchestrator(ordersGW, &fakePush{}, cart, authedSession(t), nil)

	order, err := o.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if order.ID != "order-1" || order.Amount != 25.5 || len(order.Items) != 2 {
		t.Fatalf("unexpected order: %+v", order)
	}
	if ordersGW.createInAmount != 25.5 || ordersGW.createInUser != "u1" || ordersGW.createInToken != "tok" {
		t.Fatalf("unexpected gateway call: %+v", ordersGW)
	}
	if got := cart.Snapshot(); len(got.Lines) != 0 {
		t.Fatalf("cart must be cleared on success: %+v", got)
	}
	placed := o.Orders()
	if len(placed) != 1 || placed[0].ID != "order-1" {
		t.Fatalf("exactly one order must be recorded: %+v", placed)
	}
}

func TestSubmit_EmptyCartProducesZeroAmountOrder(t *testing.T) {
	t.Parallel()
	o := NewOrderOrchestrator(&fakeOrders{createID: "order-0"}, &fakePush{}, NewCartAggregator(), authedSession(t), nil)

	order, err := o.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if order.Amount != 0 || len(order.Items) != 0 {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestSubmit_NotifiesPerLineWithToken(t *testing.T) {
	t.Parallel()
	cart := NewCartAggregator()
	_ = cart.AddItem(model.Product{ID: "p1", Title: "Aloe", Price: 10, OwnerPushToken: "tok-1"}, 2)
	_ = cart.AddItem(model.Product{ID: "p2", Title: "Saguaro", Price: 5, OwnerPushToken: "tok-2"}, 1)
	_ = cart.AddItem(model.Product{ID: "p3", Title: "Opuntia", Price: 3}, 1) // no token
	push := &fakePush{}
	o := NewOrderOrchestrator(&fakeOrders{createID: "order-1"}, push, cart, authedSession(t), nil)

	if _, err := o.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.notifyWG.Wait()

	sent := push.sent()
	if len(sent) != 2 {
		t.Fatalf("want 2 dispatches, got %v", sent)
	}
	seen := map[string]bool{}
	for _, to := range sent {
		seen[to] = true
	}
	if !seen["tok-1"] || !seen["tok-2"] {
		t.Fatalf("wrong recipients: %v", sent)
	}
}

func TestSubmit_PushFailuresDoNotAffectOrder(t *testing.T) {
	t.Parallel()
	cart := NewCartAggregator()
	_ = cart.AddItem(model.Product{ID: "p1", Title: "Aloe", Price: 10, OwnerPushToken: "tok-1"}, 1)
	push := &fakePush{err: errs.ErrNetwork}
	o := NewOrderOrchestrator(&fakeOrders{createID: "order-1"}, push, cart, authedSession(t), nil)

	order, err := o.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit must not surface push failures: %v", err)
	}
	o.notifyWG.Wait()

	if order.Amount != 10 {
		t.Fatalf("unexpected order: %+v", order)
	}
	if got := cart.Snapshot(); len(got.Lines) != 0 {
		t.Fatalf("cart must stay cleared despite push failure")
	}
	if placed := o.Orders(); len(placed) != 1 {
		t.Fatalf("order must stay recorded despite push failure")
	}
}

func TestFetchAll_RestoresHistory(t *testing.T) {
	t.Parallel()
	history := []model.Order{{ID: "o1", Amount: 10}, {ID: "o2", Amount: 20}}
	o := NewOrderOrchestrator(&fakeOrders{listOut: history}, &fakePush{}, NewCartAggregator(), authedSession(t), nil)

	if err := o.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	got := o.Orders()
	if len(got) != 2 || got[0].ID != "o1" || got[1].ID != "o2" {
		t.Fatalf("unexpected history: %+v", got)
	}
}

func TestFetchAll_RequiresSession(t *testing.T) {
	t.Parallel()
	m := NewSessionManager(&fakeIdentity{}, newFakeStore(), nil)
	o := NewOrderOrchestrator(&fakeOrders{}, &fakePush{}, NewCartAggregator(), m, nil)

	if err := o.FetchAll(context.Background()); !errors.Is(err, errs.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
}
