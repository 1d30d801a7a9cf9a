package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/cacti-shop/internal/errs"
	"github.com/and161185/cacti-shop/internal/gateway"
	"github.com/and161185/cacti-shop/internal/model"
)

// notifyTimeout bounds each best-effort push dispatch.
const notifyTimeout = 10 * time.Second

// OrderOrchestrator persists orders against the backend, keeps the local
// order history and fans out best-effort notifications. Order durability is
// decoupled from the notification side channel: a failed dispatch never
// affects a placed order.
type OrderOrchestrator struct {
	orders  gateway.Orders
	push    gateway.Push
	cart    *CartAggregator
	session *SessionManager
	log     *zap.Logger

	mu     sync.Mutex
	placed []model.Order

	notifyWG sync.WaitGroup
}

// NewOrderOrchestrator constructs an order orchestrator.
func NewOrderOrchestrator(orders gateway.Orders, push gateway.Push, cart *CartAggregator, session *SessionManager, log *zap.Logger) *OrderOrchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderOrchestrator{orders: orders, push: push, cart: cart, session: session, log: log}
}

// Orders returns a snapshot of the locally known order history.
func (o *OrderOrchestrator) Orders() []model.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.Order(nil), o.placed...)
}

// Submit places an order for the current cart contents. On backend failure
// the cart is left untouched and no order is recorded. On success the order
// is recorded and the cart cleared before Submit returns, then one push
// dispatch per line with a recipient token is started fire-and-forget.
func (o *OrderOrchestrator) Submit(ctx context.Context) (model.Order, error) {
	sess := o.session.Current()
	if !sess.Active() {
		return model.Order{}, errs.ErrNotAuthenticated
	}

	cart := o.cart.Snapshot()
	placedAt := time.Now()
	id, err := o.orders.Place(ctx, sess.Token, sess.UserID, cart.Lines, cart.TotalAmount, placedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}

	order := model.Order{
		ID:       id,
		Items:    cart.Lines,
		Amount:   cart.TotalAmount,
		PlacedAt: placedAt,
	}
	o.mu.Lock()
	o.placed = append(o.placed, order)
	o.mu.Unlock()
	o.cart.Clear()

	o.log.Info("order placed",
		zap.String("orderId", order.ID),
		zap.Float64("amount", order.Amount),
		zap.Int("lines", len(order.Items)),
	)
	o.dispatchNotifications(order)
	return order, nil
}

// FetchAll restores the current user's order history from the backend.
func (o *OrderOrchestrator) FetchAll(ctx context.Context) error {
	sess := o.session.Current()
	if !sess.Active() {
		return errs.ErrNotAuthenticated
	}
	orders, err := o.orders.ListForUser(ctx, sess.Token, sess.UserID)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}

	o.mu.Lock()
	o.placed = orders
	o.mu.Unlock()
	return nil
}

// dispatchNotifications starts one detached dispatch per line that carries a
// recipient token. Failures are logged and dropped.
func (o *OrderOrchestrator) dispatchNotifications(order model.Order) {
	for _, l := range order.Items {
		if l.PushToken == "" {
			continue
		}
		o.notifyWG.Add(1)
		go func(l model.CartLine) {
			defer o.notifyWG.Done()
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()

			body := fmt.Sprintf("Qty: %d - Product: %s", l.Quantity, l.Title)
			if err := o.push.Send(ctx, l.PushToken, "Order was placed!", body); err != nil {
				o.log.Warn("push dispatch failed",
					zap.String("orderId", order.ID),
					zap.String("productId", l.ProductID),
					zap.Error(err),
				)
			}
		}(l)
	}
}
