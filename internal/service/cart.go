package service

import (
	"fmt"
	"sync"

	"github.com/and161185/cacti-shop/internal/model"
)

// CartAggregator owns the in-memory cart state. Totals are recomputed from
// the lines on every snapshot, so they can never drift.
type CartAggregator struct {
	mu    sync.Mutex
	lines map[string]*model.CartLine
	order []string // product ids in insertion order
}

// NewCartAggregator constructs an empty cart.
func NewCartAggregator() *CartAggregator {
	return &CartAggregator{lines: make(map[string]*model.CartLine)}
}

// AddItem adds qty units of the product, merging into an existing line.
func (c *CartAggregator) AddItem(p model.Product, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("validation: quantity must be positive, got %d", qty)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.lines[p.ID]; ok {
		l.Quantity += qty
		return nil
	}
	c.lines[p.ID] = &model.CartLine{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Quantity:  qty,
		PushToken: p.OwnerPushToken,
	}
	c.order = append(c.order, p.ID)
	return nil
}

// RemoveItem removes qty units of the product; a line whose quantity drops
// to zero or below is deleted entirely. Removing an absent product is a
// no-op, as is a non-positive qty.
func (c *CartAggregator) RemoveItem(productID string, qty int) {
	if qty <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lines[productID]
	if !ok {
		return
	}
	l.Quantity -= qty
	if l.Quantity <= 0 {
		c.dropLocked(productID)
	}
}

// Clear empties the cart. Used by the order orchestrator on successful
// submission.
func (c *CartAggregator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[string]*model.CartLine)
	c.order = nil
}

// Snapshot returns an immutable view of the cart with consistent totals.
func (c *CartAggregator) Snapshot() model.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()

	cart := model.Cart{Lines: make([]model.CartLine, 0, len(c.order))}
	for _, id := range c.order {
		l := *c.lines[id]
		cart.Lines = append(cart.Lines, l)
		cart.TotalAmount += l.Sum()
		cart.TotalItems += l.Quantity
	}
	return cart
}

func (c *CartAggregator) dropLocked(productID string) {
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
