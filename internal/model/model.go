// Package model defines domain entities shared by services and gateways.
package model

import "time"

// Session is the authenticated identity for the current user.
// The zero value is the unauthenticated state.
type Session struct {
	UserID              string
	Token               string
	Email               string
	ExpiresAt           time.Time
	DidAttemptRehydrate bool
}

// Active reports whether the session carries a usable token.
func (s Session) Active() bool { return s.Token != "" }

// SessionRecord is the serialized form persisted between process runs.
type SessionRecord struct {
	Token      string    `json:"token"`
	UserID     string    `json:"userId"`
	ExpiryDate time.Time `json:"expiryDate"`
	Email      string    `json:"email"`
}

// Product is a catalog entry owned by the account that created it.
type Product struct {
	ID             string
	OwnerID        string
	OwnerPushToken string // empty when the owner declined the notification capability
	Title          string
	ImageURL       string
	Description    string
	Price          float64
}

// NewProduct carries the caller-supplied fields for product creation.
type NewProduct struct {
	Title       string
	ImageURL    string
	Description string
	Price       float64
}

// ProductPatch carries the mutable fields for a product update.
// Price is immutable after creation.
type ProductPatch struct {
	Title       string
	ImageURL    string
	Description string
}

// CartLine is one product position in the cart, quantity always >= 1.
type CartLine struct {
	ProductID string
	Title     string
	Price     float64
	Quantity  int
	PushToken string
}

// Sum returns the line total.
func (l CartLine) Sum() float64 { return l.Price * float64(l.Quantity) }

// Cart is an immutable snapshot of the cart contents. Lines keep
// insertion order; totals are always consistent with the lines.
type Cart struct {
	Lines       []CartLine
	TotalAmount float64
	TotalItems  int
}

// Order is a successfully submitted order. Immutable once created.
type Order struct {
	ID       string
	Items    []CartLine
	Amount   float64
	PlacedAt time.Time
}

// Catalog is a snapshot of the product collections. Owned is always
// derived from All by owner id, never maintained independently.
type Catalog struct {
	All   []Product
	Owned []Product
}
