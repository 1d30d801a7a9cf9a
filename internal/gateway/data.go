package gateway

import (
	"context"
	"time"

	"github.com/and161185/cacti-shop/internal/model"
)

// Products provides access to the shared product documents.
type Products interface {
	// List returns every product in the catalog.
	List(ctx context.Context, token string) ([]model.Product, error)
	// Create stores a new product and returns its backend-assigned id.
	Create(ctx context.Context, token string, p model.Product) (string, error)
	// Update patches the mutable fields of an existing product.
	Update(ctx context.Context, token, id string, patch model.ProductPatch) error
	// Delete removes a product.
	Delete(ctx context.Context, token, id string) error
}

// Orders provides access to per-user order documents.
type Orders interface {
	// ListForUser returns the orders placed by the given user.
	ListForUser(ctx context.Context, token, userID string) ([]model.Order, error)
	// Place stores a new order document and returns its backend-assigned id.
	Place(ctx context.Context, token, userID string, items []model.CartLine, amount float64, placedAt time.Time) (string, error)
}

// Push dispatches a single best-effort notification. Callers decide whether
// a failure matters; the transport only reports it.
type Push interface {
	Send(ctx context.Context, to, title, body string) error
}
