package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/cacti-shop/internal/errs"
	"github.com/and161185/cacti-shop/internal/gateway"
	"github.com/and161185/cacti-shop/internal/model"
)

// PushTokenProvider yields the device's push-notification token. The
// capability may be denied, in which case an error is returned and the
// caller proceeds without a token.
type PushTokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// CatalogSynchronizer owns the product collections. The owned view is
// always derived from the full set and the session's user id.
type CatalogSynchronizer struct {
	products gateway.Products
	session  *SessionManager
	tokens   PushTokenProvider // optional
	log      *zap.Logger

	mu  sync.Mutex
	all []model.Product
}

// NewCatalogSynchronizer constructs a catalog synchronizer. tokens may be
// nil when the platform has no notification capability at all.
func NewCatalogSynchronizer(products gateway.Products, session *SessionManager, tokens PushTokenProvider, log *zap.Logger) *CatalogSynchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogSynchronizer{products: products, session: session, tokens: tokens, log: log}
}

// Snapshot returns the current catalog with the owned view derived from the
// session's user id.
func (c *CatalogSynchronizer) Snapshot() model.Catalog {
	userID := c.session.Current().UserID

	c.mu.Lock()
	defer c.mu.Unlock()

	cat := model.Catalog{All: append([]model.Product(nil), c.all...)}
	for _, p := range c.all {
		if p.OwnerID == userID && userID != "" {
			cat.Owned = append(cat.Owned, p)
		}
	}
	return cat
}

// FetchAll retrieves the full product set from the backend and replaces the
// local collection wholesale.
func (c *CatalogSynchronizer) FetchAll(ctx context.Context) error {
	sess := c.session.Current()
	if !sess.Active() {
		return errs.ErrNotAuthenticated
	}
	products, err := c.products.List(ctx, sess.Token)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	c.mu.Lock()
	c.all = products
	c.mu.Unlock()
	return nil
}

// Create stores a new product owned by the current user. The device push
// token is attached when the capability is granted; a denial is logged and
// the product proceeds without one.
func (c *CatalogSynchronizer) Create(ctx context.Context, fields model.NewProduct) (model.Product, error) {
	sess := c.session.Current()
	if !sess.Active() {
		return model.Product{}, errs.ErrNotAuthenticated
	}

	var pushToken string
	if c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			c.log.Debug("push token unavailable", zap.Error(err))
		} else {
			pushToken = t
		}
	}

	p := model.Product{
		OwnerID:        sess.UserID,
		OwnerPushToken: pushToken,
		Title:          fields.Title,
		ImageURL:       fields.ImageURL,
		Description:    fields.Description,
		Price:          fields.Price,
	}
	id, err := c.products.Create(ctx, sess.Token, p)
	if err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}
	p.ID = id

	c.mu.Lock()
	c.all = append(c.all, p)
	c.mu.Unlock()
	return p, nil
}

// Update patches the mutable fields of an owned product, locally and on the
// backend. Price is immutable after creation.
func (c *CatalogSynchronizer) Update(ctx context.Context, id string, patch model.ProductPatch) error {
	sess := c.session.Current()
	if !sess.Active() {
		return errs.ErrNotAuthenticated
	}
	if err := c.products.Update(ctx, sess.Token, id, patch); err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.all {
		if c.all[i].ID == id {
			c.all[i].Title = patch.Title
			c.all[i].ImageURL = patch.ImageURL
			c.all[i].Description = patch.Description
			break
		}
	}
	return nil
}

// Delete removes a product from the backend and from the local collection.
func (c *CatalogSynchronizer) Delete(ctx context.Context, id string) error {
	sess := c.session.Current()
	if !sess.Active() {
		return errs.ErrNotAuthenticated
	}
	if err := c.products.Delete(ctx, sess.Token, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.all {
		if c.all[i].ID == id {
			c.all = append(c.all[:i], c.all[i+1:]...)
			break
		}
	}
	return nil
}
