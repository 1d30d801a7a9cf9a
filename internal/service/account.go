package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// AccountFlow coordinates full account removal: every owned product is
// deleted and awaited before the account itself goes. The first failure
// aborts the sequence with the session intact so the user can retry.
type AccountFlow struct {
	catalog *CatalogSynchronizer
	session *SessionManager
	log     *zap.Logger
}

// NewAccountFlow constructs the account-deletion coordinator.
func NewAccountFlow(catalog *CatalogSynchronizer, session *SessionManager, log *zap.Logger) *AccountFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountFlow{catalog: catalog, session: session, log: log}
}

// DeleteAccount removes every owned product, then the account, then the
// session.
func (f *AccountFlow) DeleteAccount(ctx context.Context) error {
	if err := f.catalog.FetchAll(ctx); err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}
	owned := f.catalog.Snapshot().Owned
	for _, p := range owned {
		if err := f.catalog.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete product %s: %w", p.ID, err)
		}
	}
	f.log.Info("owned products removed", zap.Int("count", len(owned)))
	return f.session.DeleteAccount(ctx)
}
