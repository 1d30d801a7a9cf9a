// Package service contains the client-side application services: session,
// cart, catalog and orders.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/cacti-shop/internal/errs"
	"github.com/and161185/cacti-shop/internal/gateway"
	"github.com/and161185/cacti-shop/internal/model"
	"github.com/and161185/cacti-shop/internal/storage"
)

// sessionStoreKey is the single persistent-store key holding the session record.
const sessionStoreKey = "userData"

// defaultSessionTTL applies when neither the backend response nor the token
// itself carries an expiry.
const defaultSessionTTL = 15 * time.Minute

// SessionManager owns the authentication state and the expiry timer.
// At most one expiry timer is outstanding per manager; construct one manager
// per running process.
type SessionManager struct {
	identity gateway.Identity
	store    storage.Store
	log      *zap.Logger

	mu       sync.Mutex
	state    model.Session
	timer    *time.Timer
	timerGen uint64
}

// NewSessionManager constructs a session manager with required dependencies.
func NewSessionManager(identity gateway.Identity, store storage.Store, log *zap.Logger) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{identity: identity, store: store, log: log}
}

// Current returns a snapshot of the session state.
func (m *SessionManager) Current() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Login authenticates with email and password. The account's verification
// flag is read with a second backend call; an unverified account fails with
// ErrEmailUnverified and leaves no session behind.
func (m *SessionManager) Login(ctx context.Context, email, password string) error {
	creds, err := m.identity.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	info, err := m.identity.Lookup(ctx, creds.Token)
	if err != nil {
		return fmt.Errorf("account lookup: %w", err)
	}
	if !info.EmailVerified {
		return errs.ErrEmailUnverified
	}

	m.install(ctx, model.Session{
		UserID:              creds.UserID,
		Token:               creds.Token,
		Email:               email,
		ExpiresAt:           expiryOf(creds),
		DidAttemptRehydrate: true,
	})
	return nil
}

// Signup creates the account and triggers a verification email. The caller
// is not authenticated by a successful signup.
func (m *SessionManager) Signup(ctx context.Context, email, password string) error {
	creds, err := m.identity.SignUp(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	if err := m.identity.SendVerificationEmail(ctx, creds.Token); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ResetPassword triggers a password-reset email and forces logout: a
// credential reset invalidates trust in the active token.
func (m *SessionManager) ResetPassword(ctx context.Context, email string) error {
	if err := m.identity.SendPasswordResetEmail(ctx, email); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	return m.Logout(ctx)
}

// ResetEmail changes the account email, triggers re-verification for the new
// address and forces logout. The session survives only a failed update.
func (m *SessionManager) ResetEmail(ctx context.Context, newEmail string) error {
	sess := m.Current()
	if !sess.Active() {
		return errs.ErrNotAuthenticated
	}
	fresh, err := m.identity.UpdateEmail(ctx, sess.Token, newEmail)
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	// the old token is already invalidated by the email change, so logout
	// happens even when the verification send fails
	verifyErr := m.identity.SendVerificationEmail(ctx, fresh)
	if err := m.Logout(ctx); err != nil {
		return err
	}
	if verifyErr != nil {
		return fmt.Errorf("send verification email: %w", verifyErr)
	}
	return nil
}

// DeleteAccount removes the account behind the current session, then logs
// out. A backend failure leaves the session intact so the user can retry.
// Owned products must already be deleted; see AccountFlow.
func (m *SessionManager) DeleteAccount(ctx context.Context) error {
	sess := m.Current()
	if !sess.Active() {
		return errs.ErrNotAuthenticated
	}
	if err := m.identity.DeleteAccount(ctx, sess.Token); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return m.Logout(ctx)
}

// Logout cancels the pending expiry timer, removes the persisted record and
// resets the session. Idempotent.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.disarmLocked()
	m.state = model.Session{DidAttemptRehydrate: true}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, sessionStoreKey); err != nil {
		m.log.Warn("remove persisted session", zap.Error(err))
	}
	return nil
}

// Rehydrate restores a persisted session at process start. An absent or
// expired record leaves the manager unauthenticated; a live record re-arms
// the expiry timer for the remaining duration. Rehydrate never overrides a
// session installed by a concurrent login.
func (m *SessionManager) Rehydrate(ctx context.Context) error {
	raw, err := m.store.Get(ctx, sessionStoreKey)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			m.log.Warn("read persisted session", zap.Error(err))
		}
		m.markAttempted()
		return nil
	}

	var rec model.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		m.log.Warn("discard malformed session record", zap.Error(err))
		_ = m.store.Delete(ctx, sessionStoreKey)
		m.markAttempted()
		return nil
	}

	remaining := time.Until(rec.ExpiryDate)
	if remaining <= 0 || rec.Token == "" {
		if err := m.store.Delete(ctx, sessionStoreKey); err != nil {
			m.log.Warn("remove expired session record", zap.Error(err))
		}
		m.markAttempted()
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Active() {
		return nil
	}
	m.state = model.Session{
		UserID:              rec.UserID,
		Token:               rec.Token,
		Email:               rec.Email,
		ExpiresAt:           rec.ExpiryDate,
		DidAttemptRehydrate: true,
	}
	m.armLocked(remaining)
	m.log.Info("session rehydrated",
		zap.String("userId", rec.UserID),
		zap.Duration("remaining", remaining),
	)
	return nil
}

// install persists the record, replaces the session wholesale and re-arms
// the expiry timer.
func (m *SessionManager) install(ctx context.Context, sess model.Session) {
	rec := model.SessionRecord{
		Token:      sess.Token,
		UserID:     sess.UserID,
		ExpiryDate: sess.ExpiresAt,
		Email:      sess.Email,
	}
	b, err := json.Marshal(rec)
	if err == nil {
		err = m.store.Put(ctx, sessionStoreKey, string(b))
	}
	if err != nil {
		m.log.Warn("persist session", zap.Error(err))
	}

	m.mu.Lock()
	m.state = sess
	m.armLocked(time.Until(sess.ExpiresAt))
	m.mu.Unlock()

	m.log.Info("session established",
		zap.String("userId", sess.UserID),
		zap.Time("expiresAt", sess.ExpiresAt),
	)
}

// armLocked starts the expiry timer, cancelling any previously pending one.
func (m *SessionManager) armLocked(d time.Duration) {
	m.disarmLocked()
	gen := m.timerGen
	m.timer = time.AfterFunc(d, func() { m.expire(gen) })
}

// disarmLocked stops the pending timer; a fire already in flight becomes a
// no-op through the generation check.
func (m *SessionManager) disarmLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

// expire is the timer callback: same effect as Logout.
func (m *SessionManager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.timerGen {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.timerGen++
	m.state = model.Session{DidAttemptRehydrate: true}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Delete(ctx, sessionStoreKey); err != nil {
		m.log.Warn("remove persisted session", zap.Error(err))
	}
	m.log.Info("session expired")
}

func (m *SessionManager) markAttempted() {
	m.mu.Lock()
	m.state.DidAttemptRehydrate = true
	m.mu.Unlock()
}

// expiryOf picks the session deadline: backend-reported TTL first, the
// token's own exp claim second, a fixed default last.
func expiryOf(creds gateway.Credentials) time.Time {
	now := time.Now()
	if creds.ExpiresIn > 0 {
		return now.Add(creds.ExpiresIn)
	}
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(creds.Token, &claims, func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	if claims.ExpiresAt != nil && claims.ExpiresAt.After(now) {
		return claims.ExpiresAt.Time
	}
	return now.Add(defaultSessionTTL)
}
