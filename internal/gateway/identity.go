// Package gateway defines remote backend interfaces implemented by concrete transports.
package gateway

import (
	"context"
	"time"
)

// Credentials is the result of a successful sign-up or sign-in.
type Credentials struct {
	UserID    string
	Token     string
	ExpiresIn time.Duration // zero when the backend omitted it
}

// AccountInfo is the account state reported by the backend.
type AccountInfo struct {
	Email         string
	EmailVerified bool
}

// Identity provides account and token operations.
type Identity interface {
	// SignUp creates an account and returns its credentials.
	SignUp(ctx context.Context, email, password string) (Credentials, error)
	// SignIn authenticates with email and password.
	SignIn(ctx context.Context, email, password string) (Credentials, error)
	// Lookup reads the account state behind a token.
	Lookup(ctx context.Context, token string) (AccountInfo, error)
	// SendVerificationEmail triggers a verification email for the token's account.
	SendVerificationEmail(ctx context.Context, token string) error
	// SendPasswordResetEmail triggers a password-reset email.
	SendPasswordResetEmail(ctx context.Context, email string) error
	// UpdateEmail changes the account email and returns a fresh token.
	UpdateEmail(ctx context.Context, token, newEmail string) (string, error)
	// DeleteAccount removes the account behind the token.
	DeleteAccount(ctx context.Context, token string) error
}
