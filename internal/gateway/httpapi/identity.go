package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/and161185/cacti-shop/internal/errs"
	"github.com/and161185/cacti-shop/internal/gateway"
)

var _ gateway.Identity = (*Client)(nil)

type credentialsResponse struct {
	IDToken   string `json:"idToken"`
	LocalID   string `json:"localId"`
	ExpiresIn string `json:"expiresIn"` // seconds, as a decimal string
}

func (r credentialsResponse) toCredentials() gateway.Credentials {
	creds := gateway.Credentials{UserID: r.LocalID, Token: r.IDToken}
	if secs, err := strconv.Atoi(r.ExpiresIn); err == nil && secs > 0 {
		creds.ExpiresIn = time.Duration(secs) * time.Second
	}
	return creds
}

// SignUp creates a new account.
func (c *Client) SignUp(ctx context.Context, email, password string) (gateway.Credentials, error) {
	in := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	var out credentialsResponse
	err := c.doJSON(ctx, http.MethodPost, c.identityURL("signUp"), in, &out)
	if err != nil {
		return gateway.Credentials{}, mapErr(err, map[string]error{
			"EMAIL_EXISTS": errs.ErrEmailExists,
		})
	}
	return out.toCredentials(), nil
}

// SignIn authenticates with email and password. Unknown email and wrong
// password both surface as ErrInvalidCredentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (gateway.Credentials, error) {
	in := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	var out credentialsResponse
	err := c.doJSON(ctx, http.MethodPost, c.identityURL("signInWithPassword"), in, &out)
	if err != nil {
		return gateway.Credentials{}, mapErr(err, map[string]error{
			"EMAIL_NOT_FOUND":           errs.ErrInvalidCredentials,
			"INVALID_PASSWORD":          errs.ErrInvalidCredentials,
			"INVALID_LOGIN_CREDENTIALS": errs.ErrInvalidCredentials,
		})
	}
	return out.toCredentials(), nil
}

// Lookup reads the account state behind a token.
func (c *Client) Lookup(ctx context.Context, token string) (gateway.AccountInfo, error) {
	in := map[string]any{"idToken": token}
	var out struct {
		Users []struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"emailVerified"`
		} `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.identityURL("lookup"), in, &out); err != nil {
		return gateway.AccountInfo{}, mapErr(err, nil)
	}
	if len(out.Users) == 0 {
		return gateway.AccountInfo{}, fmt.Errorf("%w: account lookup returned no users", errs.ErrNetwork)
	}
	return gateway.AccountInfo{Email: out.Users[0].Email, EmailVerified: out.Users[0].EmailVerified}, nil
}

// SendVerificationEmail triggers a verification email for the token's account.
func (c *Client) SendVerificationEmail(ctx context.Context, token string) error {
	in := map[string]any{"requestType": "VERIFY_EMAIL", "idToken": token}
	return mapErr(c.doJSON(ctx, http.MethodPost, c.identityURL("sendOobCode"), in, nil), nil)
}

// SendPasswordResetEmail triggers a password-reset email.
func (c *Client) SendPasswordResetEmail(ctx context.Context, email string) error {
	in := map[string]any{"requestType": "PASSWORD_RESET", "email": email, "returnSecureToken": true}
	err := c.doJSON(ctx, http.MethodPost, c.identityURL("sendOobCode"), in, nil)
	return mapErr(err, map[string]error{
		"EMAIL_NOT_FOUND": errs.ErrEmailNotFound,
	})
}

// UpdateEmail changes the account email and returns the fresh token issued
// for it.
func (c *Client) UpdateEmail(ctx context.Context, token, newEmail string) (string, error) {
	in := map[string]any{"idToken": token, "email": newEmail, "returnSecureToken": true}
	var out credentialsResponse
	err := c.doJSON(ctx, http.MethodPost, c.identityURL("update"), in, &out)
	if err != nil {
		return "", mapErr(err, map[string]error{
			"EMAIL_EXISTS": errs.ErrEmailExists,
		})
	}
	return out.IDToken, nil
}

// DeleteAccount removes the account behind the token.
func (c *Client) DeleteAccount(ctx context.Context, token string) error {
	in := map[string]any{"idToken": token}
	return mapErr(c.doJSON(ctx, http.MethodPost, c.identityURL("delete"), in, nil), nil)
}
