package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/cacti-shop/internal/errs"
)

// identityServer routes accounts:<action> requests to per-action handlers.
func identityServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NotEmpty(t, r.Header.Get("X-Request-Id"))
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		h(w, r)
	}))
}

func backendError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"message":%q}}`, code)
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		AuthBaseURL: srv.URL,
		DataBaseURL: srv.URL,
		PushURL:     srv.URL + "/push",
		APIKey:      "test-key",
		HTTPClient:  srv.Client(),
	})
}

func TestSignIn_Success(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:signInWithPassword": func(w http.ResponseWriter, r *http.Request) {
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "a@b.c", in["email"])
			require.Equal(t, "secret", in["password"])
			require.Equal(t, true, in["returnSecureToken"])
			fmt.Fprint(w, `{"idToken":"tok","localId":"uid-1","expiresIn":"3600"}`)
		},
	})
	defer srv.Close()

	creds, err := newTestClient(srv).SignIn(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	require.Equal(t, "uid-1", creds.UserID)
	require.Equal(t, "tok", creds.Token)
	require.Equal(t, time.Hour, creds.ExpiresIn)
}

func TestSignIn_CredentialErrorsCollapse(t *testing.T) {
	for _, code := range []string{"EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS"} {
		srv := identityServer(t, map[string]http.HandlerFunc{
			"/v1/accounts:signInWithPassword": func(w http.ResponseWriter, r *http.Request) {
				backendError(w, http.StatusBadRequest, code)
			},
		})
		_, err := newTestClient(srv).SignIn(context.Background(), "a@b.c", "bad")
		require.ErrorIs(t, err, errs.ErrInvalidCredentials, "code %s", code)
		srv.Close()
	}
}

func TestSignIn_UnknownCodeIsNetworkFailure(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:signInWithPassword": func(w http.ResponseWriter, r *http.Request) {
			backendError(w, http.StatusBadRequest, "USER_DISABLED")
		},
	})
	defer srv.Close()

	_, err := newTestClient(srv).SignIn(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, errs.ErrNetwork)
	require.NotErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestSignUp_EmailExists(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:signUp": func(w http.ResponseWriter, r *http.Request) {
			backendError(w, http.StatusBadRequest, "EMAIL_EXISTS")
		},
	})
	defer srv.Close()

	_, err := newTestClient(srv).SignUp(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, errs.ErrEmailExists)
}

func TestLookup_ParsesVerificationFlag(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:lookup": func(w http.ResponseWriter, r *http.Request) {
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "tok", in["idToken"])
			fmt.Fprint(w, `{"users":[{"email":"a@b.c","emailVerified":false}]}`)
		},
	})
	defer srv.Close()

	info, err := newTestClient(srv).Lookup(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "a@b.c", info.Email)
	require.False(t, info.EmailVerified)
}

func TestLookup_EmptyUsersIsNetworkFailure(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:lookup": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"users":[]}`)
		},
	})
	defer srv.Close()

	_, err := newTestClient(srv).Lookup(context.Background(), "tok")
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestSendPasswordResetEmail_EmailNotFound(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:sendOobCode": func(w http.ResponseWriter, r *http.Request) {
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "PASSWORD_RESET", in["requestType"])
			backendError(w, http.StatusBadRequest, "EMAIL_NOT_FOUND")
		},
	})
	defer srv.Close()

	err := newTestClient(srv).SendPasswordResetEmail(context.Background(), "a@b.c")
	require.ErrorIs(t, err, errs.ErrEmailNotFound)
}

func TestSendVerificationEmail_OK(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:sendOobCode": func(w http.ResponseWriter, r *http.Request) {
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "VERIFY_EMAIL", in["requestType"])
			require.Equal(t, "tok", in["idToken"])
			fmt.Fprint(w, `{}`)
		},
	})
	defer srv.Close()

	require.NoError(t, newTestClient(srv).SendVerificationEmail(context.Background(), "tok"))
}

func TestUpdateEmail_ReturnsFreshToken(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:update": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"idToken":"fresh","localId":"uid-1"}`)
		},
	})
	defer srv.Close()

	tok, err := newTestClient(srv).UpdateEmail(context.Background(), "old", "new@b.c")
	require.NoError(t, err)
	require.Equal(t, "fresh", tok)
}

func TestUpdateEmail_EmailExists(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:update": func(w http.ResponseWriter, r *http.Request) {
			backendError(w, http.StatusBadRequest, "EMAIL_EXISTS")
		},
	})
	defer srv.Close()

	_, err := newTestClient(srv).UpdateEmail(context.Background(), "tok", "taken@b.c")
	require.ErrorIs(t, err, errs.ErrEmailExists)
}

func TestDeleteAccount_PropagatesFailure(t *testing.T) {
	srv := identityServer(t, map[string]http.HandlerFunc{
		"/v1/accounts:delete": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	defer srv.Close()

	err := newTestClient(srv).DeleteAccount(context.Background(), "tok")
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestExtractCode_TrailingExplanation(t *testing.T) {
	t.Parallel()
	got := extractCode([]byte(`{"error":{"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}`))
	require.Equal(t, "WEAK_PASSWORD", got)

	require.Empty(t, extractCode([]byte(`not json`)))
	require.Empty(t, extractCode([]byte(`{"error":{"message":""}}`)))
}
