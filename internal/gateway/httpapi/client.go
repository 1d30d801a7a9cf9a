// Package httpapi implements the gateway interfaces over the shop backend's
// HTTPS/JSON API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/cacti-shop/internal/errs"
)

const maxBodySize = 1 << 20

// Config holds the backend endpoints and credentials.
type Config struct {
	AuthBaseURL string // identity endpoints
	DataBaseURL string // document store (products, orders)
	PushURL     string // notification dispatch endpoint
	APIKey      string // identity API key

	HTTPClient *http.Client // optional; defaults to a 15s-timeout client
	Logger     *zap.Logger  // optional; defaults to a nop logger
}

// Client implements gateway.Identity, gateway.Products, gateway.Orders and
// gateway.Push against the remote backend.
type Client struct {
	authBase string
	dataBase string
	pushURL  string
	apiKey   string
	hc       *http.Client
}

// New constructs a backend client. Outbound requests are logged through a
// zap-backed transport: metadata only, never query strings or payloads.
func New(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	wrapped := *hc
	base := wrapped.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = &loggingTransport{next: base, log: log}

	return &Client{
		authBase: strings.TrimRight(cfg.AuthBaseURL, "/"),
		dataBase: strings.TrimRight(cfg.DataBaseURL, "/"),
		pushURL:  cfg.PushURL,
		apiKey:   cfg.APIKey,
		hc:       &wrapped,
	}
}

// loggingTransport logs request metadata around each round trip.
type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	// query strings carry credentials and are never logged
	t.log.Debug("http",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.Duration("dur", time.Since(start)),
		zap.String("requestId", req.Header.Get("X-Request-Id")),
		zap.Error(err),
	)
	return resp, err
}

// apiError is a non-2xx backend response with an optional error code.
type apiError struct {
	status int
	code   string
}

func (e *apiError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("backend status %d (%s)", e.status, e.code)
	}
	return fmt.Sprintf("backend status %d", e.status)
}

// errorCode extracts the backend error code, if any.
func errorCode(err error) string {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.code
	}
	return ""
}

// mapErr converts a backend error into a sentinel: recognized codes map
// through overrides, everything else becomes ErrNetwork.
func mapErr(err error, overrides map[string]error) error {
	if err == nil {
		return nil
	}
	if code := errorCode(err); code != "" {
		if mapped, ok := overrides[code]; ok {
			return mapped
		}
	}
	if errors.Is(err, errs.ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %v", errs.ErrNetwork, err)
}

// doJSON performs one request/response cycle with JSON bodies. Non-2xx
// responses come back as *apiError with the extracted backend code.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set("X-Request-Id", id.String())
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", errs.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{status: resp.StatusCode, code: extractCode(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: malformed response: %v", errs.ErrNetwork, err)
		}
	}
	return nil
}

// extractCode pulls the error code out of an {"error":{"message":...}} body.
// Codes may carry a trailing explanation ("WEAK_PASSWORD : ..."), so only the
// first token counts.
func extractCode(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	fields := strings.Fields(payload.Error.Message)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// identityURL builds an identity endpoint URL with the API key attached.
func (c *Client) identityURL(action string) string {
	return fmt.Sprintf("%s/v1/accounts:%s?key=%s", c.authBase, action, url.QueryEscape(c.apiKey))
}

// dataURL builds a document URL with the auth token attached.
func (c *Client) dataURL(token string, parts ...string) string {
	return fmt.Sprintf("%s/%s.json?auth=%s", c.dataBase, strings.Join(parts, "/"), url.QueryEscape(token))
}
