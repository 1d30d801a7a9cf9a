package httpapi

import (
	"context"
	"net/http"

	"github.com/and161185/cacti-shop/internal/gateway"
)

var _ gateway.Push = (*Client)(nil)

// Send posts one notification to the dispatch endpoint. The response body is
// irrelevant; only the status decides success.
func (c *Client) Send(ctx context.Context, to, title, body string) error {
	in := map[string]string{"to": to, "title": title, "body": body}
	return mapErr(c.doJSON(ctx, http.MethodPost, c.pushURL, in, nil), nil)
}
