package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/and161185/cacti-shop/internal/gateway"
	"github.com/and161185/cacti-shop/internal/model"
)

var _ gateway.Orders = (*Client)(nil)

type orderLineDoc struct {
	ProductID        string  `json:"productId"`
	ProductTitle     string  `json:"productTitle"`
	ProductPrice     float64 `json:"productPrice"`
	Quantity         int     `json:"quantity"`
	Sum              float64 `json:"sum"`
	ProductPushToken string  `json:"productPushToken,omitempty"`
}

type orderDoc struct {
	CartItems   []orderLineDoc `json:"cartItems"`
	TotalAmount float64        `json:"totalAmount"`
	Date        string         `json:"date"` // RFC 3339
}

func toLineDocs(items []model.CartLine) []orderLineDoc {
	docs := make([]orderLineDoc, 0, len(items))
	for _, l := range items {
		docs = append(docs, orderLineDoc{
			ProductID:        l.ProductID,
			ProductTitle:     l.Title,
			ProductPrice:     l.Price,
			Quantity:         l.Quantity,
			Sum:              l.Sum(),
			ProductPushToken: l.PushToken,
		})
	}
	return docs
}

func fromLineDocs(docs []orderLineDoc) []model.CartLine {
	items := make([]model.CartLine, 0, len(docs))
	for _, d := range docs {
		items = append(items, model.CartLine{
			ProductID: d.ProductID,
			Title:     d.ProductTitle,
			Price:     d.ProductPrice,
			Quantity:  d.Quantity,
			PushToken: d.ProductPushToken,
		})
	}
	return items
}

// ListForUser returns the orders placed by the given user, oldest first.
func (c *Client) ListForUser(ctx context.Context, token, userID string) ([]model.Order, error) {
	var docs map[string]orderDoc
	if err := c.doJSON(ctx, http.MethodGet, c.dataURL(token, "orders", userID), nil, &docs); err != nil {
		return nil, mapErr(err, nil)
	}

	orders := make([]model.Order, 0, len(docs))
	for id, d := range docs {
		placedAt, _ := time.Parse(time.RFC3339, d.Date)
		orders = append(orders, model.Order{
			ID:       id,
			Items:    fromLineDocs(d.CartItems),
			Amount:   d.TotalAmount,
			PlacedAt: placedAt,
		})
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].PlacedAt.Before(orders[j].PlacedAt) })
	return orders, nil
}

// Place stores a new order document and returns its backend-assigned id.
func (c *Client) Place(ctx context.Context, token, userID string, items []model.CartLine, amount float64, placedAt time.Time) (string, error) {
	in := orderDoc{
		CartItems:   toLineDocs(items),
		TotalAmount: amount,
		Date:        placedAt.UTC().Format(time.RFC3339),
	}
	var out struct {
		Name string `json:"name"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.dataURL(token, "orders", userID), in, &out); err != nil {
		return "", mapErr(err, nil)
	}
	return out.Name, nil
}
