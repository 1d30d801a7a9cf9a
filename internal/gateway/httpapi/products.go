package httpapi

import (
	"context"
	"net/http"
	"sort"

	"github.com/and161185/cacti-shop/internal/gateway"
	"github.com/and161185/cacti-shop/internal/model"
)

var _ gateway.Products = (*Client)(nil)

type productDoc struct {
	OwnerID        string  `json:"ownerId"`
	OwnerPushToken string  `json:"ownerPushToken,omitempty"`
	Title          string  `json:"title"`
	ImageURL       string  `json:"imageUrl"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
}

// List returns every product in the catalog, ordered by id for stable output.
func (c *Client) List(ctx context.Context, token string) ([]model.Product, error) {
	var docs map[string]productDoc
	if err := c.doJSON(ctx, http.MethodGet, c.dataURL(token, "products"), nil, &docs); err != nil {
		return nil, mapErr(err, nil)
	}

	products := make([]model.Product, 0, len(docs))
	for id, d := range docs {
		products = append(products, model.Product{
			ID:             id,
			OwnerID:        d.OwnerID,
			OwnerPushToken: d.OwnerPushToken,
			Title:          d.Title,
			ImageURL:       d.ImageURL,
			Description:    d.Description,
			Price:          d.Price,
		})
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// Create stores a new product document and returns its backend-assigned id.
func (c *Client) Create(ctx context.Context, token string, p model.Product) (string, error) {
	in := productDoc{
		OwnerID:        p.OwnerID,
		OwnerPushToken: p.OwnerPushToken,
		Title:          p.Title,
		ImageURL:       p.ImageURL,
		Description:    p.Description,
		Price:          p.Price,
	}
	var out struct {
		Name string `json:"name"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.dataURL(token, "products"), in, &out); err != nil {
		return "", mapErr(err, nil)
	}
	return out.Name, nil
}

// Update patches title, description and image of an existing product.
func (c *Client) Update(ctx context.Context, token, id string, patch model.ProductPatch) error {
	in := map[string]any{
		"title":       patch.Title,
		"description": patch.Description,
		"imageUrl":    patch.ImageURL,
	}
	return mapErr(c.doJSON(ctx, http.MethodPatch, c.dataURL(token, "products", id), in, nil), nil)
}

// Delete removes a product document.
func (c *Client) Delete(ctx context.Context, token, id string) error {
	return mapErr(c.doJSON(ctx, http.MethodDelete, c.dataURL(token, "products", id), nil, nil), nil)
}
