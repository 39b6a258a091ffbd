// Package catalog looks up product data from the product service so that
// add-to-cart uses authoritative prices and stock ceilings.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/domain"
	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/httpclient"
)

const serviceName = "catalog"

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Product is the catalog view of a product.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Image    string    `json:"image"`
	Category string    `json:"category"`
	Stock    int       `json:"stock"`
	Variants []Variant `json:"variants"`
}

// Variant is the stock of one size.
type Variant struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

type productResponse struct {
	Data *Product `json:"data"`
}

// Client fetches products from {baseURL}/api/v1/products/{id}.
type Client struct {
	http    HTTPDoer
	baseURL string
}

// NewClient creates a catalog client.
func NewClient(doer HTTPDoer, baseURL string) *Client {
	return &Client{http: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

// Product fetches a single product.
func (c *Client) Product(ctx context.Context, productID string) (*Product, error) {
	endpoint := c.baseURL + "/api/v1/products/" + url.PathEscape(productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Unavailable("catalog is unavailable", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog product: %w", err)
	}
	if body.Data == nil {
		return nil, apperrors.NotFound("product", productID)
	}
	return body.Data, nil
}

// Item resolves the cart item for a product and optional size. The stock
// ceiling is the size's stock when a size is given and listed, otherwise the
// product's stock.
func (c *Client) Item(ctx context.Context, productID string, variant domain.Variant) (domain.Item, error) {
	p, err := c.Product(ctx, productID)
	if err != nil {
		return domain.Item{}, err
	}
	if p.ID == "" {
		p.ID = productID
	}
	return p.Item(variant), nil
}

// Item converts p to a cart item for variant.
func (p *Product) Item(variant domain.Variant) domain.Item {
	stock := p.Stock
	if variant.Valid {
		for _, v := range p.Variants {
			if v.Size == variant.Key {
				stock = v.Stock
				break
			}
		}
	}

	return domain.Item{
		ProductID:   p.ID,
		Variant:     variant,
		Name:        p.Name,
		Image:       p.Image,
		Category:    p.Category,
		UnitPrice:   domain.SanitizePrice(p.Price),
		MaxQuantity: stock,
	}
}
