package order

import (
	"context"
	"errors"
	"time"

	"github.com/watchstore/checkout-service/internal/inventory"
)

// ProductReader resolves product display fields for order history views.
type ProductReader interface {
	Get(ctx context.Context, productID string) (inventory.Product, error)
}

type ItemDetail struct {
	ProductID string         `json:"productId"`
	Quantity  int            `json:"quantity"`
	Product   *ProductDetail `json:"product,omitempty"`
}

type ProductDetail struct {
	Name     string  `json:"name"`
	ImageURL string  `json:"imageURL"`
	Price    float64 `json:"price"`
}

type View struct {
	ID        string       `json:"id"`
	Items     []ItemDetail `json:"items"`
	Status    Status       `json:"status"`
	Total     float64      `json:"total"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Query is the read side of the engine: it lists a user's orders joined
// with product display fields, newest first.
type Query struct {
	repo     Repository
	products ProductReader
}

func NewQuery(repo Repository, products ProductReader) *Query {
	return &Query{repo: repo, products: products}
}

// History returns the user's orders, optionally filtered by status. Items
// whose product has since been deleted keep their snapshot but carry no
// display detail.
func (q *Query) History(ctx context.Context, userID string, status *Status) ([]View, error) {
	orders, err := q.repo.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(orders))
	for _, o := range orders {
		v := View{
			ID:        o.ID,
			Status:    o.Status,
			Total:     o.Total,
			CreatedAt: o.CreatedAt,
			UpdatedAt: o.UpdatedAt,
			Items:     make([]ItemDetail, 0, len(o.Items)),
		}
		for _, it := range o.Items {
			detail := ItemDetail{ProductID: it.ProductID, Quantity: it.Quantity}
			p, err := q.products.Get(ctx, it.ProductID)
			switch {
			case err == nil:
				detail.Product = &ProductDetail{Name: p.Name, ImageURL: p.ImageURL, Price: p.Price}
			case errors.Is(err, inventory.ErrNotFound):
				// keep the bare snapshot
			default:
				return nil, err
			}
			v.Items = append(v.Items, detail)
		}
		views = append(views, v)
	}
	return views, nil
}
