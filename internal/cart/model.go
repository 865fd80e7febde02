package cart

import "time"

type Line struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}

// LineView is a cart line joined with the product's current display fields.
type LineView struct {
	Line
	Product ProductDetail `json:"product"`
}

type ProductDetail struct {
	Name     string  `json:"name"`
	ImageURL string  `json:"imageURL"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}
