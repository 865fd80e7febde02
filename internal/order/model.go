package order

import "time"

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Order is an immutable-item record of a placement attempt. The item list
// and total are fixed at creation; status is the only field that ever
// changes afterwards. UserID is never serialized into responses.
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Items     []Item    `json:"items"`
	Status    Status    `json:"status"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
