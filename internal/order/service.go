package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/watchstore/checkout-service/internal/inventory"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrNoItems          = errors.New("order has no items")
	ErrAlreadyCancelled = errors.New("order already cancelled")
	ErrNotCancellable   = errors.New("order cannot be cancelled")
)

// Ledger is the slice of the inventory ledger the engine needs.
type Ledger interface {
	Reserve(ctx context.Context, productID string, quantity int) (inventory.Product, error)
	Release(ctx context.Context, productID string, quantity int) (inventory.Product, error)
}

// CartLines clears a user's cart line once its product is folded into an order.
type CartLines interface {
	DeleteFor(ctx context.Context, userID, productID string) error
}

// EventPublisher emits order lifecycle events. Publishing is best effort;
// the engine logs failures and never fails a request over them.
type EventPublisher interface {
	OrderPlaced(ctx context.Context, o *Order) error
	OrderCancelled(ctx context.Context, o *Order) error
}

type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Receipt is the result of a successful placement: the persisted order and
// the post-reservation product snapshots.
type Receipt struct {
	Order    *Order              `json:"order"`
	Products []inventory.Product `json:"products"`
}

// CancelResult carries the cancelled order and the restocked snapshots.
type CancelResult struct {
	Order    *Order              `json:"order"`
	Released []inventory.Product `json:"released"`
}

// Engine composes the inventory ledger, the cart manager, and the order
// store into the place/cancel workflows. There is no cross-store
// transaction boundary: placement is a saga that reserves line by line and
// compensates already-reserved stock when a later step fails.
type Engine struct {
	repo   Repository
	ledger Ledger
	carts  CartLines
	events EventPublisher
	logger *log.Logger
}

func NewEngine(repo Repository, ledger Ledger, carts CartLines, events EventPublisher, logger *log.Logger) *Engine {
	return &Engine{repo: repo, ledger: ledger, carts: carts, events: events, logger: logger}
}

// Place reserves stock for each requested line in order, clears the
// matching cart lines, and persists one Pending order with the total
// computed from prices at reservation time.
func (e *Engine) Place(ctx context.Context, userID string, requests []ItemRequest) (*Receipt, error) {
	if len(requests) == 0 {
		return nil, ErrNoItems
	}
	for _, req := range requests {
		if req.Quantity < 1 {
			return nil, fmt.Errorf("product %s: %w", req.ProductID, ErrInvalidQuantity)
		}
	}

	var (
		reserved []ItemRequest
		products []inventory.Product
		total    float64
	)
	for _, req := range requests {
		p, err := e.ledger.Reserve(ctx, req.ProductID, req.Quantity)
		if err != nil {
			e.compensate(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, req)
		products = append(products, p)
		total += p.Price * float64(req.Quantity)
	}

	// Cart lines are consumed whole; absence is not an error.
	for _, req := range requests {
		if err := e.carts.DeleteFor(ctx, userID, req.ProductID); err != nil {
			e.logger.Printf("clear cart line user=%s product=%s: %v", userID, req.ProductID, err)
		}
	}

	o := &Order{
		UserID: userID,
		Status: StatusPending,
		Total:  total,
		Items:  make([]Item, 0, len(requests)),
	}
	for _, req := range requests {
		o.Items = append(o.Items, Item{ProductID: req.ProductID, Quantity: req.Quantity})
	}

	if err := e.repo.Create(ctx, o); err != nil {
		e.compensate(ctx, reserved)
		return nil, fmt.Errorf("create order: %w", err)
	}

	if e.events != nil {
		if err := e.events.OrderPlaced(ctx, o); err != nil {
			e.logger.Printf("publish order placed %s: %v", o.ID, err)
		}
	}

	return &Receipt{Order: o, Products: products}, nil
}

// compensate releases the lines reserved before a placement step failed.
func (e *Engine) compensate(ctx context.Context, reserved []ItemRequest) {
	for _, req := range reserved {
		if _, err := e.ledger.Release(ctx, req.ProductID, req.Quantity); err != nil {
			e.logger.Printf("compensate release product=%s qty=%d: %v", req.ProductID, req.Quantity, err)
		}
	}
}

// Cancel flips a Pending order to Cancelled and credits each item's
// quantity back to the ledger. The status flip persists even if a later
// release fails: cancellation guarantees at least the status change.
func (e *Engine) Cancel(ctx context.Context, orderID string) (*CancelResult, error) {
	o, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch o.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusCompleted:
		return nil, ErrNotCancellable
	}

	ok, err := e.repo.SetStatus(ctx, orderID, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another transition; treat as already cancelled.
		return nil, ErrAlreadyCancelled
	}
	o.Status = StatusCancelled

	var released []inventory.Product
	for _, it := range o.Items {
		p, err := e.ledger.Release(ctx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		released = append(released, p)
	}

	if e.events != nil {
		if err := e.events.OrderCancelled(ctx, o); err != nil {
			e.logger.Printf("publish order cancelled %s: %v", o.ID, err)
		}
	}

	return &CancelResult{Order: o, Released: released}, nil
}
