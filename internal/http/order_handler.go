package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/watchstore/checkout-service/internal/inventory"
	"github.com/watchstore/checkout-service/internal/order"
)

// Checkout is the slice of the order engine the handler needs.
type Checkout interface {
	Place(ctx context.Context, userID string, requests []order.ItemRequest) (*order.Receipt, error)
	Cancel(ctx context.Context, orderID string) (*order.CancelResult, error)
}

// History is the read side.
type History interface {
	History(ctx context.Context, userID string, status *order.Status) ([]order.View, error)
}

type OrderHandler struct {
	engine Checkout
	query  History
}

func NewOrderHandler(engine Checkout, query History) *OrderHandler {
	return &OrderHandler{engine: engine, query: query}
}

type placeOrderRequest struct {
	Items []order.ItemRequest `json:"items"`
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var body placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	receipt, err := h.engine.Place(ctx, userID, body.Items)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, inventory.ErrInsufficientStock),
			errors.Is(err, order.ErrInvalidQuantity),
			errors.Is(err, order.ErrNoItems):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "failed to place order")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":     receipt.Order,
		"products": receipt.Products,
	})
}

func (h *OrderHandler) HistoryOrders(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var status *order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := order.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = &parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	views, err := h.query.History(ctx, userID, status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to load orders")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.engine.Cancel(ctx, orderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound), errors.Is(err, inventory.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, order.ErrAlreadyCancelled), errors.Is(err, order.ErrNotCancellable):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "failed to cancel order")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"data":   result.Order,
		"update": result.Released,
	})
}
