package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/watchstore/checkout-service/internal/cart"
)

type CartHandler struct {
	repo cart.Repository
}

func NewCartHandler(repo cart.Repository) *CartHandler {
	return &CartHandler{repo: repo}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	views, err := h.repo.ListFor(ctx, GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to load cart")
		return
	}
	if views == nil {
		views = []cart.LineView{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

type addCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) AddCart(w http.ResponseWriter, r *http.Request) {
	var body addCartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductID == "" {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	line, err := h.repo.UpsertLine(ctx, GetUserID(r.Context()), body.ProductID, body.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrInvalidQuantity) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save cart line")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": line})
}

type updateCartRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

func (h *CartHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	var body updateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	line, err := h.repo.SetQuantity(ctx, GetUserID(r.Context()), body.ID, body.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, cart.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update cart line")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": line})
}

func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	lineID := r.URL.Query().Get("id")
	if lineID == "" {
		writeError(w, http.StatusBadRequest, "missing line id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Deleting an absent line is fine; data is null in that case.
	line, err := h.repo.Remove(ctx, GetUserID(r.Context()), lineID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete cart line")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": line})
}
