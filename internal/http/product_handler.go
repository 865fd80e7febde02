package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/watchstore/checkout-service/internal/inventory"
)

type ProductHandler struct {
	ledger inventory.Ledger
}

func NewProductHandler(ledger inventory.Ledger) *ProductHandler {
	return &ProductHandler{ledger: ledger}
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.ledger.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

type upsertProductRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ImageURL string  `json:"imageURL"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (h *ProductHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var body upsertProductRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.ID == "" || body.Name == "" || body.Price < 0 || body.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.ledger.Put(ctx, inventory.Product{
		ID:       body.ID,
		Name:     body.Name,
		ImageURL: body.ImageURL,
		Price:    body.Price,
		Quantity: body.Quantity,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save product")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": p})
}
