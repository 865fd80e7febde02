package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(orders *OrderHandler, carts *CartHandler, products *ProductHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireUser)

		r.Post("/order", orders.PlaceOrder)
		r.Get("/history-order", orders.HistoryOrders)
		r.Get("/cancel-order", orders.CancelOrder)

		r.Get("/get-cart", carts.GetCart)
		r.Post("/add-cart", carts.AddCart)
		r.Put("/update-cart", carts.UpdateCart)
		r.Delete("/delete-cart", carts.DeleteCart)

		r.Get("/products/{productId}", products.GetProduct)
		r.Post("/products", products.UpsertProduct)
	})

	return r
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
