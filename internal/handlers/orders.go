package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/middleware"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/internal/services"
)

type StatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type MyOrdersResponse struct {
	Success bool           `json:"success"`
	Orders  []models.Order `json:"orders"`
}

// OrderHandler serves the order routes. Order bodies are returned bare,
// without the success envelope, which is what existing clients expect.
type OrderHandler struct {
	orders *services.OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log.With(zap.String("component", "order_handler"))}
}

// List handles GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orders.List())
}

// Mine handles GET /api/orders/me
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	payload, ok := middleware.PayloadFrom(r.Context())
	if !ok {
		writeError(w, h.log, apperr.Unauthenticated("Authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, MyOrdersResponse{Success: true, Orders: h.orders.ListForUser(payload.Email)})
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Create handles POST /api/orders. A signed-in caller's email fills an
// empty customer email so the order shows up under /api/orders/me.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.Order
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}
	if payload, ok := middleware.PayloadFrom(r.Context()); ok && in.Customer.Email == "" {
		in.Customer.Email = payload.Email
	}

	order, err := h.orders.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Update handles PUT /api/orders/{id}
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.Order
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.log, err)
		return
	}

	order, err := h.orders.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
