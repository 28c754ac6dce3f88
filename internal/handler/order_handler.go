package handler

import (
	"net/http"

	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /orders/create requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.CreateOrder(r.Context(), caller, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /orders/{orderId} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), caller, chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /orders/status/{orderId} requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.UpdateStatus(r.Context(), caller, chi.URLParam(r, "orderId"), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles PATCH /orders/cancel/{orderId} requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	resp, err := h.service.Cancel(r.Context(), caller, chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// RequestReturn handles PATCH /orders/return/{orderId} requests.
func (h *OrderHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req model.ReturnOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.RequestReturn(r.Context(), caller, chi.URLParam(r, "orderId"), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreatePaymentIntent handles POST /orders/create-razorpay-order requests.
func (h *OrderHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req model.PaymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.CreatePaymentIntent(r.Context(), caller, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// VerifyPayment handles POST /orders/verify-payment requests.
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.VerifyPayment(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
