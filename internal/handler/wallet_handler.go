package handler

import (
	"net/http"

	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/rs/zerolog"
)

// WalletHandler handles wallet requests.
type WalletHandler struct {
	service service.WalletService
	logger  zerolog.Logger
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(service service.WalletService, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		service: service,
		logger:  logger.With().Str("handler", "wallet").Logger(),
	}
}

// Get handles GET /wallet requests.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	wallet, err := h.service.Get(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, wallet)
}

// Pay handles POST /wallet/pay requests.
func (h *WalletHandler) Pay(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req model.WalletPayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.Pay(r.Context(), caller, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refund handles POST /wallet/refund requests.
func (h *WalletHandler) Refund(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req model.WalletRefundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.Refund(r.Context(), caller, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Referral handles POST /wallet/referral requests.
func (h *WalletHandler) Referral(w http.ResponseWriter, r *http.Request) {
	var req model.ReferralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.Referral(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Promo handles POST /wallet/promo requests.
func (h *WalletHandler) Promo(w http.ResponseWriter, r *http.Request) {
	var req model.PromoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	resp, err := h.service.Promo(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
