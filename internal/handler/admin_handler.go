package handler

import (
	"net/http"
	"strconv"

	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/rs/zerolog"
)

// AdminHandler handles platform ledger requests. Routes are admin-only.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("handler", "admin").Logger(),
	}
}

type payoutResponse struct {
	OrderID      string                      `json:"orderId"`
	Transactions []model.PlatformTransaction `json:"transactions"`
}

// Payout handles POST /admin/payouts requests.
func (h *AdminHandler) Payout(w http.ResponseWriter, r *http.Request) {
	var req model.PayoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	txns, err := h.service.Payout(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, payoutResponse{OrderID: req.OrderID, Transactions: txns})
}

// Balance handles GET /admin/ledger/balance requests.
func (h *AdminHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.Balance(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// Reconcile handles POST /admin/ledger/reconcile requests. ?correct=true
// overwrites the maintained balance with the replayed one.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	correct := false
	if raw := r.URL.Query().Get("correct"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "correct must be a boolean", h.logger)
			return
		}
		correct = v
	}

	report, err := h.service.Reconcile(r.Context(), correct)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	if report.Drift {
		h.logger.Warn().
			Int64("held_drift", int64(report.Replayed.Held-report.Cached.Held)).
			Int64("earnings_drift", int64(report.Replayed.Earnings-report.Cached.Earnings)).
			Bool("corrected", report.Corrected).
			Msg("platform balance drift detected")
	}

	writeJSON(w, http.StatusOK, report)
}
