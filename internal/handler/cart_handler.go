package handler

import (
	"context"
	"net/http"

	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type cartWrite func(ctx context.Context, userID uuid.UUID, line model.CartLine) (*service.CartView, error)

// CartHandler handles cart requests for the authenticated user.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// AddItem handles POST /cart/items requests.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.service.AddItem)
}

// UpdateItem handles PATCH /cart/items requests.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.service.UpdateItem)
}

func (h *CartHandler) write(w http.ResponseWriter, r *http.Request, apply cartWrite) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var line model.CartLine
	if err := decodeJSON(w, r, &line); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	view, err := apply(r.Context(), caller.UserID, line)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
