package handler

import (
	"net/http"

	"marketplace/internal/model"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReturnHandler handles return requests.
type ReturnHandler struct {
	service service.ReturnService
	logger  zerolog.Logger
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(service service.ReturnService, logger zerolog.Logger) *ReturnHandler {
	return &ReturnHandler{
		service: service,
		logger:  logger.With().Str("handler", "return").Logger(),
	}
}

// Create handles POST /return/create requests.
func (h *ReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CreateReturnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	ret, err := h.service.Create(r.Context(), caller, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, ret)
}

// GetByID handles GET /return/{returnId} requests.
func (h *ReturnHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.returnID(w, r)
	if !ok {
		return
	}

	ret, err := h.service.GetByID(r.Context(), caller, id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ret)
}

// Update handles PATCH /return/update/{returnId} requests.
func (h *ReturnHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.returnID(w, r)
	if !ok {
		return
	}

	var req model.UpdateReturnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	ret, err := h.service.UpdateStatus(r.Context(), caller, id, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ret)
}

func (h *ReturnHandler) returnID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "returnId"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid return ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
