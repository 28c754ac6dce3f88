package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestReturnHandler_Create(t *testing.T) {
	itemID := uuid.New()
	body := map[string]interface{}{"orderId": "ORD-1", "itemId": itemID, "returnReason": "too small"}

	tests := []struct {
		name           string
		body           interface{}
		mockReturn     *model.Return
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{name: "Success", body: body, mockReturn: &model.Return{ID: uuid.New(), OrderID: "ORD-1", Status: model.ReturnRequested}, expectedStatus: http.StatusCreated, expectService: true},
		{name: "Window closed", body: body, mockError: model.ErrReturnWindowClosed, expectedStatus: http.StatusUnprocessableEntity, expectService: true},
		{name: "Already open", body: body, mockError: model.ErrReturnInProgress, expectedStatus: http.StatusConflict, expectService: true},
		{
			name:           "Unknown condition",
			body:           map[string]interface{}{"orderId": "ORD-1", "itemId": itemID, "returnReason": "x", "condition": "BROKEN"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockReturnService)
			handler := NewReturnHandler(mockService, zerolog.Nop())

			if tt.expectService {
				mockService.On("Create", mock.Anything, buyer, &model.CreateReturnRequest{OrderID: "ORD-1", ItemID: itemID, ReturnReason: "too small"}).
					Return(tt.mockReturn, tt.mockError)
			}

			req := newRequest(t, http.MethodPost, "/return/create", tt.body, &buyer, nil)
			w := httptest.NewRecorder()
			handler.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestReturnHandler_GetByID(t *testing.T) {
	returnID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReturnService)
		handler := NewReturnHandler(mockService, zerolog.Nop())

		mockService.On("GetByID", mock.Anything, buyer, returnID).Return(&model.Return{ID: returnID}, nil)

		req := newRequest(t, http.MethodGet, "/return/"+returnID.String(), nil, &buyer, map[string]string{"returnId": returnID.String()})
		w := httptest.NewRecorder()
		handler.GetByID(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Invalid UUID format", func(t *testing.T) {
		mockService := new(MockReturnService)
		handler := NewReturnHandler(mockService, zerolog.Nop())

		req := newRequest(t, http.MethodGet, "/return/abc", nil, &buyer, map[string]string{"returnId": "abc"})
		w := httptest.NewRecorder()
		handler.GetByID(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReturnHandler_Update(t *testing.T) {
	returnID := uuid.New()
	params := map[string]string{"returnId": returnID.String()}

	tests := []struct {
		name           string
		caller         model.Actor
		status         model.ReturnStatus
		mockError      error
		expectedStatus int
	}{
		{name: "Admin refunds", caller: admin, status: model.ReturnRefundCompleted, expectedStatus: http.StatusOK},
		{name: "Buyer cancels", caller: buyer, status: model.ReturnCancelled, expectedStatus: http.StatusOK},
		{name: "Buyer approves", caller: buyer, status: model.ReturnApproved, mockError: model.ErrForbidden, expectedStatus: http.StatusForbidden},
		{name: "Skipped step", caller: admin, status: model.ReturnReceived, mockError: model.ErrInvalidTransition, expectedStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockReturnService)
			handler := NewReturnHandler(mockService, zerolog.Nop())

			var ret *model.Return
			if tt.mockError == nil {
				ret = &model.Return{ID: returnID, Status: tt.status}
			}
			mockService.On("UpdateStatus", mock.Anything, tt.caller, returnID, &model.UpdateReturnRequest{Status: tt.status}).
				Return(ret, tt.mockError)

			req := newRequest(t, http.MethodPatch, "/return/update/"+returnID.String(), map[string]string{"status": string(tt.status)}, &tt.caller, params)
			w := httptest.NewRecorder()
			handler.Update(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}
