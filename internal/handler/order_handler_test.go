package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func validOrderRequest() *model.CreateOrderRequest {
	return &model.CreateOrderRequest{
		CartSnapshot:  []model.CartLine{{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 2}},
		AddressID:     uuid.New(),
		PaymentMethod: model.PaymentWallet,
	}
}

func TestOrderHandler_Create(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		caller         *model.Actor
		requestBody    interface{}
		mockReturn     *model.CreateOrderResponse
		mockError      error
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			caller:         &buyer,
			requestBody:    validOrderRequest(),
			mockReturn:     &model.CreateOrderResponse{OrderID: "ORD-1", Total: 51000, Status: model.OrderProcessing, PaymentStatus: model.PaymentCompleted},
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Unauthenticated",
			requestBody:    validOrderRequest(),
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   model.ErrCodeUnauthorised,
		},
		{
			name:           "Invalid JSON",
			caller:         &buyer,
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name:           "Unknown field",
			caller:         &buyer,
			requestBody:    `{"cartSnapshot":[],"totalAmount":1}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name:   "Unknown payment method",
			caller: &buyer,
			requestBody: func() *model.CreateOrderRequest {
				req := validOrderRequest()
				req.PaymentMethod = "CRYPTO"
				return req
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeValidation,
		},
		{
			name:           "Insufficient stock",
			caller:         &buyer,
			requestBody:    validOrderRequest(),
			mockError:      fmt.Errorf("%w: variant xyz", model.ErrInsufficientStock),
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeInsufficientStock,
			expectService:  true,
		},
		{
			name:           "Coupon rejected",
			caller:         &buyer,
			requestBody:    validOrderRequest(),
			mockError:      model.ErrCouponExpired,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   model.ErrCodeCouponRejected,
			expectService:  true,
		},
		{
			name:           "Gateway unavailable",
			caller:         &buyer,
			requestBody:    validOrderRequest(),
			mockError:      model.ErrGatewayUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   model.ErrCodeGatewayUnavailable,
			expectService:  true,
		},
		{
			name:           "Service internal error",
			caller:         &buyer,
			requestBody:    validOrderRequest(),
			mockError:      errors.New("database connection failed"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   model.ErrCodeInternalError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, logger)

			if tt.expectService {
				mockService.On("CreateOrder", mock.Anything, *tt.caller, mock.AnythingOfType("*model.CreateOrderRequest")).
					Return(tt.mockReturn, tt.mockError)
			}

			req := newRequest(t, http.MethodPost, "/orders/create", tt.requestBody, tt.caller, nil)
			w := httptest.NewRecorder()

			handler.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeErrorResponse(t, w).Error)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Create_ValidationMessage(t *testing.T) {
	handler := NewOrderHandler(new(MockOrderService), zerolog.Nop())

	req := newRequest(t, http.MethodPost, "/orders/create", map[string]string{"paymentMethod": "COD"}, &buyer, nil)
	w := httptest.NewRecorder()
	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeErrorResponse(t, w)
	assert.Contains(t, resp.Message, "addressId is required")
	assert.Contains(t, resp.Message, "cartSnapshot is required")
}

func TestOrderHandler_GetByID(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name           string
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
	}{
		{name: "Success", mockReturn: &model.Order{ID: "ORD-1", Status: model.OrderPending}, expectedStatus: http.StatusOK},
		{name: "Not found", mockError: model.ErrOrderNotFound, expectedStatus: http.StatusNotFound},
		{name: "Service error", mockError: errors.New("connection reset"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, logger)

			mockService.On("GetByID", mock.Anything, buyer, "ORD-1").Return(tt.mockReturn, tt.mockError)

			req := newRequest(t, http.MethodGet, "/orders/ORD-1", nil, &buyer, map[string]string{"orderId": "ORD-1"})
			w := httptest.NewRecorder()

			handler.GetByID(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	seller := model.Actor{UserID: uuid.New(), Role: model.RoleSeller}
	params := map[string]string{"orderId": "ORD-1"}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService, zerolog.Nop())

		mockService.On("UpdateStatus", mock.Anything, seller, "ORD-1", &model.UpdateOrderStatusRequest{Status: model.OrderShipped, Description: "via courier"}).
			Return(&model.OrderStatusResponse{OrderID: "ORD-1", Status: model.OrderShipped}, nil)

		req := newRequest(t, http.MethodPatch, "/orders/status/ORD-1", map[string]string{"status": "SHIPPED", "description": "via courier"}, &seller, params)
		w := httptest.NewRecorder()
		handler.UpdateStatus(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"SHIPPED"`)
		mockService.AssertExpectations(t)
	})

	t.Run("Invalid transition", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService, zerolog.Nop())

		mockService.On("UpdateStatus", mock.Anything, seller, "ORD-1", mock.Anything).
			Return(nil, fmt.Errorf("%w: DELIVERED -> PENDING", model.ErrInvalidTransition))

		req := newRequest(t, http.MethodPatch, "/orders/status/ORD-1", map[string]string{"status": "PENDING"}, &seller, params)
		w := httptest.NewRecorder()
		handler.UpdateStatus(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeErrorResponse(t, w)
		assert.Equal(t, model.ErrCodeInvalidTransition, resp.Error)
		assert.Contains(t, resp.Message, "DELIVERED -> PENDING")
	})

	t.Run("Missing status", func(t *testing.T) {
		mockService := new(MockOrderService)
		handler := NewOrderHandler(mockService, zerolog.Nop())

		req := newRequest(t, http.MethodPatch, "/orders/status/ORD-1", map[string]string{}, &seller, params)
		w := httptest.NewRecorder()
		handler.UpdateStatus(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_Cancel(t *testing.T) {
	tests := []struct {
		name           string
		mockError      error
		expectedStatus int
	}{
		{name: "Success", expectedStatus: http.StatusOK},
		{name: "Already shipped", mockError: model.ErrInvalidTransition, expectedStatus: http.StatusConflict},
		{name: "Forbidden", mockError: model.ErrForbidden, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, zerolog.Nop())

			var resp *model.OrderStatusResponse
			if tt.mockError == nil {
				resp = &model.OrderStatusResponse{OrderID: "ORD-1", Status: model.OrderCancelled}
			}
			mockService.On("Cancel", mock.Anything, buyer, "ORD-1").Return(resp, tt.mockError)

			req := newRequest(t, http.MethodPatch, "/orders/cancel/ORD-1", nil, &buyer, map[string]string{"orderId": "ORD-1"})
			w := httptest.NewRecorder()
			handler.Cancel(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_RequestReturn(t *testing.T) {
	mockService := new(MockOrderService)
	handler := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("RequestReturn", mock.Anything, buyer, "ORD-1", &model.ReturnOrderRequest{ReturnReason: "wrong size"}).
		Return(nil, model.ErrReturnWindowClosed)

	req := newRequest(t, http.MethodPatch, "/orders/return/ORD-1", map[string]string{"returnReason": "wrong size"}, &buyer, map[string]string{"orderId": "ORD-1"})
	w := httptest.NewRecorder()
	handler.RequestReturn(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, model.ErrCodeReturnWindowClosed, decodeErrorResponse(t, w).Error)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_CreatePaymentIntent(t *testing.T) {
	mockService := new(MockOrderService)
	handler := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("CreatePaymentIntent", mock.Anything, buyer, &model.PaymentIntentRequest{OrderID: "ORD-1", Amount: 51000}).
		Return(&model.PaymentIntentResponse{Order: model.PaymentIntent{ID: "order_x", Amount: 51000}}, nil)

	req := newRequest(t, http.MethodPost, "/orders/create-razorpay-order", map[string]interface{}{"orderId": "ORD-1", "amount": 51000}, &buyer, nil)
	w := httptest.NewRecorder()
	handler.CreatePaymentIntent(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"order_x"`)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_VerifyPayment(t *testing.T) {
	body := map[string]string{
		"razorpay_order_id":   "order_x",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "deadbeef",
	}

	tests := []struct {
		name           string
		mockReturn     *model.VerifyPaymentResponse
		mockError      error
		expectedStatus int
	}{
		{name: "Verified", mockReturn: &model.VerifyPaymentResponse{Verified: true, OrderID: "ORD-1"}, expectedStatus: http.StatusOK},
		{name: "Bad signature", mockError: model.ErrSignatureInvalid, expectedStatus: http.StatusBadRequest},
		{name: "Unknown order", mockError: model.ErrOrderNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			handler := NewOrderHandler(mockService, zerolog.Nop())

			mockService.On("VerifyPayment", mock.Anything, &model.VerifyPaymentRequest{
				ExternalOrderID:   "order_x",
				ExternalPaymentID: "pay_1",
				Signature:         "deadbeef",
			}).Return(tt.mockReturn, tt.mockError)

			req := newRequest(t, http.MethodPost, "/orders/verify-payment", body, nil, nil)
			w := httptest.NewRecorder()
			handler.VerifyPayment(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}
