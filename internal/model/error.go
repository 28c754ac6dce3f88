package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeCartMismatch        = "CART_MISMATCH"
	ErrCodeCouponRejected      = "COUPON_REJECTED"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeReturnWindowClosed  = "RETURN_WINDOW_CLOSED"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeSignatureInvalid    = "SIGNATURE_INVALID"
	ErrCodePaymentState        = "PAYMENT_STATE_CONFLICT"
	ErrCodeDuplicate           = "DUPLICATE"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeGatewayUnavailable  = "GATEWAY_UNAVAILABLE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound   = NewDomainError(ErrCodeNotFound, "One or more products not found")
	ErrVariantNotFound   = NewDomainError(ErrCodeNotFound, "Variant not found")
	ErrAddressNotFound   = NewDomainError(ErrCodeNotFound, "Address not found")
	ErrOrderNotFound     = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrReturnNotFound    = NewDomainError(ErrCodeNotFound, "Return not found")
	ErrOrderItemNotFound = NewDomainError(ErrCodeNotFound, "Order item not found")
	ErrInvalidQuantity   = NewDomainError(ErrCodeValidation, "Quantity must be greater than zero")
	ErrEmptyCart         = NewDomainError(ErrCodeValidation, "Cart is empty")
	ErrInvalidAmount     = NewDomainError(ErrCodeValidation, "Amount must be greater than zero")
	ErrCartMismatch      = NewDomainError(ErrCodeCartMismatch, "Submitted cart does not match the stored cart")
	ErrInvalidPayment    = NewDomainError(ErrCodeValidation, "Unknown payment method")

	ErrInsufficientStock = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock for one or more variants")

	ErrCouponNotFound     = NewDomainError(ErrCodeCouponRejected, "Coupon not found")
	ErrCouponInactive     = NewDomainError(ErrCodeCouponRejected, "Coupon is not active")
	ErrCouponNotStarted   = NewDomainError(ErrCodeCouponRejected, "Coupon is not valid yet")
	ErrCouponExpired      = NewDomainError(ErrCodeCouponRejected, "Coupon has expired")
	ErrCouponExhausted    = NewDomainError(ErrCodeCouponRejected, "Coupon usage limit reached")
	ErrCouponMinPurchase  = NewDomainError(ErrCodeCouponRejected, "Subtotal is below the coupon minimum purchase")
	ErrCouponAlreadyUsed  = NewDomainError(ErrCodeCouponRejected, "Coupon already used by this user")
	ErrInvalidTransition  = NewDomainError(ErrCodeInvalidTransition, "Status transition is not allowed")
	ErrReturnWindowClosed = NewDomainError(ErrCodeReturnWindowClosed, "Return window has closed")
	ErrReturnInProgress   = NewDomainError(ErrCodeDuplicate, "A return is already open for this order")

	ErrInsufficientBalance = NewDomainError(ErrCodeInsufficientBalance, "Insufficient wallet balance")
	ErrSignatureInvalid    = NewDomainError(ErrCodeSignatureInvalid, "Payment signature verification failed")
	ErrPaymentState        = NewDomainError(ErrCodePaymentState, "Order payment is not in a state that allows this operation")
	ErrAmountMismatch      = NewDomainError(ErrCodeValidation, "Amount does not match the order total")
	ErrDuplicatePayout     = NewDomainError(ErrCodeDuplicate, "Seller payout already recorded for this order")
	ErrGatewayUnavailable  = NewDomainError(ErrCodeGatewayUnavailable, "Payment gateway unavailable")

	ErrUnauthorised = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden    = NewDomainError(ErrCodeForbidden, "Operation not permitted for this user")
)
