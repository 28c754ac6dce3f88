package model

import (
	"time"

	"github.com/google/uuid"
)

// ReturnStatus is the state of a return request.
type ReturnStatus string

const (
	ReturnRequested       ReturnStatus = "RETURN_REQUESTED"
	ReturnApproved        ReturnStatus = "RETURN_APPROVED"
	ReturnRejected        ReturnStatus = "RETURN_REJECTED"
	ReturnShipped         ReturnStatus = "RETURN_SHIPPED"
	ReturnReceived        ReturnStatus = "RETURN_RECEIVED"
	ReturnRefundInitiated ReturnStatus = "REFUND_INITIATED"
	ReturnRefundCompleted ReturnStatus = "REFUND_COMPLETED"
	ReturnCancelled       ReturnStatus = "CANCELLED"
)

// ItemCondition is the reported condition of a returned item.
type ItemCondition string

const (
	ConditionUnopened ItemCondition = "UNOPENED"
	ConditionUsed     ItemCondition = "USED"
	ConditionDamaged  ItemCondition = "DAMAGED"
)

// ReturnItem is one returned order line.
type ReturnItem struct {
	OrderItemID  uuid.UUID     `json:"itemId" db:"order_item_id"`
	ProductID    uuid.UUID     `json:"productId" db:"product_id"`
	VariantID    uuid.UUID     `json:"variantId" db:"variant_id"`
	Quantity     int           `json:"quantity" db:"quantity"`
	ReturnReason string        `json:"returnReason" db:"return_reason"`
	Condition    ItemCondition `json:"condition" db:"item_condition"`
}

// TimelineEntry is one append-only record of a return status change.
type TimelineEntry struct {
	Status    ReturnStatus `json:"status" db:"status"`
	Comment   string       `json:"comment" db:"comment"`
	UpdatedBy uuid.UUID    `json:"updatedBy" db:"updated_by"`
	Timestamp time.Time    `json:"timestamp" db:"created_at"`
}

// Return is a post-delivery reversal request for an order.
type Return struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OrderID       string          `json:"orderId" db:"order_id"`
	UserID        uuid.UUID       `json:"userId" db:"user_id"`
	Items         []ReturnItem    `json:"items"`
	Status        ReturnStatus    `json:"status" db:"status"`
	ReturnAmount  Money           `json:"returnAmount" db:"return_amount"`
	Timeline      []TimelineEntry `json:"timeline"`
	PickupAddress uuid.UUID       `json:"pickupAddressId" db:"pickup_address_id"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// CreateReturnRequest is the payload for POST /return/create.
type CreateReturnRequest struct {
	OrderID      string        `json:"orderId" validate:"required"`
	ItemID       uuid.UUID     `json:"itemId" validate:"required"`
	ReturnReason string        `json:"returnReason" validate:"required,max=500"`
	Condition    ItemCondition `json:"condition" validate:"omitempty,oneof=UNOPENED USED DAMAGED"`
}

// UpdateReturnRequest is the payload for PATCH /return/update/{returnId}.
type UpdateReturnRequest struct {
	Status  ReturnStatus `json:"status" validate:"required"`
	Comment string       `json:"comment" validate:"max=500"`
}
