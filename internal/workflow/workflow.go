// Package workflow holds the checked transition tables for orders and returns.
package workflow

import (
	"fmt"

	"marketplace/internal/model"
)

// Table is an explicit set of allowed state transitions.
type Table[S comparable] struct {
	name  string
	edges map[S]map[S]struct{}
	known map[S]struct{}
}

// NewTable builds a table from a from -> allowed destinations map.
func NewTable[S comparable](name string, edges map[S][]S) *Table[S] {
	t := &Table[S]{
		name:  name,
		edges: make(map[S]map[S]struct{}, len(edges)),
		known: make(map[S]struct{}),
	}
	for from, tos := range edges {
		t.known[from] = struct{}{}
		set := make(map[S]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
			t.known[to] = struct{}{}
		}
		t.edges[from] = set
	}
	return t
}

// Allowed reports whether from -> to is in the table.
func (t *Table[S]) Allowed(from, to S) bool {
	_, ok := t.edges[from][to]
	return ok
}

// Known reports whether s appears anywhere in the table.
func (t *Table[S]) Known(s S) bool {
	_, ok := t.known[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (t *Table[S]) Terminal(s S) bool {
	return len(t.edges[s]) == 0
}

// Check validates from -> to. A forced transition skips the table but still
// requires a known destination that differs from the current state, and never
// leaves a terminal state.
func (t *Table[S]) Check(from, to S, force bool) error {
	if !t.Known(to) {
		return fmt.Errorf("%w: unknown %s status %v", model.ErrInvalidTransition, t.name, to)
	}
	if from == to {
		return fmt.Errorf("%w: %s already %v", model.ErrInvalidTransition, t.name, to)
	}
	if t.Terminal(from) {
		return fmt.Errorf("%w: %s %v is final", model.ErrInvalidTransition, t.name, from)
	}
	if force || t.Allowed(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s %v -> %v", model.ErrInvalidTransition, t.name, from, to)
}

// Orders is the order lifecycle table.
var Orders = NewTable("order", map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending:          {model.OrderProcessing, model.OrderCancelled},
	model.OrderProcessing:       {model.OrderShipped, model.OrderCancelled},
	model.OrderShipped:          {model.OrderDelivered},
	model.OrderDelivered:        {model.OrderReturnRequested},
	model.OrderReturnRequested:  {model.OrderReturnProcessing},
	model.OrderReturnProcessing: {model.OrderReturned},
})

// Returns is the return/refund table. CANCELLED is reachable from every non-terminal state.
var Returns = NewTable("return", map[model.ReturnStatus][]model.ReturnStatus{
	model.ReturnRequested:       {model.ReturnApproved, model.ReturnRejected, model.ReturnCancelled},
	model.ReturnApproved:        {model.ReturnShipped, model.ReturnCancelled},
	model.ReturnShipped:         {model.ReturnReceived, model.ReturnCancelled},
	model.ReturnReceived:        {model.ReturnRefundInitiated, model.ReturnCancelled},
	model.ReturnRefundInitiated: {model.ReturnRefundCompleted, model.ReturnCancelled},
})

// Cancellable reports whether an order in status s may be cancelled by its buyer.
func Cancellable(s model.OrderStatus) bool {
	return Orders.Allowed(s, model.OrderCancelled)
}

// HoldsStock reports whether an order in status s still holds its stock
// reservation. Delivered goods have left the warehouse and returns restock on refund.
func HoldsStock(s model.OrderStatus) bool {
	switch s {
	case model.OrderPending, model.OrderProcessing, model.OrderShipped:
		return true
	}
	return false
}

// InReturn reports whether an order is waiting on an open return.
func InReturn(s model.OrderStatus) bool {
	return s == model.OrderReturnRequested || s == model.OrderReturnProcessing
}

// ReturnFamily reports whether s is driven by the return workflow rather than fulfilment.
func ReturnFamily(s model.OrderStatus) bool {
	switch s {
	case model.OrderReturnRequested, model.OrderReturnProcessing, model.OrderReturned:
		return true
	}
	return false
}
