package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the fulfillment stage of an order. It moves only by admin action.
type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "Received"
	OrderStatusInDesign  OrderStatus = "In Design"
	OrderStatusPrinting  OrderStatus = "Printing"
	OrderStatusReady     OrderStatus = "Ready"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusReceived,
	OrderStatusInDesign,
	OrderStatusPrinting,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// OrderStatuses returns the fixed set of fulfillment states in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// ParseOrderStatus converts raw input into an OrderStatus. Matching is exact.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == strings.TrimSpace(value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
