package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per order, in the transaction that inserts it.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID              `json:"orderId"`
	OrderNumber     string                 `json:"orderNumber"`
	PaymentMethod   enums.PaymentMethod    `json:"paymentMethod"`
	PaymentStatus   enums.PaymentStatus    `json:"paymentStatus"`
	PaymentProvider *enums.PaymentProvider `json:"paymentProvider,omitempty"`
	TotalPrice      decimal.Decimal        `json:"totalPrice"`
	ItemCount       int                    `json:"itemCount"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// OrderPaidEvent is emitted when payment_status flips to Paid.
type OrderPaidEvent struct {
	OrderID          uuid.UUID             `json:"orderId"`
	OrderNumber      string                `json:"orderNumber"`
	Provider         enums.PaymentProvider `json:"provider"`
	GatewayOrderID   string                `json:"gatewayOrderId"`
	GatewayPaymentID string                `json:"gatewayPaymentId,omitempty"`
	Amount           decimal.Decimal       `json:"amount"`
	PaidAt           time.Time             `json:"paidAt"`
}

// OrderStatusChangedEvent records an admin fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// OrderDeletedEvent records an admin hard delete.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	ImageCount  int       `json:"imageCount"`
}
