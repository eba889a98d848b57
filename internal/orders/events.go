package orders

import (
	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/angelmondragon/flashback-frames-backend/pkg/outbox"
	"github.com/angelmondragon/flashback-frames-backend/pkg/outbox/payloads"
)

// CreatedEvent builds the order_created event for a freshly inserted order.
func CreatedEvent(order *models.Order) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderCreatedEvent{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			PaymentMethod:   order.PaymentMethod,
			PaymentStatus:   order.PaymentStatus,
			PaymentProvider: order.PaymentProvider,
			TotalPrice:      order.TotalPrice,
			ItemCount:       len(order.Items),
			CreatedAt:       order.CreatedAt,
		},
	}
}

// PaidEvent builds the order_paid event. The order must carry its provider and correlation id.
func PaidEvent(order *models.Order) outbox.DomainEvent {
	data := payloads.OrderPaidEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalPrice,
	}
	if order.PaymentProvider != nil {
		data.Provider = *order.PaymentProvider
	}
	if order.GatewayOrderID != nil {
		data.GatewayOrderID = *order.GatewayOrderID
	}
	if order.GatewayPaymentID != nil {
		data.GatewayPaymentID = *order.GatewayPaymentID
	}
	if order.PaidAt != nil {
		data.PaidAt = *order.PaidAt
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data:          data,
	}
}

func statusChangedEvent(order *models.Order, from enums.OrderStatus, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          order.Status,
		},
	}
}

func deletedEvent(order *models.Order, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderDeleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderDeletedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			ImageCount:  len(order.ImageKeys()),
		},
	}
}
