package orders

import (
	"time"

	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/angelmondragon/flashback-frames-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListParams filters the admin order list.
type ListParams struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Pagination    pagination.Params
}

// OrderItemDTO is one line of an order as shown to customers and admins.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Material  string          `json:"material"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// OrderDTO is the transport shape of an order.
type OrderDTO struct {
	ID               uuid.UUID              `json:"id"`
	OrderID          string                 `json:"orderId"`
	CustomerName     string                 `json:"customerName"`
	Mobile           string                 `json:"mobile"`
	Email            *string                `json:"email,omitempty"`
	Address          string                 `json:"address"`
	Items            []OrderItemDTO         `json:"items"`
	TotalPrice       decimal.Decimal        `json:"totalPrice"`
	Status           enums.OrderStatus      `json:"status"`
	PaymentMethod    enums.PaymentMethod    `json:"paymentMethod"`
	PaymentStatus    enums.PaymentStatus    `json:"paymentStatus"`
	PaymentProvider  *enums.PaymentProvider `json:"paymentProvider,omitempty"`
	GatewayOrderID   *string                `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID *string                `json:"gatewayPaymentId,omitempty"`
	PaidAt           *time.Time             `json:"paidAt,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// OrderList is a page of orders for the admin console.
type OrderList struct {
	Orders []OrderDTO      `json:"orders"`
	Page   pagination.Page `json:"page"`
}

// FromModel maps an order row, with its items, onto the transport shape.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Price:     item.ProductPrice,
			Size:      item.Size,
			Material:  item.Material,
			Quantity:  item.Quantity,
			Image:     item.ImageURL,
		})
	}
	return &OrderDTO{
		ID:               o.ID,
		OrderID:          o.OrderNumber,
		CustomerName:     o.CustomerName,
		Mobile:           o.Mobile,
		Email:            o.Email,
		Address:          o.Address,
		Items:            items,
		TotalPrice:       o.TotalPrice,
		Status:           o.Status,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		PaymentProvider:  o.PaymentProvider,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		PaidAt:           o.PaidAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}
