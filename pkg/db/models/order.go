package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
)

// Order is a customer's purchase of one or more customized framing items.
type Order struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string                 `gorm:"column:order_id;not null;uniqueIndex:ux_orders_order_id"`
	CustomerName     string                 `gorm:"column:customer_name;not null"`
	Mobile           string                 `gorm:"column:mobile;not null;index"`
	Email            *string                `gorm:"column:email"`
	Address          string                 `gorm:"column:address;not null"`
	Items            []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalPrice       decimal.Decimal        `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status           enums.OrderStatus      `gorm:"column:status;not null"`
	PaymentMethod    enums.PaymentMethod    `gorm:"column:payment_method;not null"`
	PaymentStatus    enums.PaymentStatus    `gorm:"column:payment_status;not null"`
	PaymentProvider  *enums.PaymentProvider `gorm:"column:payment_provider"`
	GatewayOrderID   *string                `gorm:"column:gateway_order_id"`
	GatewayPaymentID *string                `gorm:"column:gateway_payment_id"`
	PaidAt           *time.Time             `gorm:"column:paid_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ImageKeys lists the stored object keys of every item image.
func (o *Order) ImageKeys() []string {
	keys := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if item.ImageKey != "" {
			keys = append(keys, item.ImageKey)
		}
	}
	return keys
}
