package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the orders and order_items tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, number string) (*models.Order, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.Order, error)
	FindByCorrelation(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID string) (*models.Order, error)
	FindByGatewayPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	MarkPaid(ctx context.Context, provider enums.PaymentProvider, correlationID, paymentID string, paidAt time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListPendingPrepaid(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]models.Order, error)
}
