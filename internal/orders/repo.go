package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/flashback-frames-backend/pkg/checkout"
	"github.com/angelmondragon/flashback-frames-backend/pkg/db"
	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxOrderNumberAttempts bounds how often Create regenerates a colliding order number.
const MaxOrderNumberAttempts = 5

type repository struct {
	db        *gorm.DB
	newNumber func() string
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, newNumber: NewOrderNumber}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, newNumber: r.newNumber}
}

// Create inserts the order and its items. A blank order number is generated,
// and a colliding one is regenerated up to MaxOrderNumberAttempts times. Each
// attempt runs in its own savepoint so a collision leaves the outer
// transaction usable.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.OrderNumber == "" {
		order.OrderNumber = r.newNumber()
	}
	for i := range order.Items {
		order.Items[i].Position = i
	}

	var lastErr error
	for attempt := 1; attempt <= MaxOrderNumberAttempts; attempt++ {
		lastErr = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(order).Error
		})
		if lastErr == nil {
			return nil
		}
		if !isOrderNumberConflict(lastErr) {
			return lastErr
		}
		order.OrderNumber = r.newNumber()
	}
	return fmt.Errorf("order number still colliding after %d attempts: %w", MaxOrderNumberAttempts, lastErr)
}

func isOrderNumberConflict(err error) bool {
	return db.IsUniqueViolation(err, "ux_orders_order_id") ||
		(db.IsUniqueViolation(err, "") && strings.Contains(err.Error(), "orders.order_id"))
}

func (r *repository) withItems() *gorm.DB {
	return r.db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.withItems().WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByOrderNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.withItems().WithContext(ctx).
		Where("order_id = ?", NormalizeOrderNumber(number)).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIdentifier resolves an order number, or else the newest order for a mobile number.
func (r *repository) FindByIdentifier(ctx context.Context, identifier string) (*models.Order, error) {
	if IsOrderNumber(identifier) {
		return r.FindByOrderNumber(ctx, identifier)
	}
	if !checkout.ValidMobile(identifier) {
		return nil, gorm.ErrRecordNotFound
	}
	var order models.Order
	err := r.withItems().WithContext(ctx).
		Where("mobile = ?", checkout.NormalizeMobile(identifier)).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCorrelation(ctx context.Context, provider enums.PaymentProvider, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.withItems().WithContext(ctx).
		Where("payment_provider = ? AND gateway_order_id = ?", provider, gatewayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByGatewayPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var order models.Order
	err := r.withItems().WithContext(ctx).
		Where("gateway_payment_id = ?", paymentID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns one page of orders, newest first, with the total match count.
func (r *repository) List(ctx context.Context, params ListParams) ([]models.Order, int64, error) {
	page := params.Pagination.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := query.Session(&gorm.Session{}).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Order("created_at DESC").
		Order("id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkPaid flips a Pending order correlated by (provider, correlationID) to
// Paid. The WHERE clause is the compare-and-set: it reports true only for the
// caller whose update changed the row. gateway_payment_id is written only when
// still empty.
func (r *repository) MarkPaid(ctx context.Context, provider enums.PaymentProvider, correlationID, paymentID string, paidAt time.Time) (bool, error) {
	updates := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"paid_at":        paidAt,
		"updated_at":     paidAt,
	}
	if strings.TrimSpace(paymentID) != "" {
		updates["gateway_payment_id"] = gorm.Expr("COALESCE(gateway_payment_id, ?)", paymentID)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_provider = ? AND gateway_order_id = ? AND payment_status = ?",
			provider, correlationID, enums.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes the items and then the order row.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	res := conn.Delete(&models.Order{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPendingPrepaid returns gateway-correlated orders still awaiting payment
// whose created_at falls strictly between createdAfter and createdBefore, oldest first.
func (r *repository) ListPendingPrepaid(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("payment_method = ? AND payment_status = ?", enums.PaymentMethodPrepaid, enums.PaymentStatusPending).
		Where("payment_provider IS NOT NULL AND gateway_order_id IS NOT NULL").
		Where("created_at < ? AND created_at > ?", createdBefore, createdAfter).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
