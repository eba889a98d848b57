package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/angelmondragon/flashback-frames-backend/pkg/outbox"
	"github.com/angelmondragon/flashback-frames-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type imageDeleter interface {
	DeleteAll(ctx context.Context, keys []string) error
}

type paymentMetrics interface {
	IncPaymentConfirmed(provider, source string)
}

// Service covers order tracking, the admin console and the shared paid transition.
type Service interface {
	Track(ctx context.Context, identifier string) (*OrderDTO, error)
	Get(ctx context.Context, ref string) (*OrderDTO, error)
	List(ctx context.Context, params ListParams) (*OrderList, error)
	UpdateStatus(ctx context.Context, ref, status string, actor *outbox.ActorRef) (*OrderDTO, error)
	Delete(ctx context.Context, ref string, actor *outbox.ActorRef) error
	MarkPaid(ctx context.Context, confirmation PaymentConfirmation) (*MarkPaidResult, error)
}

// PaymentConfirmation identifies a provider-confirmed payment.
type PaymentConfirmation struct {
	Provider      enums.PaymentProvider
	CorrelationID string
	PaymentID     string
	// Source labels who observed the payment: callback, poll or reconcile.
	Source string
}

// MarkPaidResult reports the order after the transition and whether this call performed it.
type MarkPaidResult struct {
	Order   *OrderDTO
	Flipped bool
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Images  imageDeleter
	Metrics paymentMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	images  imageDeleter
	metrics paymentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Images == nil {
		return nil, fmt.Errorf("image deleter required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		images:  params.Images,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) Track(ctx context.Context, identifier string) (*OrderDTO, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id or mobile number is required")
	}
	order, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, notFoundOr(err, "track order")
	}
	return FromModel(order), nil
}

func (s *service) Get(ctx context.Context, ref string) (*OrderDTO, error) {
	order, err := s.resolve(ctx, s.repo, ref)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*OrderList, error) {
	params.Pagination = params.Pagination.Normalize()
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return &OrderList{
		Orders: out,
		Page: pagination.Page{
			Limit:  params.Pagination.Limit,
			Offset: params.Pagination.Offset,
			Total:  total,
		},
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, ref, rawStatus string, actor *outbox.ActorRef) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(rawStatus)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": rawStatus, "allowed": enums.OrderStatuses()})
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.resolve(ctx, repo, ref)
		if err != nil {
			return err
		}
		updated = order
		if order.Status == status {
			return nil
		}
		if err := repo.UpdateStatus(ctx, order.ID, status); err != nil {
			return notFoundOr(err, "update order status")
		}
		from := order.Status
		order.Status = status
		order.UpdatedAt = s.now()
		return s.outbox.Emit(ctx, tx, statusChangedEvent(order, from, actor))
	})
	if err != nil {
		return nil, err
	}
	s.info(ctx, updated, "order.status_changed")
	return FromModel(updated), nil
}

// Delete removes every stored image first. Any image failure aborts with a
// dependency error and leaves the row in place so the call can be retried.
func (s *service) Delete(ctx context.Context, ref string, actor *outbox.ActorRef) error {
	order, err := s.resolve(ctx, s.repo, ref)
	if err != nil {
		return err
	}

	if err := s.images.DeleteAll(ctx, order.ImageKeys()); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.OrderNumber), "order.delete.images_failed", err)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not delete order images, please retry")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, order.ID); err != nil {
			return notFoundOr(err, "delete order")
		}
		return s.outbox.Emit(ctx, tx, deletedEvent(order, actor))
	})
	if err != nil {
		return err
	}
	s.info(ctx, order, "order.deleted")
	return nil
}

// MarkPaid is the single idempotent Pending to Paid transition. Concurrent
// confirmations race on the conditional update and only the winner emits order_paid.
func (s *service) MarkPaid(ctx context.Context, c PaymentConfirmation) (*MarkPaidResult, error) {
	if !c.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}
	if strings.TrimSpace(c.CorrelationID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "correlation id is required")
	}

	var (
		order   *models.Order
		flipped bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		flipped, err = repo.MarkPaid(ctx, c.Provider, c.CorrelationID, c.PaymentID, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		order, err = repo.FindByCorrelation(ctx, c.Provider, c.CorrelationID)
		if err != nil {
			return notFoundOr(err, "load paid order")
		}
		if !flipped {
			return nil
		}
		return s.outbox.Emit(ctx, tx, PaidEvent(order))
	})
	if err != nil {
		return nil, err
	}

	if flipped {
		if s.metrics != nil {
			s.metrics.IncPaymentConfirmed(string(c.Provider), c.Source)
		}
		s.info(ctx, order, "order.paid")
	}
	return &MarkPaidResult{Order: FromModel(order), Flipped: flipped}, nil
}

// resolve accepts either the uuid primary key or the FF- order number.
func (s *service) resolve(ctx context.Context, repo Repository, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	var (
		order *models.Order
		err   error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		order, err = repo.FindByID(ctx, id)
	} else if IsOrderNumber(ref) {
		order, err = repo.FindByOrderNumber(ctx, ref)
	} else {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	return order, nil
}

func (s *service) info(ctx context.Context, order *models.Order, msg string) {
	if s.logg == nil || order == nil {
		return
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.OrderNumber), map[string]any{
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	})
	s.logg.Info(logCtx, msg)
}

func notFoundOr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
