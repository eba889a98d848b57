package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/flashback-frames-backend/internal/orders"
	"github.com/angelmondragon/flashback-frames-backend/internal/payments"
	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	reconcileMinAge = 10 * time.Minute
	reconcileMaxAge = 48 * time.Hour
	reconcileBatch  = 100

	reconcileSource = "reconcile"
)

type pendingOrderLister interface {
	ListPendingPrepaid(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]models.Order, error)
}

type providerLookup interface {
	Get(name enums.PaymentProvider) (payments.Provider, error)
}

type paymentConfirmer interface {
	MarkPaid(ctx context.Context, confirmation orders.PaymentConfirmation) (*orders.MarkPaidResult, error)
}

// PaymentReconcileJobParams wires the pending-payment sweep.
type PaymentReconcileJobParams struct {
	Logger    *logger.Logger
	Orders    pendingOrderLister
	Providers providerLookup
	Confirmer paymentConfirmer
	MinAge    time.Duration
	MaxAge    time.Duration
	Batch     int
}

// NewPaymentReconcileJob builds the sweep that promotes gateway-confirmed orders to Paid.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Providers == nil {
		return nil, fmt.Errorf("payment providers required")
	}
	if params.Confirmer == nil {
		return nil, fmt.Errorf("payment confirmer required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = reconcileMinAge
	}
	maxAge := params.MaxAge
	if maxAge <= minAge {
		maxAge = reconcileMaxAge
	}
	batch := params.Batch
	if batch <= 0 {
		batch = reconcileBatch
	}
	return &paymentReconcileJob{
		logg:      params.Logger,
		orders:    params.Orders,
		providers: params.Providers,
		confirmer: params.Confirmer,
		minAge:    minAge,
		maxAge:    maxAge,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type paymentReconcileJob struct {
	logg      *logger.Logger
	orders    pendingOrderLister
	providers providerLookup
	confirmer paymentConfirmer
	minAge    time.Duration
	maxAge    time.Duration
	batch     int
	now       func() time.Time
}

func (j *paymentReconcileJob) Name() string { return "pending-payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	pending, err := j.orders.ListPendingPrepaid(ctx, now.Add(-j.minAge), now.Add(-j.maxAge), j.batch)
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}

	var (
		errs      error
		confirmed int
		waiting   int
	)
	for i := range pending {
		flipped, err := j.reconcile(ctx, &pending[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", pending[i].OrderNumber, err))
			continue
		}
		if flipped {
			confirmed++
		} else {
			waiting++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":   len(pending),
		"confirmed": confirmed,
		"waiting":   waiting,
		"failed":    len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payment reconcile sweep complete")
	return errs
}

func (j *paymentReconcileJob) reconcile(ctx context.Context, order *models.Order) (bool, error) {
	if order.PaymentProvider == nil || order.GatewayOrderID == nil || *order.GatewayOrderID == "" {
		return false, nil
	}
	provider, err := j.providers.Get(*order.PaymentProvider)
	if err != nil {
		return false, err
	}
	status, err := provider.CheckStatus(ctx, *order.GatewayOrderID)
	if err != nil {
		return false, fmt.Errorf("check status: %w", err)
	}
	if !status.Success {
		return false, nil
	}
	res, err := j.confirmer.MarkPaid(ctx, orders.PaymentConfirmation{
		Provider:      *order.PaymentProvider,
		CorrelationID: *order.GatewayOrderID,
		PaymentID:     status.PaymentID,
		Source:        reconcileSource,
	})
	if err != nil {
		return false, fmt.Errorf("mark paid: %w", err)
	}
	return res.Flipped, nil
}
