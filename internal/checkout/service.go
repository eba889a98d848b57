package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/flashback-frames-backend/internal/media"
	"github.com/angelmondragon/flashback-frames-backend/internal/orders"
	"github.com/angelmondragon/flashback-frames-backend/internal/payments"
	pkgcheckout "github.com/angelmondragon/flashback-frames-backend/pkg/checkout"
	"github.com/angelmondragon/flashback-frames-backend/pkg/db"
	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/angelmondragon/flashback-frames-backend/pkg/outbox"
)

const (
	callbackPath      = "/api/payment/phonepe/callback"
	paymentStatusPath = "/payment-status"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type imageStore interface {
	ValidateImages(images []media.Image) ([]string, error)
	UploadAll(ctx context.Context, images []media.Image) ([]media.StoredImage, error)
	DeleteAll(ctx context.Context, keys []string) error
}

type paymentConfirmer interface {
	MarkPaid(ctx context.Context, confirmation orders.PaymentConfirmation) (*orders.MarkPaidResult, error)
}

type checkoutMetrics interface {
	IncOrderCreated(method, provider string)
	IncGatewayError(provider, operation string)
}

// Service is the server side of the three checkout paths. It is the trust
// boundary: totals are recomputed from the catalog and nothing is persisted
// or uploaded until every check passes.
type Service interface {
	PlaceCOD(ctx context.Context, input CheckoutInput) (*orders.OrderDTO, error)
	CreateHostedSession(ctx context.Context, amount decimal.Decimal) (*payments.Session, error)
	VerifyAndCreate(ctx context.Context, input CheckoutInput, proof HostedProof) (*orders.OrderDTO, error)
	InitiateRedirect(ctx context.Context, input CheckoutInput, clientAmount *decimal.Decimal) (*RedirectResult, error)
	HandleRedirectCallback(ctx context.Context, body []byte, signature string) (*CallbackResult, error)
	CheckRedirectStatus(ctx context.Context, merchantTxnID string) (*RedirectStatus, error)
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	Tx          txRunner
	Orders      orders.Repository
	Payments    paymentConfirmer
	Prices      PriceLookup
	Images      imageStore
	Providers   *payments.Registry
	Outbox      outboxPublisher
	Metrics     checkoutMetrics
	Logger      *logger.Logger
	FrontendURL string
	BackendURL  string
	MaxItems    int
	Now         func() time.Time
	NewTxnID    func(now time.Time) string
}

type service struct {
	tx          txRunner
	orders      orders.Repository
	payments    paymentConfirmer
	prices      PriceLookup
	images      imageStore
	providers   *payments.Registry
	outbox      outboxPublisher
	metrics     checkoutMetrics
	logg        *logger.Logger
	frontendURL string
	backendURL  string
	maxItems    int
	now         func() time.Time
	newTxnID    func(now time.Time) string
}

// NewService builds the checkout service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Payments == nil:
		return nil, fmt.Errorf("payment confirmer required")
	case p.Prices == nil:
		return nil, fmt.Errorf("price lookup required")
	case p.Images == nil:
		return nil, fmt.Errorf("image store required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	s := &service{
		tx:          p.Tx,
		orders:      p.Orders,
		payments:    p.Payments,
		prices:      p.Prices,
		images:      p.Images,
		providers:   p.Providers,
		outbox:      p.Outbox,
		metrics:     p.Metrics,
		logg:        p.Logger,
		frontendURL: strings.TrimRight(strings.TrimSpace(p.FrontendURL), "/"),
		backendURL:  strings.TrimRight(strings.TrimSpace(p.BackendURL), "/"),
		maxItems:    p.MaxItems,
		now:         p.Now,
		newTxnID:    p.NewTxnID,
	}
	if s.providers == nil {
		s.providers = payments.NewRegistry()
	}
	if s.maxItems <= 0 {
		s.maxItems = pkgcheckout.MaxItems
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newTxnID == nil {
		s.newTxnID = NewMerchantTransactionID
	}
	return s, nil
}

// NewMerchantTransactionID returns MT{unixMillis}{4 hex}.
func NewMerchantTransactionID(now time.Time) string {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return "MT" + strconv.FormatInt(now.UnixMilli(), 10) + hex.EncodeToString(buf[:])
}

// prepared is a fully validated checkout, ready to upload and persist.
type prepared struct {
	contact pkgcheckout.Contact
	lines   []pricedLine
	images  []media.Image
	total   decimal.Decimal
}

// prepare runs every check in order: contact, item count, image count,
// image content, catalog lookup and options, then the total.
func (s *service) prepare(ctx context.Context, input CheckoutInput) (*prepared, error) {
	contact, err := pkgcheckout.ValidateContact(input.Contact.toContact())
	if err != nil {
		return nil, err
	}
	if err := pkgcheckout.ValidateItemCount(len(input.Items), s.maxItems); err != nil {
		return nil, err
	}
	if len(input.Images) != len(input.Items) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "every item needs exactly one image").
			WithDetails(map[string]int{"items": len(input.Items), "images": len(input.Images)})
	}
	images := input.mediaImages()
	if _, err := s.images.ValidateImages(images); err != nil {
		return nil, err
	}
	lines, total, err := priceItems(ctx, s.prices, input.Items)
	if err != nil {
		return nil, err
	}
	return &prepared{contact: contact, lines: lines, images: images, total: total}, nil
}

// payment describes the payment columns of a new order.
type payment struct {
	method    enums.PaymentMethod
	status    enums.PaymentStatus
	provider  *enums.PaymentProvider
	gatewayID string
	paymentID string
	paidAt    *time.Time
}

// persist uploads the images and inserts the order with its events in one
// transaction. A failed insert deletes the uploaded objects again.
func (s *service) persist(ctx context.Context, p *prepared, pay payment) (*models.Order, error) {
	stored, err := s.images.UploadAll(ctx, p.images)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(p, pay, stored)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, orders.CreatedEvent(order)); err != nil {
			return err
		}
		if pay.status == enums.PaymentStatusPaid {
			return s.outbox.Emit(ctx, tx, orders.PaidEvent(order))
		}
		return nil
	})
	if err != nil {
		keys := make([]string, len(stored))
		for i, img := range stored {
			keys[i] = img.Key
		}
		if cleanupErr := s.images.DeleteAll(ctx, keys); cleanupErr != nil && s.logg != nil {
			s.logg.Error(ctx, "checkout.compensation_failed", cleanupErr)
		}
		return nil, err
	}

	if s.metrics != nil {
		provider := ""
		if pay.provider != nil {
			provider = string(*pay.provider)
		}
		s.metrics.IncOrderCreated(string(pay.method), provider)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.OrderNumber), map[string]any{
			"payment_method": order.PaymentMethod,
			"payment_status": order.PaymentStatus,
			"total":          order.TotalPrice.StringFixed(2),
			"items":          len(order.Items),
		})
		s.logg.Info(logCtx, "order.created")
	}
	return order, nil
}

func (s *service) buildOrder(p *prepared, pay payment, stored []media.StoredImage) *models.Order {
	order := &models.Order{
		CustomerName:    p.contact.CustomerName,
		Mobile:          p.contact.Mobile,
		Address:         p.contact.Address,
		TotalPrice:      p.total,
		Status:          enums.OrderStatusReceived,
		PaymentMethod:   pay.method,
		PaymentStatus:   pay.status,
		PaymentProvider: pay.provider,
		PaidAt:          pay.paidAt,
		Items:           make([]models.OrderItem, len(p.lines)),
	}
	if p.contact.Email != "" {
		email := p.contact.Email
		order.Email = &email
	}
	if pay.gatewayID != "" {
		id := pay.gatewayID
		order.GatewayOrderID = &id
	}
	if pay.paymentID != "" {
		id := pay.paymentID
		order.GatewayPaymentID = &id
	}
	for i, line := range p.lines {
		order.Items[i] = models.OrderItem{
			Position:     i,
			ProductID:    line.product.ID,
			ProductName:  line.product.Name,
			ProductPrice: line.product.Price,
			Size:         strings.TrimSpace(line.input.Size),
			Material:     strings.TrimSpace(line.input.Material),
			Quantity:     line.input.Quantity,
			ImageKey:     stored[i].Key,
			ImageURL:     stored[i].URL,
		}
	}
	return order
}

func (s *service) PlaceCOD(ctx context.Context, input CheckoutInput) (*orders.OrderDTO, error) {
	p, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	order, err := s.persist(ctx, p, payment{
		method: enums.PaymentMethodCOD,
		status: enums.PaymentStatusPending,
	})
	if err != nil {
		return nil, internalOr(err, "create order")
	}
	return orders.FromModel(order), nil
}

func (s *service) CreateHostedSession(ctx context.Context, amount decimal.Decimal) (*payments.Session, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	provider, err := s.providers.Get(enums.PaymentProviderRazorpay)
	if err != nil {
		return nil, err
	}
	session, err := provider.CreateSession(ctx, payments.SessionRequest{AmountMinor: pkgcheckout.ToMinorUnits(amount)})
	if err != nil {
		return nil, s.gatewayError(ctx, enums.PaymentProviderRazorpay, "create_session", err)
	}
	return session, nil
}

// VerifyAndCreate creates a paid hosted-checkout order after the proof and
// amount check. A proof whose payment id already has an order returns that order.
func (s *service) VerifyAndCreate(ctx context.Context, input CheckoutInput, proof HostedProof) (*orders.OrderDTO, error) {
	proof = HostedProof{
		SessionID: strings.TrimSpace(proof.SessionID),
		PaymentID: strings.TrimSpace(proof.PaymentID),
		Signature: strings.TrimSpace(proof.Signature),
	}
	if proof.SessionID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment details are incomplete")
	}
	p, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	gateway, err := s.providers.Get(enums.PaymentProviderRazorpay)
	if err != nil {
		return nil, err
	}
	if err := gateway.Verify(ctx, proof, pkgcheckout.ToMinorUnits(p.total)); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			s.warn(ctx, "payment.verify.rejected", err, map[string]any{"gateway_order_id": proof.SessionID})
			return nil, err
		}
		return nil, s.gatewayError(ctx, enums.PaymentProviderRazorpay, "verify", err)
	}

	if existing, err := s.orders.FindByGatewayPaymentID(ctx, proof.PaymentID); err == nil {
		return orders.FromModel(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up payment")
	}

	provider := enums.PaymentProviderRazorpay
	paidAt := s.now()
	order, err := s.persist(ctx, p, payment{
		method:    enums.PaymentMethodPrepaid,
		status:    enums.PaymentStatusPaid,
		provider:  &provider,
		gatewayID: proof.SessionID,
		paymentID: proof.PaymentID,
		paidAt:    &paidAt,
	})
	if err != nil {
		// a concurrent request with the same proof won the insert; any other
		// clash means this gateway order already paid for a different order
		if db.IsUniqueViolation(err, "") {
			if existing, findErr := s.orders.FindByGatewayPaymentID(ctx, proof.PaymentID); findErr == nil {
				return orders.FromModel(existing), nil
			}
			s.warn(ctx, "payment.verify.duplicate_session", err, map[string]any{"gateway_order_id": proof.SessionID})
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment session already used for another order")
		}
		return nil, internalOr(err, "create paid order")
	}
	return orders.FromModel(order), nil
}

func (s *service) InitiateRedirect(ctx context.Context, input CheckoutInput, clientAmount *decimal.Decimal) (*RedirectResult, error) {
	p, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	if clientAmount != nil && !clientAmount.Equal(p.total) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match order total").
			WithDetails(map[string]string{"expected": p.total.StringFixed(2), "received": clientAmount.StringFixed(2)})
	}
	gateway, err := s.providers.Get(enums.PaymentProviderPhonePe)
	if err != nil {
		return nil, err
	}

	txnID := s.newTxnID(s.now())
	provider := enums.PaymentProviderPhonePe
	order, err := s.persist(ctx, p, payment{
		method:    enums.PaymentMethodPrepaid,
		status:    enums.PaymentStatusPending,
		provider:  &provider,
		gatewayID: txnID,
	})
	if err != nil {
		return nil, internalOr(err, "create pending order")
	}

	session, err := gateway.InitiateRedirect(ctx, payments.RedirectRequest{
		MerchantTransactionID: txnID,
		AmountMinor:           pkgcheckout.ToMinorUnits(p.total),
		Mobile:                order.Mobile,
		RedirectURL:           s.frontendURL + paymentStatusPath + "?merchantTransactionId=" + url.QueryEscape(txnID),
		CallbackURL:           s.backendURL + callbackPath,
	})
	if err != nil {
		// the order stays Pending; the sweep or a later poll can still confirm it
		if s.logg != nil {
			ctx = s.logg.WithOrderID(ctx, order.OrderNumber)
		}
		return nil, s.gatewayError(ctx, provider, "initiate", err)
	}
	return &RedirectResult{
		RedirectURL:           session.RedirectURL,
		MerchantTransactionID: txnID,
		OrderID:               order.OrderNumber,
	}, nil
}

// HandleRedirectCallback never fails on bad or unknown callbacks; it logs
// them and reports the outcome. Only internal failures are returned.
// Successes without a valid signature are re-checked with the provider
// before the order is marked paid.
func (s *service) HandleRedirectCallback(ctx context.Context, body []byte, signature string) (*CallbackResult, error) {
	gateway, err := s.providers.Get(enums.PaymentProviderPhonePe)
	if err != nil {
		return nil, err
	}
	status, err := gateway.ParseCallback(ctx, body, signature)
	if err != nil {
		s.warn(ctx, "payment.callback.rejected", err, nil)
		return &CallbackResult{Outcome: CallbackRejected}, nil
	}
	txnField := map[string]any{"merchant_transaction_id": status.CorrelationID}
	if !status.Success {
		s.warn(ctx, "payment.callback.failed", fmt.Errorf("provider code %s: %s", status.Code, status.Message), txnField)
		return &CallbackResult{Outcome: CallbackFailed, CorrelationID: status.CorrelationID}, nil
	}
	// An unsigned success is only a hint; the provider has to confirm it.
	if !status.Verified {
		confirmed, err := gateway.CheckStatus(ctx, status.CorrelationID)
		if err != nil || !confirmed.Success {
			if err == nil {
				err = fmt.Errorf("provider code %s: %s", confirmed.Code, confirmed.Message)
			}
			s.warn(ctx, "payment.callback.unconfirmed", err, txnField)
			return &CallbackResult{Outcome: CallbackUnconfirmed, CorrelationID: status.CorrelationID}, nil
		}
		status = confirmed
	}

	res, err := s.payments.MarkPaid(ctx, orders.PaymentConfirmation{
		Provider:      enums.PaymentProviderPhonePe,
		CorrelationID: status.CorrelationID,
		PaymentID:     status.PaymentID,
		Source:        "callback",
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.warn(ctx, "payment.callback.ignored", err, txnField)
			return &CallbackResult{Outcome: CallbackUnknown, CorrelationID: status.CorrelationID}, nil
		}
		return nil, err
	}
	outcome := CallbackPaid
	if !res.Flipped {
		outcome = CallbackAlreadyPaid
	}
	return &CallbackResult{Outcome: outcome, CorrelationID: status.CorrelationID}, nil
}

func (s *service) CheckRedirectStatus(ctx context.Context, merchantTxnID string) (*RedirectStatus, error) {
	merchantTxnID = strings.TrimSpace(merchantTxnID)
	if merchantTxnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant transaction id is required")
	}
	order, err := s.orders.FindByCorrelation(ctx, enums.PaymentProviderPhonePe, merchantTxnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return &RedirectStatus{Paid: true, Code: "PAYMENT_SUCCESS", Message: "payment already confirmed", Order: orders.FromModel(order)}, nil
	}

	gateway, err := s.providers.Get(enums.PaymentProviderPhonePe)
	if err != nil {
		return nil, err
	}
	status, err := gateway.CheckStatus(ctx, merchantTxnID)
	if err != nil {
		return nil, s.gatewayError(ctx, enums.PaymentProviderPhonePe, "check_status", err)
	}
	if !status.Success {
		return &RedirectStatus{Paid: false, Code: status.Code, Message: status.Message, Order: orders.FromModel(order)}, nil
	}

	res, err := s.payments.MarkPaid(ctx, orders.PaymentConfirmation{
		Provider:      enums.PaymentProviderPhonePe,
		CorrelationID: merchantTxnID,
		PaymentID:     status.PaymentID,
		Source:        "poll",
	})
	if err != nil {
		return nil, err
	}
	return &RedirectStatus{Paid: true, Code: status.Code, Message: status.Message, Order: res.Order}, nil
}

func (s *service) gatewayError(ctx context.Context, provider enums.PaymentProvider, op string, err error) error {
	if s.metrics != nil {
		s.metrics.IncGatewayError(string(provider), op)
	}
	if s.logg != nil {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{"provider": provider, "operation": op}), "payment.gateway.error", err)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment could not be completed, please try again")
}

func (s *service) warn(ctx context.Context, msg string, err error, fields map[string]any) {
	if s.logg == nil {
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), msg)
}

func internalOr(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
