package storefront

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/flashback-frames-backend/pkg/cart"
	pkgcheckout "github.com/angelmondragon/flashback-frames-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

var (
	// ErrPaymentDismissed means the shopper closed the hosted widget.
	ErrPaymentDismissed = errors.New("payment dismissed")
	// ErrPaymentFailed means the hosted widget reported a failed payment.
	ErrPaymentFailed = errors.New("payment failed")
)

// HostedWidget opens the hosted payment UI for a session and returns the
// payment proof, ErrPaymentDismissed or ErrPaymentFailed.
type HostedWidget interface {
	Open(ctx context.Context, session HostedSession) (HostedProof, error)
}

// Checkout drives a cart through one of the payment paths. The cart is
// cleared only after the server confirms an order; nothing is retried.
type Checkout struct {
	client   *Client
	cart     *cart.Cart
	maxItems int
}

// NewCheckout binds a client to the shopper's cart.
func NewCheckout(client *Client, c *cart.Cart) (*Checkout, error) {
	if client == nil {
		return nil, errors.New("storefront client required")
	}
	if c == nil {
		return nil, errors.New("cart required")
	}
	return &Checkout{client: client, cart: c, maxItems: pkgcheckout.MaxItems}, nil
}

// PlaceCashOnDelivery submits the cart as a COD order. When the order is
// placed but the emptied cart cannot be persisted, the order is returned
// together with the error.
func (co *Checkout) PlaceCashOnDelivery(ctx context.Context, contact Contact) (*Order, error) {
	items, err := co.prepare(contact)
	if err != nil {
		return nil, err
	}
	order, err := co.client.PlaceCODOrder(ctx, contact, items, co.client.NewIdempotencyKey())
	if err != nil {
		return nil, err
	}
	return order, co.clearCart(ctx)
}

// PayHosted opens a hosted session for the cart total, hands it to widget
// and, only on a completed payment, submits the proof with the order.
func (co *Checkout) PayHosted(ctx context.Context, contact Contact, widget HostedWidget) (*Order, error) {
	if widget == nil {
		return nil, errors.New("hosted widget required")
	}
	items, err := co.prepare(contact)
	if err != nil {
		return nil, err
	}

	session, err := co.client.CreateHostedSession(ctx, co.cart.Total())
	if err != nil {
		return nil, err
	}
	proof, err := widget.Open(ctx, *session)
	if err != nil {
		if errors.Is(err, ErrPaymentDismissed) || errors.Is(err, ErrPaymentFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if proof.SessionID == "" {
		proof.SessionID = session.SessionID
	}

	order, err := co.client.VerifyAndCreate(ctx, contact, items, proof, co.client.NewIdempotencyKey())
	if err != nil {
		return nil, err
	}
	return order, co.clearCart(ctx)
}

// StartRedirect creates the pending order and returns where to send the
// shopper. The cart is kept until ConfirmRedirect sees the payment.
func (co *Checkout) StartRedirect(ctx context.Context, contact Contact) (*RedirectStart, error) {
	items, err := co.prepare(contact)
	if err != nil {
		return nil, err
	}
	return co.client.InitiateRedirect(ctx, contact, items, co.cart.Total(), co.client.NewIdempotencyKey())
}

// ConfirmRedirect polls the payment once and clears the cart when it is paid.
func (co *Checkout) ConfirmRedirect(ctx context.Context, merchantTxnID string) (*RedirectStatus, error) {
	if merchantTxnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant transaction id is required")
	}
	status, err := co.client.RedirectStatus(ctx, merchantTxnID)
	if err != nil {
		return nil, err
	}
	if !status.Paid {
		return status, nil
	}
	return status, co.clearCart(ctx)
}

// prepare applies the same checks the server does before any request is sent.
func (co *Checkout) prepare(contact Contact) ([]cart.Item, error) {
	items := co.cart.Items()
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := pkgcheckout.ValidateItemCount(len(items), co.maxItems); err != nil {
		return nil, err
	}
	if missing := co.cart.MissingImages(); len(missing) > 0 {
		ids := make([]string, len(missing))
		for i, item := range missing {
			ids[i] = item.ID
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "every item needs an image").
			WithDetails(map[string]any{"itemIds": ids})
	}
	if _, err := pkgcheckout.ValidateContact(contact); err != nil {
		return nil, err
	}
	return items, nil
}

func (co *Checkout) clearCart(ctx context.Context) error {
	if err := co.cart.Clear(ctx); err != nil {
		return fmt.Errorf("order placed but cart not cleared: %w", err)
	}
	return nil
}
