package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/flashback-frames-backend/internal/media"
	"github.com/angelmondragon/flashback-frames-backend/internal/orders"
	"github.com/angelmondragon/flashback-frames-backend/internal/payments"
	pkgcheckout "github.com/angelmondragon/flashback-frames-backend/pkg/checkout"
)

// ContactInput is the customer block of a checkout form.
type ContactInput struct {
	CustomerName string `json:"customerName" validate:"required,max=120"`
	Mobile       string `json:"mobile" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Address      string `json:"address" validate:"required"`
}

func (c ContactInput) toContact() pkgcheckout.Contact {
	return pkgcheckout.Contact{
		CustomerName: c.CustomerName,
		Mobile:       c.Mobile,
		Email:        c.Email,
		Address:      c.Address,
	}
}

// ItemInput is one cart line. Client prices are never accepted.
type ItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size" validate:"max=64"`
	Material  string    `json:"material" validate:"max=64"`
	Quantity  int       `json:"quantity" validate:"required,gte=1,lte=100"`
}

// ImageUpload is the customer photo for the item at the same position.
type ImageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// CheckoutInput is everything a checkout path needs to build an order.
type CheckoutInput struct {
	Contact ContactInput
	Items   []ItemInput
	Images  []ImageUpload
}

func (in CheckoutInput) mediaImages() []media.Image {
	out := make([]media.Image, len(in.Images))
	for i, img := range in.Images {
		out[i] = media.Image{FileName: img.FileName, ContentType: img.ContentType, Data: img.Data}
	}
	return out
}

// HostedProof is the hosted widget's payment proof.
type HostedProof = payments.HostedProof

// RedirectResult tells the client where to send the shopper.
type RedirectResult struct {
	RedirectURL           string `json:"redirectUrl"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	OrderID               string `json:"orderId"`
}

// RedirectStatus is the outcome of a status poll.
type RedirectStatus struct {
	Paid    bool             `json:"paid"`
	Code    string           `json:"code"`
	Message string           `json:"message,omitempty"`
	Order   *orders.OrderDTO `json:"order,omitempty"`
}

// CallbackOutcome labels what a provider callback did.
type CallbackOutcome string

const (
	CallbackPaid        CallbackOutcome = "paid"
	CallbackAlreadyPaid CallbackOutcome = "already_paid"
	CallbackFailed      CallbackOutcome = "failed"
	CallbackUnknown     CallbackOutcome = "unknown_order"
	CallbackRejected    CallbackOutcome = "rejected"
	CallbackUnconfirmed CallbackOutcome = "unconfirmed"
)

// CallbackResult is returned to the callback handler, which always acknowledges.
type CallbackResult struct {
	Outcome       CallbackOutcome `json:"outcome"`
	CorrelationID string          `json:"merchantTransactionId,omitempty"`
}

// HostedSessionRequest asks for a hosted checkout session for amount rupees.
type HostedSessionRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}
