package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

var (
	// ErrSignatureMismatch marks a proof or callback whose checksum does not verify.
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	// ErrAmountMismatch marks a gateway amount that differs from the recomputed total.
	ErrAmountMismatch = errors.New("payment amount mismatch")
)

// SessionRequest asks a hosted gateway for a checkout session.
type SessionRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
}

// Session is the hosted checkout session handed to the payment widget.
type Session struct {
	ID          string `json:"sessionId"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"keyId"`
	Receipt     string `json:"receipt"`
}

// HostedProof is the triple returned by the hosted widget after payment.
type HostedProof struct {
	SessionID string
	PaymentID string
	Signature string
}

// RedirectRequest starts a redirect-style payment.
type RedirectRequest struct {
	MerchantTransactionID string
	AmountMinor           int64
	Mobile                string
	RedirectURL           string
	CallbackURL           string
}

// RedirectSession is where the shopper is sent to pay.
type RedirectSession struct {
	RedirectURL           string
	MerchantTransactionID string
}

// StatusResult is the provider's answer for one correlation id. Verified
// is set when the result came from the provider itself or carried a valid
// signature.
type StatusResult struct {
	CorrelationID string
	PaymentID     string
	Success       bool
	Verified      bool
	Code          string
	Message       string
}

// Provider is one payment gateway integration. Providers that lack a
// capability embed Unsupported.
type Provider interface {
	Name() enums.PaymentProvider
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	Verify(ctx context.Context, proof HostedProof, expectedMinor int64) error
	InitiateRedirect(ctx context.Context, req RedirectRequest) (*RedirectSession, error)
	CheckStatus(ctx context.Context, correlationID string) (*StatusResult, error)
	ParseCallback(ctx context.Context, body []byte, signature string) (*StatusResult, error)
}

// Unsupported answers every capability with a validation error.
type Unsupported struct {
	Provider enums.PaymentProvider
}

func (u Unsupported) unsupported(op string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s does not support %s", u.Provider, op))
}

func (u Unsupported) CreateSession(context.Context, SessionRequest) (*Session, error) {
	return nil, u.unsupported("hosted sessions")
}

func (u Unsupported) Verify(context.Context, HostedProof, int64) error {
	return u.unsupported("hosted verification")
}

func (u Unsupported) InitiateRedirect(context.Context, RedirectRequest) (*RedirectSession, error) {
	return nil, u.unsupported("redirect payments")
}

func (u Unsupported) CheckStatus(context.Context, string) (*StatusResult, error) {
	return nil, u.unsupported("status checks")
}

func (u Unsupported) ParseCallback(context.Context, []byte, string) (*StatusResult, error) {
	return nil, u.unsupported("callbacks")
}

// SignatureError wraps ErrSignatureMismatch in the public integrity error.
func SignatureError() error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrSignatureMismatch, "payment signature verification failed")
}
