package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/flashback-frames-backend/api/responses"
	"github.com/angelmondragon/flashback-frames-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/flashback-frames-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
)

const (
	callbackBodyLimit = 64 << 10
	callbackSignature = "X-VERIFY"
)

// CreateHostedSession opens a hosted-widget payment session sized to amount.
func CreateHostedSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload checkoutsvc.HostedSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.CreateHostedSession(r.Context(), payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// VerifyAndCreate checks the hosted widget's proof and creates the paid order.
func VerifyAndCreate(svc checkoutsvc.Service, limits CheckoutLimits, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		input, err := parseCheckoutForm(w, r, limits)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		proof := checkoutsvc.HostedProof{
			SessionID: validators.FormString(r, "razorpay_order_id"),
			PaymentID: validators.FormString(r, "razorpay_payment_id"),
			Signature: validators.FormString(r, "razorpay_signature"),
		}
		order, err := svc.VerifyAndCreate(r.Context(), input, proof)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// InitiateRedirect stores a Pending order and returns the gateway redirect URL.
func InitiateRedirect(svc checkoutsvc.Service, limits CheckoutLimits, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		input, err := parseCheckoutForm(w, r, limits)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var clientAmount *decimal.Decimal
		if raw := validators.FormString(r, "amount"); raw != "" {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
				return
			}
			clientAmount = &amount
		}
		result, err := svc.InitiateRedirect(r.Context(), input, clientAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RedirectCallback acknowledges every provider notification it can process;
// only unexpected internal failures surface as 5xx so the provider retries.
func RedirectCallback(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, callbackBodyLimit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read callback body"))
			return
		}
		result, err := svc.HandleRedirectCallback(r.Context(), body, strings.TrimSpace(r.Header.Get(callbackSignature)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RedirectStatus reconciles one redirect payment on demand.
func RedirectStatus(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		status, err := svc.CheckRedirectStatus(r.Context(), chi.URLParam(r, "merchantTransactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
