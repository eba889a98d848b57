package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/flashback-frames-backend/api/middleware"
	"github.com/angelmondragon/flashback-frames-backend/api/responses"
	"github.com/angelmondragon/flashback-frames-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/flashback-frames-backend/internal/checkout"
	internalorders "github.com/angelmondragon/flashback-frames-backend/internal/orders"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/angelmondragon/flashback-frames-backend/pkg/outbox"
)

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateCODOrder places a cash-on-delivery order from the checkout multipart form.
func CreateCODOrder(svc checkoutsvc.Service, limits CheckoutLimits, logg *logger.Logger) http.HandlerFunc {
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
		if method := validators.FormString(r, "paymentMethod"); method != "" && method != string(enums.PaymentMethodCOD) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "only COD orders can be created directly").
				WithDetails(map[string]string{"paymentMethod": method}))
			return
		}

		order, err := svc.PlaceCOD(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// TrackOrder looks an order up by its FF number or the customer's mobile.
func TrackOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		order, err := svc.Track(r.Context(), chi.URLParam(r, "identifier"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminListOrders pages through every order, newest first.
func AdminListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{Pagination: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("paymentStatus")); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentStatus filter"))
				return
			}
			params.PaymentStatus = &status
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminUpdateOrderStatus moves an order through the fulfilment workflow.
func AdminUpdateOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), payload.Status, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminDeleteOrder hard-deletes an order and releases its images.
func AdminDeleteOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		ref := chi.URLParam(r, "orderId")
		if err := svc.Delete(r.Context(), ref, actorFromRequest(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"deleted": ref})
	}
}

func actorFromRequest(r *http.Request) *outbox.ActorRef {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: middleware.RoleFromContext(r.Context())}
}
