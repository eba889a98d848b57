package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/flashback-frames-backend/api/responses"
	"github.com/angelmondragon/flashback-frames-backend/api/validators"
	cartsvc "github.com/angelmondragon/flashback-frames-backend/internal/cart"
	pkgcart "github.com/angelmondragon/flashback-frames-backend/pkg/cart"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
)

type saveCartRequest struct {
	Items []pkgcart.Item `json:"items"`
}

// GetCart returns the stored snapshot; unknown carts come back empty.
func GetCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		snapshot, err := svc.Get(r.Context(), chi.URLParam(r, "cartId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// PutCart replaces the snapshot for cartId.
func PutCart(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var payload saveCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.Save(r.Context(), chi.URLParam(r, "cartId"), payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}
