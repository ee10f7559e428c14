package controllers

import (
	"net/http"
	"strings"

	"github.com/nstc/opsdesk-backend/api/responses"
	"github.com/nstc/opsdesk-backend/api/validators"
	"github.com/nstc/opsdesk-backend/internal/localinventory"
	"github.com/nstc/opsdesk-backend/pkg/access"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

type stocktakeLine struct {
	ItemName string `json:"item_name" validate:"required,max=200"`
	Qty      int    `json:"qty" validate:"gte=0,max=2147483647"`
}

type stocktakeRequest struct {
	Region string          `json:"region" validate:"required,max=100"`
	Counts []stocktakeLine `json:"counts" validate:"required,min=1,dive"`
}

// LocalInventoryList returns site stock, optionally for one region.
func LocalInventoryList(svc localinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "local inventory service unavailable"))
			return
		}

		rows, err := svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("region")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// LocalInventoryLookup returns one item's on-hand row at one region.
func LocalInventoryLookup(svc localinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "local inventory service unavailable"))
			return
		}

		query := r.URL.Query()
		row, err := svc.Get(r.Context(), query.Get("region"), query.Get("item_name"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func LocalInventoryStocktake(svc localinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "local inventory service unavailable"))
			return
		}

		var payload stocktakeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counts := make([]localinventory.Count, 0, len(payload.Counts))
		for _, line := range payload.Counts {
			counts = append(counts, localinventory.Count{ItemName: line.ItemName, Qty: line.Qty})
		}

		rows, err := svc.Stocktake(r.Context(), access.ActorFromContext(r.Context()), localinventory.StocktakeInput{
			Region: payload.Region,
			Counts: counts,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
