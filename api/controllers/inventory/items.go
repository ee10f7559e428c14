package inventory

import (
	"net/http"
	"strings"

	"github.com/nstc/opsdesk-backend/api/responses"
	"github.com/nstc/opsdesk-backend/api/validators"
	internalinventory "github.com/nstc/opsdesk-backend/internal/inventory"
	"github.com/nstc/opsdesk-backend/pkg/access"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

type createItemRequest struct {
	NameEn   string `json:"name_en" validate:"required,max=200"`
	Category string `json:"category" validate:"max=100"`
	Unit     string `json:"unit" validate:"max=50"`
	Qty      int    `json:"qty" validate:"gte=0,max=2147483647"`
	Location string `json:"location" validate:"required,max=100"`
}

type updateItemRequest struct {
	NameEn   *string `json:"name_en" validate:"omitempty,max=200"`
	Category *string `json:"category" validate:"omitempty,max=100"`
	Unit     *string `json:"unit" validate:"omitempty,max=50"`
	Qty      *int    `json:"qty" validate:"omitempty,gte=0,max=2147483647"`
}

type adjustRequest struct {
	ItemName   string `json:"item_name" validate:"required"`
	Location   string `json:"location" validate:"required"`
	Change     int    `json:"change_amount" validate:"required,min=-2147483647,max=2147483647"`
	ActionType string `json:"action_type" validate:"max=100"`
	Unit       string `json:"unit" validate:"max=50"`
}

// List returns ledger rows filtered by location, category or name search.
func List(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 200, 1, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		items, err := svc.ListItems(r.Context(), internalinventory.Filter{
			Location: strings.TrimSpace(q.Get("location")),
			Category: strings.TrimSpace(q.Get("category")),
			Search:   strings.TrimSpace(q.Get("q")),
			Limit:    limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// Create adds a ledger row, logging any opening stock.
func Create(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload createItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), access.ActorFromContext(r.Context()), internalinventory.CreateItemInput{
			NameEn:   payload.NameEn,
			Category: payload.Category,
			Unit:     payload.Unit,
			Qty:      payload.Qty,
			Location: payload.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func Get(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// Update applies a partial edit; a quantity change is logged as a manual edit.
func Update(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), access.ActorFromContext(r.Context()), id, internalinventory.UpdateItemInput{
			NameEn:   payload.NameEn,
			Category: payload.Category,
			Unit:     payload.Unit,
			Qty:      payload.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func Delete(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteItem(r.Context(), access.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// Adjust applies a signed change to one (item, location) row.
func Adjust(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload adjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AdjustQuantity(r.Context(), access.ActorFromContext(r.Context()), internalinventory.AdjustInput{
			ItemName:   payload.ItemName,
			Location:   payload.Location,
			Delta:      payload.Change,
			ActionType: payload.ActionType,
			Unit:       payload.Unit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
