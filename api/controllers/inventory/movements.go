package inventory

import (
	"net/http"
	"strings"

	"github.com/nstc/opsdesk-backend/api/responses"
	"github.com/nstc/opsdesk-backend/api/validators"
	"github.com/nstc/opsdesk-backend/internal/stocklog"
	"github.com/nstc/opsdesk-backend/internal/transfers"
	"github.com/nstc/opsdesk-backend/pkg/access"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

type transferRequest struct {
	ItemName string `json:"item_name" validate:"required"`
	Qty      int    `json:"qty" validate:"gt=0,max=2147483647"`
	From     string `json:"from" validate:"required"`
	To       string `json:"to" validate:"required"`
	Unit     string `json:"unit" validate:"max=50"`
	Notes    string `json:"notes" validate:"max=500"`
}

type lendRequest struct {
	ItemID  uint64 `json:"item_id" validate:"required"`
	Qty     int    `json:"qty" validate:"gt=0,max=2147483647"`
	Project string `json:"project" validate:"required"`
	Unit    string `json:"unit" validate:"max=50"`
	Notes   string `json:"notes" validate:"max=500"`
}

type returnRequest struct {
	ItemID      uint64 `json:"item_id" validate:"required_without=ItemName"`
	ItemName    string `json:"item_name" validate:"required_without=ItemID"`
	Qty         int    `json:"qty" validate:"gt=0,max=2147483647"`
	Project     string `json:"project" validate:"required"`
	Destination string `json:"destination"`
	Unit        string `json:"unit" validate:"max=50"`
	Notes       string `json:"notes" validate:"max=500"`
}

// Transfer moves stock between two warehouses.
func Transfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		var payload transferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transfer(r.Context(), access.ActorFromContext(r.Context()), transfers.TransferInput{
			ItemName: payload.ItemName,
			Qty:      payload.Qty,
			From:     payload.From,
			To:       payload.To,
			Unit:     payload.Unit,
			Notes:    payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Lend hands stock to a project.
func Lend(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		var payload lendRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Lend(r.Context(), access.ActorFromContext(r.Context()), transfers.LendInput{
			ItemID:  payload.ItemID,
			Qty:     payload.Qty,
			Project: payload.Project,
			Unit:    payload.Unit,
			Notes:   payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// Return credits stock coming back from a project.
func Return(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		var payload returnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Return(r.Context(), access.ActorFromContext(r.Context()), transfers.ReturnInput{
			ItemID:      payload.ItemID,
			ItemName:    payload.ItemName,
			Qty:         payload.Qty,
			Project:     payload.Project,
			Destination: payload.Destination,
			Unit:        payload.Unit,
			Notes:       payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// Logs returns stock log rows, newest first.
func Logs(svc stocklog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock log service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		since, err := validators.ParseQueryTime(r, "since")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		rows, err := svc.List(r.Context(), stocklog.Filter{
			ItemName: strings.TrimSpace(q.Get("item")),
			Location: strings.TrimSpace(q.Get("location")),
			Since:    since,
			Limit:    limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
