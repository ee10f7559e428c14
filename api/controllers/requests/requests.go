package requests

import (
	"net/http"
	"strings"

	"github.com/nstc/opsdesk-backend/api/responses"
	"github.com/nstc/opsdesk-backend/api/validators"
	internalrequests "github.com/nstc/opsdesk-backend/internal/requests"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

type createRequest struct {
	Region   string `json:"region" validate:"required,max=100"`
	ItemName string `json:"item_name" validate:"required,max=200"`
	Category string `json:"category" validate:"max=100"`
	Qty      int    `json:"qty" validate:"gt=0,max=2147483647"`
	Unit     string `json:"unit" validate:"max=50"`
	Notes    string `json:"notes" validate:"max=500"`
}

type bulkLine struct {
	ItemName string `json:"item_name"`
	Category string `json:"category"`
	Qty      int    `json:"qty"`
	Unit     string `json:"unit"`
}

// Lines are filtered by the service, not rejected here, so a sheet with a
// few blank rows still goes through.
type bulkCreateRequest struct {
	Region string     `json:"region" validate:"required,max=100"`
	Notes  string     `json:"notes" validate:"max=500"`
	Items  []bulkLine `json:"items" validate:"required"`
}

type updateRequest struct {
	ItemName *string `json:"item_name" validate:"omitempty,max=200"`
	Category *string `json:"category" validate:"omitempty,max=100"`
	Qty      *int    `json:"qty" validate:"omitempty,gt=0,max=2147483647"`
	Unit     *string `json:"unit" validate:"omitempty,max=50"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
}

func List(svc internalrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		filter := internalrequests.Filter{
			Region:     strings.TrimSpace(q.Get("region")),
			Supervisor: strings.TrimSpace(q.Get("supervisor")),
			Limit:      limit,
		}
		if raw := strings.TrimSpace(q.Get("status")); raw != "" {
			status, err := enums.ParseRequestStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = status
		}

		rows, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func Create(svc internalrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}

		var payload createRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), access.ActorFromContext(r.Context()), internalrequests.CreateInput{
			Region:   payload.Region,
			ItemName: payload.ItemName,
			Category: payload.Category,
			Qty:      payload.Qty,
			Unit:     payload.Unit,
			Notes:    payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func CreateBulk(svc internalrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}

		var payload bulkCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]internalrequests.Line, 0, len(payload.Items))
		for _, item := range payload.Items {
			lines = append(lines, internalrequests.Line{
				ItemName: item.ItemName,
				Category: item.Category,
				Qty:      item.Qty,
				Unit:     item.Unit,
			})
		}

		created, err := svc.CreateBulk(r.Context(), access.ActorFromContext(r.Context()), internalrequests.BulkCreateInput{
			Region: payload.Region,
			Notes:  payload.Notes,
			Lines:  lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func Get(svc internalrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "reqId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

// Update overwrites request fields at any status.
func Update(svc internalrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "reqId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), access.ActorFromContext(r.Context()), id, internalrequests.UpdateInput{
			ItemName: payload.ItemName,
			Category: payload.Category,
			Qty:      payload.Qty,
			Unit:     payload.Unit,
			Notes:    payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func Delete(svc internalrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "reqId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), access.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
