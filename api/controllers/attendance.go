package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/nstc/opsdesk-backend/api/responses"
	"github.com/nstc/opsdesk-backend/api/validators"
	"github.com/nstc/opsdesk-backend/internal/attendance"
	"github.com/nstc/opsdesk-backend/pkg/access"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type attendanceLine struct {
	WorkerName    string          `json:"worker_name"`
	Region        string          `json:"region"`
	Status        string          `json:"status"`
	HoursWorked   decimal.Decimal `json:"hours_worked"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}

// Row-level checks live in the service so every bad row is reported at once.
type attendanceRequest struct {
	Date    string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Entries []attendanceLine `json:"entries" validate:"required,min=1"`
}

// AttendanceList returns the sheet for ?date= (today when absent).
func AttendanceList(svc attendance.Service, logg *logger.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attendance service unavailable"))
			return
		}

		date, err := validators.ParseQueryDate(r, "date", now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sheet, err := svc.ListByDate(r.Context(), date, strings.TrimSpace(r.URL.Query().Get("region")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sheet)
	}
}

func AttendanceRecord(svc attendance.Service, logg *logger.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attendance service unavailable"))
			return
		}

		var payload attendanceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date := now()
		if payload.Date != "" {
			parsed, err := time.Parse(time.DateOnly, payload.Date)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD"))
				return
			}
			date = parsed
		}

		entries := make([]attendance.Entry, 0, len(payload.Entries))
		for _, line := range payload.Entries {
			entries = append(entries, attendance.Entry{
				WorkerName:    line.WorkerName,
				Region:        line.Region,
				Status:        line.Status,
				HoursWorked:   line.HoursWorked,
				OvertimeHours: line.OvertimeHours,
			})
		}

		sheet, err := svc.RecordBulk(r.Context(), access.ActorFromContext(r.Context()), date, entries)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sheet)
	}
}
