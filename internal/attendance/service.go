// Package attendance records daily manpower sheets. A sheet is written as one
// upsert per date so re-submitting a day replaces its rows.
package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nstc/opsdesk-backend/internal/audit"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
	"github.com/nstc/opsdesk-backend/pkg/logger"
	"github.com/nstc/opsdesk-backend/pkg/metrics"
)

const auditModule = "attendance"

var maxDailyHours = decimal.NewFromInt(24)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records and reads attendance sheets.
type Service interface {
	RecordBulk(ctx context.Context, actor *access.Actor, date time.Time, entries []Entry) (*Sheet, error)
	ListByDate(ctx context.Context, date time.Time, region string) (*Sheet, error)
}

// Entry is one worker line on a sheet.
type Entry struct {
	WorkerName    string
	Region        string
	Status        string
	HoursWorked   decimal.Decimal
	OvertimeHours decimal.Decimal
}

// Sheet is a day's records with their totals.
type Sheet struct {
	Date          string                    `json:"date"`
	Present       int                       `json:"present"`
	Absent        int                       `json:"absent"`
	Leave         int                       `json:"leave"`
	TotalHours    decimal.Decimal           `json:"total_hours"`
	OvertimeHours decimal.Decimal           `json:"overtime_hours"`
	Records       []models.AttendanceRecord `json:"records"`
}

type service struct {
	tx       txRunner
	repo     Repository
	audit    audit.Recorder
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
	maxBatch int
	now      func() time.Time
}

// NewService wires the attendance recorder.
func NewService(tx txRunner, repo Repository, recorder audit.Recorder, m *metrics.WorkflowMetrics, logg *logger.Logger, maxBatch int) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("attendance repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxBatch <= 0 {
		return nil, fmt.Errorf("max batch size must be positive")
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &service{tx: tx, repo: repo, audit: recorder, metrics: m, logg: logg, maxBatch: maxBatch, now: time.Now}, nil
}

// WorkDay truncates t to its calendar date in UTC.
func WorkDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *service) RecordBulk(ctx context.Context, actor *access.Actor, date time.Time, entries []Entry) (sheet *Sheet, err error) {
	defer s.metrics.Track(string(access.OpAttendanceWrite), time.Now(), &err)
	if err := access.Authorize(actor, access.OpAttendanceWrite); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "work date is required")
	}
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one entry is required")
	}
	if len(entries) > s.maxBatch {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "batch of %d exceeds the limit of %d", len(entries), s.maxBatch)
	}

	day := WorkDay(date)
	now := s.now().UTC()
	rows, verr := buildRows(day, entries, actor.Name, now)
	if verr != nil {
		problems := multierr.Errors(verr)
		messages := make([]string, 0, len(problems))
		for _, p := range problems {
			messages = append(messages, p.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, verr, "attendance sheet has invalid rows").
			WithDetails(map[string]any{"errors": messages})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Upsert(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record attendance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"date": day.Format(time.DateOnly), "rows": len(rows)}), "attendance recorded")
	s.audit.Record(ctx, audit.NewEvent(actor, auditModule, "Record Attendance", fmt.Sprintf("%s: %d workers", day.Format(time.DateOnly), len(rows))))
	return s.ListByDate(ctx, day, "")
}

func (s *service) ListByDate(ctx context.Context, date time.Time, region string) (*Sheet, error) {
	day := WorkDay(date)
	rows, err := s.repo.ListByDate(ctx, day, strings.TrimSpace(region))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list attendance")
	}
	return summarize(day, rows), nil
}

// buildRows validates every entry and returns all problems at once.
func buildRows(day time.Time, entries []Entry, recordedBy string, now time.Time) ([]models.AttendanceRecord, error) {
	var errs error
	seen := make(map[string]int, len(entries))
	rows := make([]models.AttendanceRecord, 0, len(entries))

	for i, e := range entries {
		line := i + 1
		name := strings.TrimSpace(e.WorkerName)
		if name == "" {
			errs = multierr.Append(errs, fmt.Errorf("row %d: worker name is required", line))
			continue
		}
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			errs = multierr.Append(errs, fmt.Errorf("row %d: %s already listed on row %d", line, name, prev))
			continue
		}
		seen[key] = line

		status, err := enums.ParseAttendanceStatus(strings.ToLower(strings.TrimSpace(e.Status)))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		switch {
		case e.HoursWorked.IsNegative() || e.OvertimeHours.IsNegative():
			errs = multierr.Append(errs, fmt.Errorf("row %d: hours must not be negative", line))
		case e.HoursWorked.Add(e.OvertimeHours).GreaterThan(maxDailyHours):
			errs = multierr.Append(errs, fmt.Errorf("row %d: hours worked plus overtime exceed 24", line))
		}
		if status != enums.AttendanceStatusPresent && !(e.HoursWorked.IsZero() && e.OvertimeHours.IsZero()) {
			errs = multierr.Append(errs, fmt.Errorf("row %d: %s workers cannot log hours", line, status))
		}

		rows = append(rows, models.AttendanceRecord{
			WorkDate:      day,
			WorkerName:    name,
			Region:        strings.TrimSpace(e.Region),
			Status:        status,
			HoursWorked:   e.HoursWorked.Round(2),
			OvertimeHours: e.OvertimeHours.Round(2),
			RecordedBy:    recordedBy,
			UpdatedAt:     now,
		})
	}
	if errs != nil {
		return nil, errs
	}
	return rows, nil
}

func summarize(day time.Time, rows []models.AttendanceRecord) *Sheet {
	sheet := &Sheet{
		Date:          day.Format(time.DateOnly),
		TotalHours:    decimal.Zero,
		OvertimeHours: decimal.Zero,
		Records:       rows,
	}
	for _, r := range rows {
		switch r.Status {
		case enums.AttendanceStatusPresent:
			sheet.Present++
		case enums.AttendanceStatusAbsent:
			sheet.Absent++
		case enums.AttendanceStatusLeave:
			sheet.Leave++
		}
		sheet.TotalHours = sheet.TotalHours.Add(r.HoursWorked)
		sheet.OvertimeHours = sheet.OvertimeHours.Add(r.OvertimeHours)
	}
	return sheet
}
