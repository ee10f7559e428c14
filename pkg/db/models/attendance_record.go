package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nstc/opsdesk-backend/pkg/enums"
)

// AttendanceRecord is one worker's attendance for a work date.
type AttendanceRecord struct {
	ID            uint64                 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WorkDate      time.Time              `gorm:"column:work_date;type:date;not null;uniqueIndex:uq_attendance_date_worker" json:"work_date"`
	WorkerName    string                 `gorm:"column:worker_name;not null;uniqueIndex:uq_attendance_date_worker" json:"worker_name"`
	Region        string                 `gorm:"column:region;not null;default:''" json:"region"`
	Status        enums.AttendanceStatus `gorm:"column:status;not null" json:"status"`
	HoursWorked   decimal.Decimal        `gorm:"column:hours_worked;type:numeric(5,2);not null;default:0" json:"hours_worked"`
	OvertimeHours decimal.Decimal        `gorm:"column:overtime_hours;type:numeric(5,2);not null;default:0" json:"overtime_hours"`
	RecordedBy    string                 `gorm:"column:recorded_by;not null" json:"recorded_by"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (AttendanceRecord) TableName() string { return "attendance_records" }
