package models

import (
	"time"

	"github.com/nstc/opsdesk-backend/pkg/enums"
)

// SupplyRequest is a regional request for stock from the hub warehouse.
type SupplyRequest struct {
	ReqID          uint64              `gorm:"column:req_id;primaryKey;autoIncrement" json:"req_id"`
	SupervisorName string              `gorm:"column:supervisor_name;not null" json:"supervisor_name"`
	Region         *string             `gorm:"column:region" json:"region,omitempty"`
	ItemName       *string             `gorm:"column:item_name" json:"item_name,omitempty"`
	Category       string              `gorm:"column:category;not null;default:''" json:"category"`
	Qty            *int                `gorm:"column:qty" json:"qty,omitempty"`
	Unit           string              `gorm:"column:unit;not null;default:''" json:"unit"`
	Status         enums.RequestStatus `gorm:"column:status;not null;index" json:"status"`
	Shift          enums.Shift         `gorm:"column:shift;not null" json:"shift"`
	ApprovedBy     *string             `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time          `gorm:"column:approved_at" json:"approved_at,omitempty"`
	IssuedBy       *string             `gorm:"column:issued_by" json:"issued_by,omitempty"`
	IssuedAt       *time.Time          `gorm:"column:issued_at" json:"issued_at,omitempty"`
	ReceivedBy     *string             `gorm:"column:received_by" json:"received_by,omitempty"`
	ReceivedAt     *time.Time          `gorm:"column:received_at" json:"received_at,omitempty"`
	Notes          *string             `gorm:"column:notes" json:"notes,omitempty"`
	RequestDate    time.Time           `gorm:"column:request_date;not null" json:"request_date"`
}

func (SupplyRequest) TableName() string { return "supply_requests" }
