package models

import (
	"time"

	"github.com/nstc/opsdesk-backend/pkg/enums"
)

// InventoryItem is one ledger row: the on-hand count of an item at a location.
type InventoryItem struct {
	ID          uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	NameEn      string           `gorm:"column:name_en;not null;uniqueIndex:uq_inventory_items_name_location" json:"name_en"`
	Category    string           `gorm:"column:category;not null;default:''" json:"category"`
	Unit        string           `gorm:"column:unit;not null;default:''" json:"unit"`
	Qty         int              `gorm:"column:qty;not null;default:0" json:"qty"`
	Location    string           `gorm:"column:location;not null;uniqueIndex:uq_inventory_items_name_location" json:"location"`
	Status      enums.ItemStatus `gorm:"column:status;not null" json:"status"`
	LastUpdated time.Time        `gorm:"column:last_updated;not null" json:"last_updated"`
}

func (InventoryItem) TableName() string { return "inventory_items" }
