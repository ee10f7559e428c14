package models

import "time"

// LocalInventory is the regional on-hand count, kept apart from the hub ledger.
type LocalInventory struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Region      string    `gorm:"column:region;not null;uniqueIndex:uq_local_inventory_region_item" json:"region"`
	ItemName    string    `gorm:"column:item_name;not null;uniqueIndex:uq_local_inventory_region_item" json:"item_name"`
	Qty         int       `gorm:"column:qty;not null;default:0" json:"qty"`
	LastUpdated time.Time `gorm:"column:last_updated;not null" json:"last_updated"`
	UpdatedBy   string    `gorm:"column:updated_by;not null" json:"updated_by"`
}

func (LocalInventory) TableName() string { return "local_inventory" }
