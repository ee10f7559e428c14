package models

import "time"

// StockLog is an append-only record of one quantity change. Item and location
// are copied by value so history survives renames and deletes.
type StockLog struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ItemName     string    `gorm:"column:item_name;not null;index:idx_stock_logs_item_location" json:"item_name"`
	Location     string    `gorm:"column:location;not null;index:idx_stock_logs_item_location" json:"location"`
	ChangeAmount int       `gorm:"column:change_amount;not null" json:"change_amount"`
	NewQty       int       `gorm:"column:new_qty;not null" json:"new_qty"`
	ActionBy     string    `gorm:"column:action_by;not null" json:"action_by"`
	ActionType   string    `gorm:"column:action_type;not null" json:"action_type"`
	Unit         string    `gorm:"column:unit;not null;default:''" json:"unit"`
	LogDate      time.Time `gorm:"column:log_date;not null;index" json:"log_date"`
}

func (StockLog) TableName() string { return "stock_logs" }
