package models

// All lists every persisted model, in dependency order, for dev auto-migration
// and sqlite-backed tests.
func All() []any {
	return []any{
		&InventoryItem{},
		&StockLog{},
		&SupplyRequest{},
		&LocalInventory{},
		&AttendanceRecord{},
		&AuditLog{},
	}
}
