package stocklog

import "fmt"

const (
	ActionManualEdit   = "Manual Edit"
	ActionInitialStock = "Initial Stock"
	ActionAdjustment   = "Adjustment"
)

func TransferOut(to string) string {
	return fmt.Sprintf("Transfer Out to %s", to)
}

func TransferIn(from string) string {
	return fmt.Sprintf("Transfer In from %s", from)
}

func LentTo(project string) string {
	return fmt.Sprintf("Lent to %s", project)
}

func ReturnedFrom(project string) string {
	return fmt.Sprintf("Returned from %s", project)
}

func Issued(region string) string {
	return fmt.Sprintf("Issued %s", region)
}
