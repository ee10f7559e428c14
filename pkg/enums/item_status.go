package enums

import "fmt"

// ItemStatus is the availability label shown for a ledger row.
type ItemStatus string

const (
	ItemStatusAvailable  ItemStatus = "Available"
	ItemStatusOutOfStock ItemStatus = "Out of Stock"
)

var validItemStatuses = []ItemStatus{
	ItemStatusAvailable,
	ItemStatusOutOfStock,
}

// ItemStatusFor derives the status from an on-hand quantity.
func ItemStatusFor(qty int) ItemStatus {
	if qty > 0 {
		return ItemStatusAvailable
	}
	return ItemStatusOutOfStock
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
