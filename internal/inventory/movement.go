package inventory

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/nstc/opsdesk-backend/pkg/db/models"
	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
)

// MaxQty is the largest quantity or change the integer qty columns hold.
const MaxQty = math.MaxInt32

// CheckQty rejects a quantity or change whose magnitude does not fit the
// qty columns, before anything is written.
func CheckQty(field string, qty int) error {
	if qty > MaxQty || qty < -MaxQty {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", field, -MaxQty, MaxQty).
			WithDetails(map[string]any{"field": field, "max": MaxQty})
	}
	return nil
}

// Withdraw performs a guarded decrement on item and returns the quantity
// re-read inside the same transaction. A zero-row update surfaces as
// INSUFFICIENT_STOCK carrying the quantity currently available.
func Withdraw(ctx context.Context, repo Repository, item *models.InventoryItem, qty int, at time.Time) (int, error) {
	ok, err := repo.GuardedDecrement(ctx, item.ID, qty, at)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
	}

	current, err := repo.CurrentQty(ctx, item.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, NotFound(item.NameEn, item.Location)
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock")
	}
	if !ok {
		return 0, InsufficientStock(item.NameEn, item.Location, current)
	}
	return current, nil
}

// Deposit credits item and returns the re-read quantity.
func Deposit(ctx context.Context, repo Repository, item *models.InventoryItem, qty int, at time.Time) (int, error) {
	if err := repo.Increment(ctx, item.ID, qty, at); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, NotFound(item.NameEn, item.Location)
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment stock")
	}
	current, err := repo.CurrentQty(ctx, item.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read stock")
	}
	return current, nil
}

// InsufficientStock builds the error surfaced when a guarded decrement misses.
func InsufficientStock(name, location string, available int) error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
		"Insufficient stock for %s at %s. Available: %d", name, location, available).
		WithDetails(map[string]any{
			"item":      name,
			"location":  location,
			"available": available,
		})
}

// NotFound builds the error for an unresolved (name, location) pair.
func NotFound(name, location string) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "Item %s not found at %s", name, location)
}
