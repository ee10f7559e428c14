package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nstc/opsdesk-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestMigrationsContainConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_inventory_items": {
			"CREATE TABLE IF NOT EXISTS inventory_items",
			"CONSTRAINT uq_inventory_items_name_location UNIQUE (name_en, location)",
			"DROP TABLE IF EXISTS inventory_items",
		},
		"create_stock_logs": {
			"CREATE TABLE IF NOT EXISTS stock_logs",
			"change_amount INTEGER NOT NULL",
			"DROP TABLE IF EXISTS stock_logs",
		},
		"create_supply_requests": {
			"CREATE TABLE IF NOT EXISTS supply_requests",
			"CHECK (status IN ('Pending', 'Approved', 'Rejected', 'Issued', 'Received'))",
			"DROP TABLE IF EXISTS supply_requests",
		},
		"create_local_inventory": {
			"CONSTRAINT uq_local_inventory_region_item UNIQUE (region, item_name)",
			"DROP TABLE IF EXISTS local_inventory",
		},
		"create_attendance_records": {
			"CONSTRAINT uq_attendance_date_worker UNIQUE (work_date, worker_name)",
			"hours_worked NUMERIC(5,2)",
		},
		"create_audit_logs": {
			"CREATE TABLE IF NOT EXISTS audit_logs",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestInventoryLedgerHasNoQtyCheck(t *testing.T) {
	// Non-negative stock is enforced by guarded updates, not a table constraint.
	content := readMigration(t, "create_inventory_items")
	if strings.Contains(content, "CHECK (qty >= 0)") {
		t.Fatal("inventory_items should not carry a qty check constraint")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Item Barcode!", stamp)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260402100000_add_item_barcode.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", stamp); err == nil {
		t.Fatal("expected sanitized-empty name to fail")
	}
}
