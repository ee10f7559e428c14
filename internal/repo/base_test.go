package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type row struct {
	ID int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:repo_base?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&row{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestNewBaseStoresConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil {
		t.Fatalf("expected non-nil DB when context provided")
	}
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}

	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseWithTx(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.WithTx(nil).db != db {
		t.Fatalf("nil tx should keep the original connection")
	}

	tx := db.Begin()
	defer tx.Rollback()
	if base.WithTx(tx).db != tx {
		t.Fatalf("expected tx-bound base")
	}
}

func TestPaginate(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		if err := db.Create(&row{}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cases := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 3},
		{limit: 2, want: 2},
		{limit: 50, want: 4},
	}
	for _, tc := range cases {
		var rows []row
		if err := Paginate(db.Model(&row{}), tc.limit, 3, 4).Find(&rows).Error; err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(rows) != tc.want {
			t.Fatalf("limit %d: expected %d rows, got %d", tc.limit, tc.want, len(rows))
		}
	}
}
