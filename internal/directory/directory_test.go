package directory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"warehousebot/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seed := []string{
		`INSERT INTO users (id, username, display_name, warehouse, documents, vehicles, invoices, admin, active)
		 VALUES (1, 'ivanov', 'Ivanov I.', 1, 0, 0, 0, 0, 1)`,
		`INSERT INTO users (id, username, display_name, warehouse, documents, vehicles, invoices, admin, active)
		 VALUES (2, 'petrov', 'Petrov P.', 0, 1, 1, 1, 0, 1)`,
		`INSERT INTO users (id, username, display_name, warehouse, documents, vehicles, invoices, admin, active)
		 VALUES (3, 'gone', 'Former G.', 1, 1, 1, 1, 1, 0)`,
		`INSERT INTO counterparties (name, active) VALUES ('Acme', 1)`,
		`INSERT INTO counterparties (name, active) VALUES ('Globex', 1)`,
		`INSERT INTO counterparties (name, active) VALUES ('Defunct', 0)`,
		`INSERT INTO places (name, zone, active) VALUES ('Workshop', 'A', 1)`,
	}
	for _, stmt := range seed {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

func TestGetUserAndCapabilities(t *testing.T) {
	svc := NewService(testDB(t), nil, time.Minute, "")
	ctx := context.Background()

	u, ok := svc.GetUser(ctx, 1)
	if !ok || u.Username != "ivanov" {
		t.Fatalf("GetUser(1) = %+v, %v", u, ok)
	}
	if !svc.CanWarehouse(ctx, 1) || svc.CanDocuments(ctx, 1) {
		t.Fatalf("capability flags wrong for user 1")
	}
	if svc.CanWarehouse(ctx, 2) || !svc.CanVehicles(ctx, 2) || !svc.CanInvoices(ctx, 2) {
		t.Fatalf("capability flags wrong for user 2")
	}
	// inactive users are invisible despite their flags
	if svc.IsRegistered(ctx, 3) {
		t.Fatalf("inactive user visible")
	}
	if svc.IsRegistered(ctx, 99) {
		t.Fatalf("unknown user registered")
	}
}

func TestAdminUsernameOverride(t *testing.T) {
	svc := NewService(testDB(t), nil, time.Minute, "Petrov")
	ctx := context.Background()
	if svc.IsAdmin(ctx, 1) {
		t.Fatalf("user 1 must not be admin")
	}
	if !svc.IsAdmin(ctx, 2) {
		t.Fatalf("configured admin username not honored (case-insensitive)")
	}
}

func TestListsFilterInactive(t *testing.T) {
	svc := NewService(testDB(t), nil, time.Minute, "")
	ctx := context.Background()

	cps := svc.Counterparties(ctx)
	if len(cps) != 2 || cps[0].Name != "Acme" || cps[1].Name != "Globex" {
		t.Fatalf("counterparties %+v", cps)
	}
	places := svc.Places(ctx)
	if len(places) != 1 || places[0].Name != "Workshop" {
		t.Fatalf("places %+v", places)
	}
}

func TestForceRefreshCountsAndNewRows(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, nil, time.Hour, "")
	ctx := context.Background()

	counts, err := svc.ForceRefresh(ctx)
	if err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	if counts.Users != 2 || counts.Counterparties != 2 || counts.Places != 1 {
		t.Fatalf("counts %+v", counts)
	}

	// a row added after the load is invisible until the next refresh
	if _, err := db.Exec(`INSERT INTO counterparties (name, active) VALUES ('Initech', 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := len(svc.Counterparties(ctx)); got != 2 {
		t.Fatalf("stale read returned %d counterparties, want cached 2", got)
	}
	counts, err = svc.ForceRefresh(ctx)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if counts.Counterparties != 3 {
		t.Fatalf("refresh missed the new counterparty: %+v", counts)
	}
}

func TestMenuItemsFollowCapabilities(t *testing.T) {
	svc := NewService(testDB(t), nil, time.Minute, "")
	ctx := context.Background()

	items := svc.MenuItems(ctx, 1)
	want := []string{"receipt", "issue", "new_product", "history"}
	if len(items) != len(want) {
		t.Fatalf("user 1 menu %v", items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("user 1 menu %v, want %v", items, want)
		}
	}

	items = svc.MenuItems(ctx, 2)
	want = []string{"documents", "vehicles", "invoices", "history"}
	if len(items) != len(want) {
		t.Fatalf("user 2 menu %v", items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("user 2 menu %v, want %v", items, want)
		}
	}

	if items := svc.MenuItems(ctx, 99); items != nil {
		t.Fatalf("unknown user got a menu: %v", items)
	}
}
