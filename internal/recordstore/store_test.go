package recordstore

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"warehousebot/internal/config"
	"warehousebot/internal/models"
	"warehousebot/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := NewStore(db, config.TableConfig{WarehouseURL: "https://tables.test/warehouse"})
	store.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return store
}

func TestAppendMovementRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rows := []models.MovementRow{
		{
			Date: "2026-03-14", Time: "11:00:00", OpType: models.OperationReceipt,
			Counterparty: "Acme", OperationID: "OP-20260314-110000-ivanov",
			PositionNumber: 1, Quantity: 3,
			PhotoLinks: []string{"l1", "l2"},
			Employee:   "ivanov", Status: "NEW",
		},
		{
			Date: "2026-03-14", Time: "11:00:00", OpType: models.OperationReceipt,
			Counterparty: "Acme", OperationID: "OP-20260314-110000-ivanov",
			PositionNumber: 2, Quantity: 7,
			PhotoLinks: []string{"l3"},
			Employee:   "ivanov", Status: "NEW",
		},
	}
	for i, row := range rows {
		if err := store.AppendMovement(ctx, row, i == 0); err != nil {
			t.Fatalf("append row %d: %v", i, err)
		}
	}

	got, err := store.db.Query(
		`SELECT position_number, quantity, photo1, photo2, photo3, first_of_operation
		 FROM movements WHERE operation_id = ? ORDER BY position_number`,
		"OP-20260314-110000-ivanov")
	if err != nil {
		t.Fatalf("query back: %v", err)
	}
	defer got.Close()

	var count int
	for got.Next() {
		var pos, qty, first int
		var p1, p2, p3 string
		if err := got.Scan(&pos, &qty, &p1, &p2, &p3, &first); err != nil {
			t.Fatalf("scan: %v", err)
		}
		count++
		switch pos {
		case 1:
			if qty != 3 || p1 != "l1" || p2 != "l2" || p3 != "" || first != 1 {
				t.Fatalf("row 1 mismatch: qty=%d photos=%q,%q,%q first=%d", qty, p1, p2, p3, first)
			}
		case 2:
			if qty != 7 || p1 != "l3" || first != 0 {
				t.Fatalf("row 2 mismatch: qty=%d photo1=%q first=%d", qty, p1, first)
			}
		default:
			t.Fatalf("unexpected position %d", pos)
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestCountTodayVehicles(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for i, date := range []string{"2026-03-14", "2026-03-14", "2026-03-14", "2026-03-13"} {
		row := models.VehicleRow{
			Date: date, Time: fmt.Sprintf("0%d:00:00", i+1),
			Direction: models.DirectionIn, VehicleID: fmt.Sprintf("Vehicle #%d", i+1),
			Employee: "petrov",
		}
		if err := store.AppendVehicle(ctx, row); err != nil {
			t.Fatalf("append vehicle: %v", err)
		}
	}

	count, err := store.CountTodayVehicles(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("today count %d, want 3", count)
	}
}

func TestQueryHistoryFilterPeriodLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// 15 issues today with increasing times, plus noise that must not match.
	for i := 0; i < 15; i++ {
		row := models.MovementRow{
			Date: "2026-03-14", Time: fmt.Sprintf("%02d:00:00", i+1),
			OpType: models.OperationIssue, Counterparty: "Workshop",
			OperationID: fmt.Sprintf("OP-%02d", i), PositionNumber: 1, Quantity: i + 1,
			Employee: "ivanov", Status: "NEW",
		}
		if err := store.AppendMovement(ctx, row, true); err != nil {
			t.Fatalf("append issue %d: %v", i, err)
		}
	}
	noise := []models.MovementRow{
		{Date: "2026-03-14", Time: "09:30:00", OpType: models.OperationReceipt,
			Counterparty: "Acme", OperationID: "OP-R", PositionNumber: 1, Quantity: 2,
			Employee: "ivanov", Status: "NEW"},
		{Date: "2026-03-13", Time: "23:59:00", OpType: models.OperationIssue,
			Counterparty: "Retail", OperationID: "OP-OLD", PositionNumber: 1, Quantity: 4,
			Employee: "ivanov", Status: "NEW"},
	}
	for _, row := range noise {
		if err := store.AppendMovement(ctx, row, true); err != nil {
			t.Fatalf("append noise: %v", err)
		}
	}

	records, err := store.QueryHistory(ctx, FilterIssue, PeriodToday, 10)
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("expected limit of 10 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Type != string(models.OperationIssue) {
			t.Fatalf("record %d has type %q", i, r.Type)
		}
		if r.Marker != "📤" {
			t.Fatalf("record %d marker %q", i, r.Marker)
		}
		if i > 0 {
			prev := records[i-1].Date + " " + records[i-1].Time
			cur := r.Date + " " + r.Time
			if prev < cur {
				t.Fatalf("records not descending: %q before %q", prev, cur)
			}
		}
	}
	// the 10 most recent are 06:00 through 15:00
	if records[0].Time != "15:00:00" || records[9].Time != "06:00:00" {
		t.Fatalf("wrong window: first %s, last %s", records[0].Time, records[9].Time)
	}
}

func TestQueryHistoryMergesSources(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.AppendMovement(ctx, models.MovementRow{
		Date: "2026-03-14", Time: "08:00:00", OpType: models.OperationReceipt,
		Counterparty: "Acme", OperationID: "OP-1", PositionNumber: 1, Quantity: 5,
		Employee: "ivanov", Status: "NEW",
	}, true); err != nil {
		t.Fatalf("append movement: %v", err)
	}
	if err := store.AppendDocument(ctx, models.DocumentRow{
		Date: "2026-03-14", Time: "09:00:00", DocType: "Waybill",
		Counterparty: "Globex", Employee: "ivanov",
	}); err != nil {
		t.Fatalf("append document: %v", err)
	}
	if err := store.AppendVehicle(ctx, models.VehicleRow{
		Date: "2026-03-14", Time: "10:00:00", Direction: models.DirectionOut,
		VehicleID: "AB123CD", Employee: "petrov",
	}); err != nil {
		t.Fatalf("append vehicle: %v", err)
	}

	records, err := store.QueryHistory(ctx, FilterAll, PeriodToday, 10)
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 merged records, got %d", len(records))
	}
	wantMarkers := []string{"🔴", "📄", "📥"}
	for i, want := range wantMarkers {
		if records[i].Marker != want {
			t.Fatalf("record %d marker %q, want %q", i, records[i].Marker, want)
		}
	}
}

func TestTableURLFallback(t *testing.T) {
	store := testStore(t)
	if url := store.TableURL("vehicles"); url != "https://tables.test/warehouse" {
		t.Fatalf("unconfigured kind should fall back to warehouse url, got %q", url)
	}
	if url := store.TableURL("warehouse"); url != "https://tables.test/warehouse" {
		t.Fatalf("warehouse url %q", url)
	}
}
