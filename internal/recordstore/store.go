package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"warehousebot/internal/config"
	"warehousebot/internal/models"
)

// Store provides append-only persistence for finalized records and the
// bounded history query. Rows are never updated or deleted here; the
// tables are the system of record downstream tooling reads.
type Store struct {
	db     *sql.DB
	tables config.TableConfig
	now    func() time.Time
}

func NewStore(db *sql.DB, tables config.TableConfig) *Store {
	return &Store{db: db, tables: tables, now: time.Now}
}

// AppendMovement persists one position row of a stock movement. The caller
// appends rows in position order; firstOfOperation marks the row any
// per-operation formatting applies to.
func (s *Store) AppendMovement(ctx context.Context, row models.MovementRow, firstOfOperation bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO movements
		 (op_date, op_time, op_type, counterparty, operation_id, position_number, quantity,
		  position_note, photo1, photo2, photo3, photo4, photo5, general_comment, employee,
		  status, first_of_operation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Date, row.Time, string(row.OpType), row.Counterparty, row.OperationID,
		row.PositionNumber, row.Quantity, row.PositionNote,
		row.PhotoLink(0), row.PhotoLink(1), row.PhotoLink(2), row.PhotoLink(3), row.PhotoLink(4),
		row.GeneralComment, row.Employee, row.Status, firstOfOperation,
	)
	if err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

// AppendVehicle persists one gate movement.
func (s *Store) AppendVehicle(ctx context.Context, row models.VehicleRow) error {
	photos, err := encodeLinks(row.PhotoLinks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vehicles (op_date, op_time, direction, vehicle_id, photos, comment, employee)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.Date, row.Time, string(row.Direction), row.VehicleID, photos, row.Comment, row.Employee,
	)
	if err != nil {
		return fmt.Errorf("append vehicle: %w", err)
	}
	return nil
}

// AppendDocument persists one scanned document record.
func (s *Store) AppendDocument(ctx context.Context, row models.DocumentRow) error {
	photos, err := encodeLinks(row.PhotoLinks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (op_date, op_time, doc_type, counterparty, photos, comment, employee)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.Date, row.Time, row.DocType, row.Counterparty, photos, row.Comment, row.Employee,
	)
	if err != nil {
		return fmt.Errorf("append document: %w", err)
	}
	return nil
}

// AppendInvoice persists one supplier invoice record.
func (s *Store) AppendInvoice(ctx context.Context, row models.InvoiceRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (op_date, file_name, file_link, comment, employee)
		 VALUES (?, ?, ?, ?, ?)`,
		row.Date, row.FileName, row.FileLink, row.Comment, row.Employee,
	)
	if err != nil {
		return fmt.Errorf("append invoice: %w", err)
	}
	return nil
}

// AppendNewProduct persists one new-product intake record.
func (s *Store) AppendNewProduct(ctx context.Context, row models.NewProductRow) error {
	photos, err := encodeLinks(row.PhotoLinks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO new_products (op_date, op_time, employee, photos, description, product_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		row.Date, row.Time, row.Employee, photos, row.Description, row.ProductType,
	)
	if err != nil {
		return fmt.Errorf("append new product: %w", err)
	}
	return nil
}

// CountTodayVehicles counts gate movements recorded today, used to
// auto-number vehicles ("Vehicle #<count+1>").
func (s *Store) CountTodayVehicles(ctx context.Context) (int, error) {
	today := s.now().Format("2006-01-02")
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicles WHERE op_date = ?`, today,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count today vehicles: %w", err)
	}
	return count, nil
}

// TableURL returns the user-facing deep link for a record table kind.
// Unknown kinds fall back to the warehouse table.
func (s *Store) TableURL(kind string) string {
	switch kind {
	case "vehicles":
		if s.tables.VehiclesURL != "" {
			return s.tables.VehiclesURL
		}
	case "documents":
		if s.tables.DocumentsURL != "" {
			return s.tables.DocumentsURL
		}
	}
	return s.tables.WarehouseURL
}

func encodeLinks(links []string) (string, error) {
	if len(links) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("encode photo links: %w", err)
	}
	return string(data), nil
}
