package recordstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"warehousebot/internal/models"
)

// History filter and period keys understood by QueryHistory.
const (
	FilterAll       = "all"
	FilterReceipt   = "receipt"
	FilterIssue     = "issue"
	FilterDocuments = "documents"
	FilterVehicles  = "vehicles"

	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodWeek      = "week"
	PeriodMonth     = "month"
)

// QueryHistory returns up to limit summary records matching the filter and
// period, sorted descending by date then time.
func (s *Store) QueryHistory(ctx context.Context, filter, period string, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	start, end := s.periodBounds(period)

	var records []models.HistoryRecord

	if filter == FilterAll || filter == FilterReceipt || filter == FilterIssue {
		movements, err := s.historyMovements(ctx, filter, start, end)
		if err != nil {
			return nil, err
		}
		records = append(records, movements...)
	}
	if filter == FilterAll || filter == FilterDocuments {
		docs, err := s.historyDocuments(ctx, start, end)
		if err != nil {
			return nil, err
		}
		records = append(records, docs...)
	}
	if filter == FilterAll || filter == FilterVehicles {
		vehicles, err := s.historyVehicles(ctx, start, end)
		if err != nil {
			return nil, err
		}
		records = append(records, vehicles...)
	}

	// ISO date plus HH:MM:SS compares correctly as text.
	sort.SliceStable(records, func(i, j int) bool {
		a := records[i].Date + " " + records[i].Time
		b := records[j].Date + " " + records[j].Time
		return a > b
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// periodBounds maps a period key to [start, end) date strings; end is ""
// for open-ended periods. Unknown keys fall back to the last week.
func (s *Store) periodBounds(period string) (string, string) {
	now := s.now()
	day := 24 * time.Hour
	switch period {
	case PeriodToday:
		return now.Format("2006-01-02"), ""
	case PeriodYesterday:
		return now.Add(-day).Format("2006-01-02"), now.Format("2006-01-02")
	case PeriodMonth:
		return now.Add(-30 * day).Format("2006-01-02"), ""
	default:
		return now.Add(-7 * day).Format("2006-01-02"), ""
	}
}

func dateClause(end string) string {
	if end == "" {
		return `op_date >= ?`
	}
	return `op_date >= ? AND op_date < ?`
}

func dateArgs(start, end string, head ...interface{}) []interface{} {
	args := append([]interface{}{}, head...)
	args = append(args, start)
	if end != "" {
		args = append(args, end)
	}
	return args
}

func (s *Store) historyMovements(ctx context.Context, filter, start, end string) ([]models.HistoryRecord, error) {
	query := `SELECT op_date, op_time, op_type, counterparty, quantity FROM movements WHERE ` + dateClause(end)
	args := dateArgs(start, end)
	if filter == FilterReceipt || filter == FilterIssue {
		query += ` AND op_type = ?`
		args = append(args, filter)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history movements: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		var date, opTime, opType, counterparty string
		var quantity int
		if err := rows.Scan(&date, &opTime, &opType, &counterparty, &quantity); err != nil {
			return nil, fmt.Errorf("scan movement history: %w", err)
		}
		marker := "📥"
		if opType == string(models.OperationIssue) {
			marker = "📤"
		}
		out = append(out, models.HistoryRecord{
			Type:    opType,
			Marker:  marker,
			Date:    date,
			Time:    opTime,
			Details: fmt.Sprintf("%s | %d", counterparty, quantity),
		})
	}
	return out, rows.Err()
}

func (s *Store) historyDocuments(ctx context.Context, start, end string) ([]models.HistoryRecord, error) {
	query := `SELECT op_date, op_time, doc_type, counterparty FROM documents WHERE ` + dateClause(end)
	rows, err := s.db.QueryContext(ctx, query, dateArgs(start, end)...)
	if err != nil {
		return nil, fmt.Errorf("history documents: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		var date, opTime, docType, counterparty string
		if err := rows.Scan(&date, &opTime, &docType, &counterparty); err != nil {
			return nil, fmt.Errorf("scan document history: %w", err)
		}
		out = append(out, models.HistoryRecord{
			Type:    docType,
			Marker:  "📄",
			Date:    date,
			Time:    opTime,
			Details: counterparty,
		})
	}
	return out, rows.Err()
}

func (s *Store) historyVehicles(ctx context.Context, start, end string) ([]models.HistoryRecord, error) {
	query := `SELECT op_date, op_time, direction, vehicle_id FROM vehicles WHERE ` + dateClause(end)
	rows, err := s.db.QueryContext(ctx, query, dateArgs(start, end)...)
	if err != nil {
		return nil, fmt.Errorf("history vehicles: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		var date, opTime, direction, vehicleID string
		if err := rows.Scan(&date, &opTime, &direction, &vehicleID); err != nil {
			return nil, fmt.Errorf("scan vehicle history: %w", err)
		}
		marker := "🟢"
		if direction == string(models.DirectionOut) {
			marker = "🔴"
		}
		out = append(out, models.HistoryRecord{
			Type:    direction,
			Marker:  marker,
			Date:    date,
			Time:    opTime,
			Details: vehicleID,
		})
	}
	return out, rows.Err()
}
