package models

// Finalized row shapes handed to the record store. One movement operation
// produces one MovementRow per position, all sharing OperationID.

const maxMovementPhotoLinks = 5

type MovementRow struct {
	Date           string
	Time           string
	OpType         OperationType
	Counterparty   string
	OperationID    string
	PositionNumber int
	Quantity       int
	PositionNote   string
	PhotoLinks     []string // at most 5 persisted
	GeneralComment string
	Employee       string
	Status         string
}

// PhotoLink returns the i-th (0-based) link or "" when absent, so row
// mapping never indexes out of range.
func (r MovementRow) PhotoLink(i int) string {
	if i < 0 || i >= len(r.PhotoLinks) || i >= maxMovementPhotoLinks {
		return ""
	}
	return r.PhotoLinks[i]
}

type VehicleRow struct {
	Date       string
	Time       string
	Direction  Direction
	VehicleID  string
	PhotoLinks []string // up to 10
	Comment    string
	Employee   string
}

type DocumentRow struct {
	Date         string
	Time         string
	DocType      string
	Counterparty string
	PhotoLinks   []string
	Comment      string
	Employee     string
}

type InvoiceRow struct {
	Date     string
	FileName string
	FileLink string
	Comment  string
	Employee string
}

type NewProductRow struct {
	Date        string
	Time        string
	Employee    string
	PhotoLinks  []string
	Description string
	ProductType string
}

// HistoryRecord is one line of a bounded history digest.
type HistoryRecord struct {
	Type    string
	Marker  string
	Date    string
	Time    string
	Details string
}
