package models

// Workflow tags which draft variant a session is accumulating. Exactly one
// draft shape is active per session at any time.
type Workflow string

const (
	WorkflowNone       Workflow = ""
	WorkflowMovement   Workflow = "movement"
	WorkflowNewProduct Workflow = "new_product"
	WorkflowDocument   Workflow = "document"
	WorkflowVehicle    Workflow = "vehicle"
	WorkflowInvoice    Workflow = "invoice"
	WorkflowHistory    Workflow = "history"
)

// OperationType distinguishes stock receipts from issues.
type OperationType string

const (
	OperationReceipt OperationType = "receipt"
	OperationIssue   OperationType = "issue"
)

// Direction is a vehicle gate movement direction.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Draft is the in-progress, unpersisted record a workflow accumulates.
// StagedFiles reports every locally staged upload the draft owns so that
// teardown can release them in one deterministic step.
type Draft interface {
	Workflow() Workflow
	StagedFiles() []string
}

// Position is one line item of a stock movement: its photos plus a quantity.
type Position struct {
	Number   int
	Photos   []string // staged file paths, capture order
	Quantity int
}

// MovementDraft accumulates a receipt or issue across positions.
type MovementDraft struct {
	OpType       OperationType
	Counterparty string
	CustomTarget bool // next text is taken verbatim as the counterparty
	Positions    []Position
	Current      *Position
	Comment      string
	Employee     string
}

func (d *MovementDraft) Workflow() Workflow { return WorkflowMovement }

func (d *MovementDraft) StagedFiles() []string {
	var files []string
	for _, p := range d.Positions {
		files = append(files, p.Photos...)
	}
	if d.Current != nil {
		files = append(files, d.Current.Photos...)
	}
	return files
}

// NewProductDraft captures photos and a description of a product not yet
// present in the catalog.
type NewProductDraft struct {
	Photos      []string
	Description string
	ProductType string
	Employee    string
}

func (d *NewProductDraft) Workflow() Workflow    { return WorkflowNewProduct }
func (d *NewProductDraft) StagedFiles() []string { return d.Photos }

// DocumentDraft captures a scanned paper document.
type DocumentDraft struct {
	DocType      string
	Photos       []string
	Counterparty string
	Comment      string
	Employee     string
}

func (d *DocumentDraft) Workflow() Workflow    { return WorkflowDocument }
func (d *DocumentDraft) StagedFiles() []string { return d.Photos }

// VehicleDraft captures one gate movement.
type VehicleDraft struct {
	Direction Direction
	VehicleID string
	Photos    []string
	Comment   string
	Employee  string
}

func (d *VehicleDraft) Workflow() Workflow    { return WorkflowVehicle }
func (d *VehicleDraft) StagedFiles() []string { return d.Photos }

// InvoiceDraft holds a single uploaded supplier invoice file.
type InvoiceDraft struct {
	FilePath string
	FileName string
	Comment  string
	Employee string
}

func (d *InvoiceDraft) Workflow() Workflow { return WorkflowInvoice }

func (d *InvoiceDraft) StagedFiles() []string {
	if d.FilePath == "" {
		return nil
	}
	return []string{d.FilePath}
}

// HistoryDraft only carries the chosen filter between the two query steps.
type HistoryDraft struct {
	Filter string
}

func (d *HistoryDraft) Workflow() Workflow    { return WorkflowHistory }
func (d *HistoryDraft) StagedFiles() []string { return nil }
