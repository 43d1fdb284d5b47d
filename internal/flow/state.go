package flow

import (
	"time"

	"warehousebot/internal/models"
)

// State enumerates every conversation position a session can occupy.
// StateIdle is the main menu; everything else belongs to exactly one
// workflow and expects a draft of that workflow's shape.
type State int

const (
	StateIdle State = iota

	// stock movement (receipt / issue)
	StateSelectCounterparty
	StateSelectPlace
	StatePositionPhotos
	StatePositionQty
	StateOperationSummary
	StateGeneralComment

	// new product intake
	StateNewProductPhotos
	StateNewProductComment
	StateNewProductType

	// document capture
	StateDocType
	StateDocPhotos
	StateDocCounterparty
	StateDocComment

	// vehicle gate movement
	StateVehicleOpType
	StateVehicleID
	StateVehiclePhotos
	StateVehicleComment

	// invoice intake (file arrives from the menu, then a comment)
	StateInvoiceComment

	// history query
	StateHistoryFilter
	StateHistoryPeriod
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateSelectCounterparty: "select_counterparty",
	StateSelectPlace:        "select_place",
	StatePositionPhotos:     "position_photos",
	StatePositionQty:        "position_qty",
	StateOperationSummary:   "operation_summary",
	StateGeneralComment:     "general_comment",
	StateNewProductPhotos:   "new_product_photos",
	StateNewProductComment:  "new_product_comment",
	StateNewProductType:     "new_product_type",
	StateDocType:            "doc_type",
	StateDocPhotos:          "doc_photos",
	StateDocCounterparty:    "doc_counterparty",
	StateDocComment:         "doc_comment",
	StateVehicleOpType:      "vehicle_op_type",
	StateVehicleID:          "vehicle_id",
	StateVehiclePhotos:      "vehicle_photos",
	StateVehicleComment:     "vehicle_comment",
	StateInvoiceComment:     "invoice_comment",
	StateHistoryFilter:      "history_filter",
	StateHistoryPeriod:      "history_period",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// workflowOf maps a state to the draft shape it requires. StateIdle maps
// to WorkflowNone and needs no draft.
func workflowOf(s State) models.Workflow {
	switch s {
	case StateSelectCounterparty, StateSelectPlace, StatePositionPhotos,
		StatePositionQty, StateOperationSummary, StateGeneralComment:
		return models.WorkflowMovement
	case StateNewProductPhotos, StateNewProductComment, StateNewProductType:
		return models.WorkflowNewProduct
	case StateDocType, StateDocPhotos, StateDocCounterparty, StateDocComment:
		return models.WorkflowDocument
	case StateVehicleOpType, StateVehicleID, StateVehiclePhotos, StateVehicleComment:
		return models.WorkflowVehicle
	case StateInvoiceComment:
		return models.WorkflowInvoice
	case StateHistoryFilter, StateHistoryPeriod:
		return models.WorkflowHistory
	default:
		return models.WorkflowNone
	}
}

// Session is one user's conversation. Owned by exactly one worker mailbox;
// never touched by two in-flight turns at once.
type Session struct {
	UserID    int64
	State     State
	Draft     models.Draft
	StartedAt time.Time
}

func NewSession(userID int64) *Session {
	return &Session{UserID: userID, State: StateIdle, StartedAt: time.Now()}
}
