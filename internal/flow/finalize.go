package flow

import (
	"context"
	"fmt"
	"log"

	"warehousebot/internal/models"
)

// Finalize sequencing, shared shape for every workflow: archive staged
// media, drop the local copies whether or not archiving worked, append the
// rows, clear the session no matter what. A failed append is reported but
// never retried; the uploaded files stay where they are.

const savedStatus = "NEW"

// operationID builds the correlation id shared by every row of one
// operation: time-ordered and tagged with the operator.
func (e *Engine) operationID(employee string) string {
	return fmt.Sprintf("OP-%s-%s", e.now().Format("20060102-150405"), employee)
}

func (e *Engine) finalizeMovement(ctx context.Context, sess *Session, draft *models.MovementDraft) []Reply {
	now := e.now()
	opID := e.operationID(draft.Employee)

	links := make([][]string, len(draft.Positions))
	for i, pos := range draft.Positions {
		links[i] = e.blobs.SaveOperationPhotos(pos.Photos, opID, string(draft.OpType), draft.Counterparty, pos.Number)
	}
	e.files.Remove(draft.StagedFiles()...)

	var failed bool
	for i, pos := range draft.Positions {
		row := models.MovementRow{
			Date:           now.Format("2006-01-02"),
			Time:           now.Format("15:04:05"),
			OpType:         draft.OpType,
			Counterparty:   draft.Counterparty,
			OperationID:    opID,
			PositionNumber: pos.Number,
			Quantity:       pos.Quantity,
			PhotoLinks:     links[i],
			GeneralComment: draft.Comment,
			Employee:       draft.Employee,
			Status:         savedStatus,
		}
		if err := e.records.AppendMovement(ctx, row, i == 0); err != nil {
			log.Printf("flow: movement append failed op=%s position=%d: %v", opID, pos.Number, err)
			failed = true
			break
		}
	}

	positions := len(draft.Positions)
	counterparty := draft.Counterparty
	label := "Receipt"
	if draft.OpType == models.OperationIssue {
		label = "Issue"
	}
	sess.Draft = nil
	sess.State = StateIdle
	if failed {
		return e.withMenu(ctx, sess, "Could not save the operation. Please try again.")
	}
	return e.withMenu(ctx, sess, fmt.Sprintf("%s saved: %d position(s), %s.\nOperation id: %s",
		label, positions, counterparty, opID))
}

func (e *Engine) finalizeNewProduct(ctx context.Context, sess *Session, draft *models.NewProductDraft) []Reply {
	now := e.now()
	links := e.blobs.SaveNewProductPhotos(draft.Photos, draft.Employee)
	e.files.Remove(draft.StagedFiles()...)

	row := models.NewProductRow{
		Date:        now.Format("2006-01-02"),
		Time:        now.Format("15:04:05"),
		Employee:    draft.Employee,
		PhotoLinks:  links,
		Description: draft.Description,
		ProductType: draft.ProductType,
	}
	err := e.records.AppendNewProduct(ctx, row)
	sess.Draft = nil
	sess.State = StateIdle
	if err != nil {
		log.Printf("flow: new product append failed: %v", err)
		return e.withMenu(ctx, sess, "Could not save the new product. Please try again.")
	}
	return e.withMenu(ctx, sess, "New product recorded. Thank you!")
}

func (e *Engine) finalizeDocument(ctx context.Context, sess *Session, draft *models.DocumentDraft) []Reply {
	now := e.now()
	links := e.blobs.SaveDocumentPhotos(draft.Photos, draft.DocType)
	e.files.Remove(draft.StagedFiles()...)

	row := models.DocumentRow{
		Date:         now.Format("2006-01-02"),
		Time:         now.Format("15:04:05"),
		DocType:      draft.DocType,
		Counterparty: draft.Counterparty,
		PhotoLinks:   links,
		Comment:      draft.Comment,
		Employee:     draft.Employee,
	}
	err := e.records.AppendDocument(ctx, row)
	sess.Draft = nil
	sess.State = StateIdle
	if err != nil {
		log.Printf("flow: document append failed: %v", err)
		return e.withMenu(ctx, sess, "Could not save the document. Please try again.")
	}
	return e.withMenu(ctx, sess, "Document recorded.")
}

func (e *Engine) finalizeVehicle(ctx context.Context, sess *Session, draft *models.VehicleDraft) []Reply {
	now := e.now()
	links := e.blobs.SaveVehiclePhotos(draft.Photos, draft.VehicleID, draft.Direction == models.DirectionIn)
	e.files.Remove(draft.StagedFiles()...)

	row := models.VehicleRow{
		Date:       now.Format("2006-01-02"),
		Time:       now.Format("15:04:05"),
		Direction:  draft.Direction,
		VehicleID:  draft.VehicleID,
		PhotoLinks: links,
		Comment:    draft.Comment,
		Employee:   draft.Employee,
	}
	vehicleID := draft.VehicleID
	err := e.records.AppendVehicle(ctx, row)
	sess.Draft = nil
	sess.State = StateIdle
	if err != nil {
		log.Printf("flow: vehicle append failed: %v", err)
		return e.withMenu(ctx, sess, "Could not save the vehicle movement. Please try again.")
	}
	return e.withMenu(ctx, sess, fmt.Sprintf("Vehicle movement recorded: %s.", vehicleID))
}

func (e *Engine) finalizeInvoice(ctx context.Context, sess *Session, draft *models.InvoiceDraft) []Reply {
	now := e.now()
	link := e.blobs.SaveInvoice(draft.FilePath, draft.FileName)
	e.files.Remove(draft.StagedFiles()...)

	row := models.InvoiceRow{
		Date:     now.Format("2006-01-02"),
		FileName: draft.FileName,
		FileLink: link,
		Comment:  draft.Comment,
		Employee: draft.Employee,
	}
	fileName := draft.FileName
	err := e.records.AppendInvoice(ctx, row)
	sess.Draft = nil
	sess.State = StateIdle
	if err != nil {
		log.Printf("flow: invoice append failed: %v", err)
		return e.withMenu(ctx, sess, "Could not save the invoice. Please try again.")
	}
	return e.withMenu(ctx, sess, fmt.Sprintf("Invoice %s recorded.", fileName))
}
