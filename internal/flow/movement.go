package flow

import (
	"context"
	"fmt"

	"warehousebot/internal/models"
)

// startMovement opens a receipt or issue draft. Receipts pick a
// counterparty, issues pick a destination place.
func (e *Engine) startMovement(ctx context.Context, sess *Session, user models.User, opType models.OperationType) []Reply {
	if !user.Warehouse {
		return e.denied(ctx, sess)
	}
	e.teardown(sess)
	sess.Draft = &models.MovementDraft{OpType: opType, Employee: user.Username}
	sess.StartedAt = e.now()

	if opType == models.OperationReceipt {
		sess.State = StateSelectCounterparty
		return []Reply{{
			Text:     "Receipt. Choose a counterparty:",
			Keyboard: e.targetKeyboard(counterpartyNames(e.dir.Counterparties(ctx))),
		}}
	}
	sess.State = StateSelectPlace
	return []Reply{{
		Text:     "Issue. Choose a destination:",
		Keyboard: e.targetKeyboard(placeNames(e.dir.Places(ctx))),
	}}
}

func counterpartyNames(list []models.Counterparty) []string {
	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	return names
}

func placeNames(list []models.Place) []string {
	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Name)
	}
	return names
}

func (e *Engine) targetKeyboard(names []string) [][]string {
	var rows [][]string
	for _, n := range names {
		rows = append(rows, []string{choicePrefix + n})
	}
	rows = append(rows, []string{btnOther}, cancelRow())
	return rows
}

// handleSelectTarget accepts a listed choice or, after the Other button, a
// single free-text value taken verbatim without re-validation.
func (e *Engine) handleSelectTarget(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.MovementDraft)
	if in.Kind != KindText {
		return []Reply{{Text: "Choose from the list or press " + btnOther + "."}}
	}

	if draft.CustomTarget {
		draft.CustomTarget = false
		draft.Counterparty = stripDecor(in.Text)
		return e.firstPositionPrompt(sess, draft)
	}
	if isChoice(in.Text, btnOther) {
		draft.CustomTarget = true
		return []Reply{{Text: "Type the name:", Keyboard: keyboard(cancelRow())}}
	}

	var names []string
	if sess.State == StateSelectCounterparty {
		names = counterpartyNames(e.dir.Counterparties(ctx))
	} else {
		names = placeNames(e.dir.Places(ctx))
	}
	typed := stripDecor(in.Text)
	for _, n := range names {
		if isChoice(typed, n) {
			draft.Counterparty = n
			return e.firstPositionPrompt(sess, draft)
		}
	}
	return []Reply{{Text: "Choose from the list or press " + btnOther + "."}}
}

func (e *Engine) firstPositionPrompt(sess *Session, draft *models.MovementDraft) []Reply {
	draft.Current = &models.Position{Number: 1}
	sess.State = StatePositionPhotos
	return []Reply{{
		Text: fmt.Sprintf("%s. Position 1: send photos (up to %d), then press %s.",
			draft.Counterparty, e.limits.MaxPhotosPerPosition, btnDone),
		Keyboard: keyboard([]string{btnDone}, cancelRow()),
	}}
}

// handlePositionPhotos runs the bounded photo collection loop for the
// current position. Hitting the cap advances as if Done were pressed.
func (e *Engine) handlePositionPhotos(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.MovementDraft)
	pos := draft.Current

	switch {
	case in.Kind == KindPhoto:
		pos.Photos = append(pos.Photos, in.FilePath)
		if len(pos.Photos) >= e.limits.MaxPhotosPerPosition {
			return append(
				[]Reply{{Text: fmt.Sprintf("Photo %d of %d. Maximum reached.", len(pos.Photos), e.limits.MaxPhotosPerPosition)}},
				e.quantityPrompt(sess, pos)...)
		}
		return []Reply{{Text: fmt.Sprintf("Photo %d of %d.", len(pos.Photos), e.limits.MaxPhotosPerPosition)}}
	case in.Kind == KindText && isChoice(in.Text, btnDone):
		if len(pos.Photos) == 0 {
			return []Reply{{Text: "Send at least one photo first."}}
		}
		return e.quantityPrompt(sess, pos)
	default:
		return []Reply{{Text: fmt.Sprintf("Send a photo or press %s.", btnDone)}}
	}
}

func (e *Engine) quantityPrompt(sess *Session, pos *models.Position) []Reply {
	sess.State = StatePositionQty
	return []Reply{{
		Text:     fmt.Sprintf("Enter quantity for position %d (1..%d):", pos.Number, e.limits.MaxQuantity),
		Keyboard: keyboard(cancelRow()),
	}}
}

// handlePositionQty validates the quantity and closes the position. At the
// position cap the add-another choice is skipped entirely.
func (e *Engine) handlePositionQty(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.MovementDraft)
	if in.Kind != KindText {
		return []Reply{{Text: fmt.Sprintf("Enter a number from 1 to %d.", e.limits.MaxQuantity)}}
	}
	qty, ok := parseQuantity(in.Text, e.limits.MaxQuantity)
	if !ok {
		return []Reply{{Text: fmt.Sprintf("Enter a number from 1 to %d.", e.limits.MaxQuantity)}}
	}
	draft.Current.Quantity = qty
	draft.Positions = append(draft.Positions, *draft.Current)
	draft.Current = nil

	if len(draft.Positions) >= e.limits.MaxPositions {
		sess.State = StateGeneralComment
		return []Reply{{
			Text: fmt.Sprintf("Position %d saved. Position limit (%d) reached.\n%s",
				len(draft.Positions), e.limits.MaxPositions, e.commentPromptText()),
			Keyboard: keyboard([]string{btnSkip}, cancelRow()),
		}}
	}
	sess.State = StateOperationSummary
	last := draft.Positions[len(draft.Positions)-1]
	return []Reply{{
		Text: fmt.Sprintf("Position %d saved: %d photo(s), quantity %d. Positions so far: %d.",
			last.Number, len(last.Photos), last.Quantity, len(draft.Positions)),
		Keyboard: keyboard([]string{btnAddPosition, btnFinish}, cancelRow()),
	}}
}

func (e *Engine) commentPromptText() string {
	return fmt.Sprintf("Add a comment to the operation or press %s:", btnSkip)
}

func (e *Engine) handleOperationSummary(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.MovementDraft)
	if in.Kind != KindText {
		return []Reply{{Text: fmt.Sprintf("Press %s or %s.", btnAddPosition, btnFinish)}}
	}
	switch {
	case isChoice(in.Text, btnAddPosition):
		draft.Current = &models.Position{Number: len(draft.Positions) + 1}
		sess.State = StatePositionPhotos
		return []Reply{{
			Text: fmt.Sprintf("Position %d: send photos (up to %d), then press %s.",
				draft.Current.Number, e.limits.MaxPhotosPerPosition, btnDone),
			Keyboard: keyboard([]string{btnDone}, cancelRow()),
		}}
	case isChoice(in.Text, btnFinish):
		sess.State = StateGeneralComment
		return []Reply{{Text: e.commentPromptText(), Keyboard: keyboard([]string{btnSkip}, cancelRow())}}
	default:
		return []Reply{{Text: fmt.Sprintf("Press %s or %s.", btnAddPosition, btnFinish)}}
	}
}

func (e *Engine) handleGeneralComment(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.MovementDraft)
	if in.Kind != KindText {
		return []Reply{{Text: e.commentPromptText()}}
	}
	if isChoice(in.Text, btnSkip) {
		draft.Comment = ""
	} else {
		draft.Comment = e.normalizeComment(in.Text)
	}
	return e.finalizeMovement(ctx, sess, draft)
}
