package flow

import (
	"context"
	"fmt"

	"warehousebot/internal/models"
)

func (e *Engine) startDocument(ctx context.Context, sess *Session, user models.User) []Reply {
	if !user.Documents {
		return e.denied(ctx, sess)
	}
	e.teardown(sess)
	sess.Draft = &models.DocumentDraft{Employee: user.Username}
	sess.StartedAt = e.now()
	sess.State = StateDocType
	var rows [][]string
	for _, t := range e.docType {
		rows = append(rows, []string{t})
	}
	rows = append(rows, cancelRow())
	return []Reply{{Text: "Document capture. Choose the document type:", Keyboard: rows}}
}

func (e *Engine) handleDocType(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.DocumentDraft)
	if in.Kind != KindText {
		return []Reply{{Text: "Choose a document type from the list."}}
	}
	for _, t := range e.docType {
		if isChoice(in.Text, t) {
			draft.DocType = t
			sess.State = StateDocPhotos
			return []Reply{{
				Text: fmt.Sprintf("Send photos of the document (up to %d), then press %s.",
					e.limits.MaxPhotosDocument, btnDone),
				Keyboard: keyboard([]string{btnDone}, cancelRow()),
			}}
		}
	}
	return []Reply{{Text: "Choose a document type from the list."}}
}

func (e *Engine) handleDocPhotos(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.DocumentDraft)
	switch {
	case in.Kind == KindPhoto:
		draft.Photos = append(draft.Photos, in.FilePath)
		if len(draft.Photos) >= e.limits.MaxPhotosDocument {
			return append(
				[]Reply{{Text: fmt.Sprintf("Photo %d of %d. Maximum reached.", len(draft.Photos), e.limits.MaxPhotosDocument)}},
				e.docCounterpartyPrompt(sess)...)
		}
		return []Reply{{Text: fmt.Sprintf("Photo %d of %d.", len(draft.Photos), e.limits.MaxPhotosDocument)}}
	case in.Kind == KindText && isChoice(in.Text, btnDone):
		if len(draft.Photos) == 0 {
			return []Reply{{Text: "Send at least one photo first."}}
		}
		return e.docCounterpartyPrompt(sess)
	default:
		return []Reply{{Text: fmt.Sprintf("Send a photo or press %s.", btnDone)}}
	}
}

func (e *Engine) docCounterpartyPrompt(sess *Session) []Reply {
	sess.State = StateDocCounterparty
	return []Reply{{
		Text:     fmt.Sprintf("Type the counterparty for this document, or press %s:", btnSkip),
		Keyboard: keyboard([]string{btnSkip}, cancelRow()),
	}}
}

func (e *Engine) handleDocCounterparty(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.DocumentDraft)
	if in.Kind != KindText {
		return []Reply{{Text: fmt.Sprintf("Type the counterparty or press %s.", btnSkip)}}
	}
	if isChoice(in.Text, btnSkip) {
		draft.Counterparty = ""
	} else {
		draft.Counterparty = stripDecor(in.Text)
	}
	sess.State = StateDocComment
	return []Reply{{Text: e.commentPromptText(), Keyboard: keyboard([]string{btnSkip}, cancelRow())}}
}

func (e *Engine) handleDocComment(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.DocumentDraft)
	if in.Kind != KindText {
		return []Reply{{Text: e.commentPromptText()}}
	}
	if isChoice(in.Text, btnSkip) {
		draft.Comment = ""
	} else {
		draft.Comment = e.normalizeComment(in.Text)
	}
	return e.finalizeDocument(ctx, sess, draft)
}
