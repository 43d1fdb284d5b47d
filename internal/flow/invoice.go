package flow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"warehousebot/internal/models"
)

var invoiceExts = map[string]bool{".xlsx": true, ".xls": true, ".pdf": true}

// invoicePrompt reacts to the Invoices menu button. The workflow only
// really starts when the file itself arrives.
func (e *Engine) invoicePrompt(ctx context.Context, sess *Session, user models.User) []Reply {
	if !user.Invoices {
		return e.denied(ctx, sess)
	}
	return []Reply{{Text: "Send the invoice file (xlsx, xls or pdf) as an attachment."}}
}

// startInvoice handles a document attachment arriving at the main menu.
// On rejection the staged file is released by the turn boundary, since no
// draft adopts it.
func (e *Engine) startInvoice(ctx context.Context, sess *Session, user models.User, in Input) []Reply {
	if !user.Invoices {
		return e.denied(ctx, sess)
	}
	if !invoiceExts[strings.ToLower(filepath.Ext(in.FileName))] {
		return e.withMenu(ctx, sess, "Only xlsx, xls or pdf invoices are accepted.")
	}
	e.teardown(sess)
	sess.Draft = &models.InvoiceDraft{FilePath: in.FilePath, FileName: in.FileName, Employee: user.Username}
	sess.StartedAt = e.now()
	sess.State = StateInvoiceComment
	return []Reply{{
		Text:     fmt.Sprintf("Invoice %s received.\n%s", in.FileName, e.commentPromptText()),
		Keyboard: keyboard([]string{btnSkip}, cancelRow()),
	}}
}

func (e *Engine) handleInvoiceComment(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.InvoiceDraft)
	if in.Kind != KindText {
		return []Reply{{Text: e.commentPromptText()}}
	}
	if isChoice(in.Text, btnSkip) {
		draft.Comment = ""
	} else {
		draft.Comment = e.normalizeComment(in.Text)
	}
	return e.finalizeInvoice(ctx, sess, draft)
}
