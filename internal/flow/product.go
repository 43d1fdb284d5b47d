package flow

import (
	"context"
	"fmt"

	"warehousebot/internal/models"
)

func (e *Engine) startNewProduct(ctx context.Context, sess *Session, user models.User) []Reply {
	if !user.Warehouse {
		return e.denied(ctx, sess)
	}
	e.teardown(sess)
	sess.Draft = &models.NewProductDraft{Employee: user.Username}
	sess.StartedAt = e.now()
	sess.State = StateNewProductPhotos
	return []Reply{{
		Text: fmt.Sprintf("New product. Send photos (up to %d), then press %s.",
			e.limits.MaxPhotosNewProduct, btnDone),
		Keyboard: keyboard([]string{btnDone}, cancelRow()),
	}}
}

func (e *Engine) handleNewProductPhotos(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.NewProductDraft)
	switch {
	case in.Kind == KindPhoto:
		draft.Photos = append(draft.Photos, in.FilePath)
		if len(draft.Photos) >= e.limits.MaxPhotosNewProduct {
			return append(
				[]Reply{{Text: fmt.Sprintf("Photo %d of %d. Maximum reached.", len(draft.Photos), e.limits.MaxPhotosNewProduct)}},
				e.productDescriptionPrompt(sess)...)
		}
		return []Reply{{Text: fmt.Sprintf("Photo %d of %d.", len(draft.Photos), e.limits.MaxPhotosNewProduct)}}
	case in.Kind == KindText && isChoice(in.Text, btnDone):
		if len(draft.Photos) == 0 {
			return []Reply{{Text: "Send at least one photo first."}}
		}
		return e.productDescriptionPrompt(sess)
	default:
		return []Reply{{Text: fmt.Sprintf("Send a photo or press %s.", btnDone)}}
	}
}

func (e *Engine) productDescriptionPrompt(sess *Session) []Reply {
	sess.State = StateNewProductComment
	return []Reply{{Text: "Describe the product (name, packaging, anything identifying):", Keyboard: keyboard(cancelRow())}}
}

func (e *Engine) handleNewProductComment(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.NewProductDraft)
	if in.Kind != KindText {
		return []Reply{{Text: "Type a short description."}}
	}
	desc := e.normalizeComment(in.Text)
	if desc == "" {
		return []Reply{{Text: "Type a short description."}}
	}
	draft.Description = desc
	sess.State = StateNewProductType
	var rows [][]string
	for _, t := range e.prodType {
		rows = append(rows, []string{t})
	}
	rows = append(rows, cancelRow())
	return []Reply{{Text: "Choose the product type:", Keyboard: rows}}
}

func (e *Engine) handleNewProductType(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.NewProductDraft)
	if in.Kind != KindText {
		return []Reply{{Text: "Choose a type from the list."}}
	}
	for _, t := range e.prodType {
		if isChoice(in.Text, t) {
			draft.ProductType = t
			return e.finalizeNewProduct(ctx, sess, draft)
		}
	}
	return []Reply{{Text: "Choose a type from the list."}}
}
