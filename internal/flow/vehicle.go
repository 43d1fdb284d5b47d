package flow

import (
	"context"
	"fmt"
	"log"

	"warehousebot/internal/models"
)

func (e *Engine) startVehicle(ctx context.Context, sess *Session, user models.User) []Reply {
	if !user.Vehicles {
		return e.denied(ctx, sess)
	}
	e.teardown(sess)
	sess.Draft = &models.VehicleDraft{Employee: user.Username}
	sess.StartedAt = e.now()
	sess.State = StateVehicleOpType
	return []Reply{{
		Text:     "Vehicle movement. Entry or exit?",
		Keyboard: keyboard([]string{btnVehicleIn, btnVehicleOut}, cancelRow()),
	}}
}

func (e *Engine) handleVehicleOpType(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.VehicleDraft)
	if in.Kind != KindText {
		return []Reply{{Text: fmt.Sprintf("Press %s or %s.", btnVehicleIn, btnVehicleOut)}}
	}
	switch {
	case isChoice(in.Text, btnVehicleIn):
		draft.Direction = models.DirectionIn
	case isChoice(in.Text, btnVehicleOut):
		draft.Direction = models.DirectionOut
	default:
		return []Reply{{Text: fmt.Sprintf("Press %s or %s.", btnVehicleIn, btnVehicleOut)}}
	}
	sess.State = StateVehicleID
	return []Reply{{
		Text:     fmt.Sprintf("Type the vehicle plate or id, or press %s to number it automatically:", btnAuto),
		Keyboard: keyboard([]string{btnAuto}, cancelRow()),
	}}
}

func (e *Engine) handleVehicleID(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.VehicleDraft)
	if in.Kind != KindText {
		return []Reply{{Text: fmt.Sprintf("Type the vehicle id or press %s.", btnAuto)}}
	}
	if isChoice(in.Text, btnAuto) {
		count, err := e.records.CountTodayVehicles(ctx)
		if err != nil {
			log.Printf("flow: today vehicle count failed: %v", err)
			count = 0
		}
		draft.VehicleID = fmt.Sprintf("Vehicle #%d", count+1)
	} else {
		id := stripDecor(in.Text)
		if id == "" {
			return []Reply{{Text: fmt.Sprintf("Type the vehicle id or press %s.", btnAuto)}}
		}
		draft.VehicleID = id
	}
	sess.State = StateVehiclePhotos
	return []Reply{{
		Text: fmt.Sprintf("%s. Send photos (up to %d), then press %s.",
			draft.VehicleID, e.limits.MaxPhotosVehicle, btnDone),
		Keyboard: keyboard([]string{btnDone}, cancelRow()),
	}}
}

func (e *Engine) handleVehiclePhotos(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.VehicleDraft)
	switch {
	case in.Kind == KindPhoto:
		draft.Photos = append(draft.Photos, in.FilePath)
		if len(draft.Photos) >= e.limits.MaxPhotosVehicle {
			return append(
				[]Reply{{Text: fmt.Sprintf("Photo %d of %d. Maximum reached.", len(draft.Photos), e.limits.MaxPhotosVehicle)}},
				e.vehicleCommentPrompt(sess)...)
		}
		return []Reply{{Text: fmt.Sprintf("Photo %d of %d.", len(draft.Photos), e.limits.MaxPhotosVehicle)}}
	case in.Kind == KindText && isChoice(in.Text, btnDone):
		if len(draft.Photos) == 0 {
			return []Reply{{Text: "Send at least one photo first."}}
		}
		return e.vehicleCommentPrompt(sess)
	default:
		return []Reply{{Text: fmt.Sprintf("Send a photo or press %s.", btnDone)}}
	}
}

func (e *Engine) vehicleCommentPrompt(sess *Session) []Reply {
	sess.State = StateVehicleComment
	return []Reply{{Text: e.commentPromptText(), Keyboard: keyboard([]string{btnSkip}, cancelRow())}}
}

func (e *Engine) handleVehicleComment(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.VehicleDraft)
	if in.Kind != KindText {
		return []Reply{{Text: e.commentPromptText()}}
	}
	if isChoice(in.Text, btnSkip) {
		draft.Comment = ""
	} else {
		draft.Comment = e.normalizeComment(in.Text)
	}
	return e.finalizeVehicle(ctx, sess, draft)
}
