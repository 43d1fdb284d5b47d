package flow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"warehousebot/internal/models"
	"warehousebot/internal/recordstore"
)

const (
	btnHistAll       = "📦 All"
	btnHistReceipts  = "📥 Receipts"
	btnHistIssues    = "📤 Issues"
	btnHistDocuments = "📄 Documents"
	btnHistVehicles  = "🚚 Vehicles"

	btnPeriodToday     = "Today"
	btnPeriodYesterday = "Yesterday"
	btnPeriodWeek      = "Week"
	btnPeriodMonth     = "Month"
)

func (e *Engine) startHistory(sess *Session) []Reply {
	e.teardown(sess)
	sess.Draft = &models.HistoryDraft{}
	sess.StartedAt = e.now()
	sess.State = StateHistoryFilter
	return []Reply{{
		Text: "History. What to show?",
		Keyboard: keyboard(
			[]string{btnHistAll},
			[]string{btnHistReceipts, btnHistIssues},
			[]string{btnHistDocuments, btnHistVehicles},
			cancelRow()),
	}}
}

func (e *Engine) handleHistoryFilter(sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.HistoryDraft)
	if in.Kind != KindText {
		return []Reply{{Text: "Choose a filter from the list."}}
	}
	switch {
	case isChoice(in.Text, btnHistAll):
		draft.Filter = recordstore.FilterAll
	case isChoice(in.Text, btnHistReceipts):
		draft.Filter = recordstore.FilterReceipt
	case isChoice(in.Text, btnHistIssues):
		draft.Filter = recordstore.FilterIssue
	case isChoice(in.Text, btnHistDocuments):
		draft.Filter = recordstore.FilterDocuments
	case isChoice(in.Text, btnHistVehicles):
		draft.Filter = recordstore.FilterVehicles
	default:
		return []Reply{{Text: "Choose a filter from the list."}}
	}
	sess.State = StateHistoryPeriod
	return []Reply{{
		Text: "For which period?",
		Keyboard: keyboard(
			[]string{btnPeriodToday, btnPeriodYesterday},
			[]string{btnPeriodWeek, btnPeriodMonth},
			cancelRow()),
	}}
}

func (e *Engine) handleHistoryPeriod(ctx context.Context, sess *Session, in Input) []Reply {
	draft := sess.Draft.(*models.HistoryDraft)
	if in.Kind != KindText {
		return []Reply{{Text: "Choose a period from the list."}}
	}
	var period string
	switch {
	case isChoice(in.Text, btnPeriodToday):
		period = recordstore.PeriodToday
	case isChoice(in.Text, btnPeriodYesterday):
		period = recordstore.PeriodYesterday
	case isChoice(in.Text, btnPeriodWeek):
		period = recordstore.PeriodWeek
	case isChoice(in.Text, btnPeriodMonth):
		period = recordstore.PeriodMonth
	default:
		return []Reply{{Text: "Choose a period from the list."}}
	}

	records, err := e.records.QueryHistory(ctx, draft.Filter, period, e.limits.HistoryLimit)
	filter := draft.Filter
	e.teardown(sess)
	if err != nil {
		log.Printf("flow: history query failed: %v", err)
		return e.withMenu(ctx, sess, "Could not load the history. Try again later.")
	}
	return e.withMenu(ctx, sess, e.formatHistory(filter, records))
}

func (e *Engine) formatHistory(filter string, records []models.HistoryRecord) string {
	if len(records) == 0 {
		return "Nothing found for this period."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d record(s):\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "%s %s %s  %s\n", r.Marker, r.Date, r.Time, r.Details)
	}
	kind := "warehouse"
	switch filter {
	case recordstore.FilterDocuments:
		kind = "documents"
	case recordstore.FilterVehicles:
		kind = "vehicles"
	}
	if url := e.records.TableURL(kind); url != "" {
		fmt.Fprintf(&b, "\nFull table: %s", url)
	}
	return b.String()
}
