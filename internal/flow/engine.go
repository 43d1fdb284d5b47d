package flow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"warehousebot/internal/config"
	"warehousebot/internal/directory"
	"warehousebot/internal/models"
)

// Directory is the reference-data view the machine authorizes against.
type Directory interface {
	GetUser(ctx context.Context, id int64) (models.User, bool)
	Username(ctx context.Context, id int64) string
	DisplayName(ctx context.Context, id int64) string
	Counterparties(ctx context.Context) []models.Counterparty
	Places(ctx context.Context) []models.Place
	MenuItems(ctx context.Context, id int64) []string
	IsAdmin(ctx context.Context, id int64) bool
	ForceRefresh(ctx context.Context) (directory.Counts, error)
}

// Records is the append-only persistence boundary.
type Records interface {
	AppendMovement(ctx context.Context, row models.MovementRow, firstOfOperation bool) error
	AppendVehicle(ctx context.Context, row models.VehicleRow) error
	AppendDocument(ctx context.Context, row models.DocumentRow) error
	AppendInvoice(ctx context.Context, row models.InvoiceRow) error
	AppendNewProduct(ctx context.Context, row models.NewProductRow) error
	CountTodayVehicles(ctx context.Context) (int, error)
	QueryHistory(ctx context.Context, filter, period string, limit int) ([]models.HistoryRecord, error)
	TableURL(kind string) string
}

// Blobs archives staged media and returns one link per item, "" on failure.
type Blobs interface {
	SaveOperationPhotos(photos []string, operationID, opType, counterparty string, positionNumber int) []string
	SaveNewProductPhotos(photos []string, employee string) []string
	SaveDocumentPhotos(photos []string, docType string) []string
	SaveVehiclePhotos(photos []string, vehicleID string, inbound bool) []string
	SaveInvoice(stagedPath, originalName string) string
}

// Staging releases locally staged uploads.
type Staging interface {
	Remove(paths ...string)
	PurgeAll() int
}

// Engine drives one user through one workflow at a time. Transitions
// mutate the session in place; external effects happen only at finalize.
type Engine struct {
	dir      Directory
	records  Records
	blobs    Blobs
	files    Staging
	limits   config.Limits
	prodType []string
	docType  []string
	now      func() time.Time
}

func NewEngine(dir Directory, records Records, blobs Blobs, files Staging, cfg *config.Config) *Engine {
	return &Engine{
		dir:      dir,
		records:  records,
		blobs:    blobs,
		files:    files,
		limits:   cfg.Limits,
		prodType: cfg.ProductTypes,
		docType:  cfg.DocumentTypes,
		now:      time.Now,
	}
}

// teardown releases the draft's staged files and resets the session to the
// main menu. Every path that destroys a draft goes through here.
func (e *Engine) teardown(sess *Session) {
	if sess.Draft != nil {
		e.files.Remove(sess.Draft.StagedFiles()...)
	}
	sess.Draft = nil
	sess.State = StateIdle
}

// Abandon releases a session's staged files without producing a reply.
// Used when a mailbox expires or the service shuts down.
func (e *Engine) Abandon(sess *Session) {
	e.teardown(sess)
}

// HandleTurn processes one inbound action against the session and returns
// the replies to deliver. No error escapes a turn; failures come back as
// user-facing messages.
func (e *Engine) HandleTurn(ctx context.Context, sess *Session, in Input) (replies []Reply) {
	// No fault may cross the turn boundary; a panicking workflow is logged,
	// its session cleared, and the service loop stays alive. Either way an
	// attachment the turn did not consume is released before returning.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("flow: panic handling turn for user %d in %s: %v", sess.UserID, sess.State, r)
			e.teardown(sess)
			replies = e.withMenu(ctx, sess, "Something went wrong. Back to the menu.")
		}
		e.releaseOrphanUpload(sess, in)
	}()

	user, registered := e.dir.GetUser(ctx, sess.UserID)
	if !registered {
		e.teardown(sess)
		return []Reply{{Text: "You are not registered in the directory. Ask an administrator for access.", RemoveKeyboard: true}}
	}

	if in.Kind == KindCommand {
		return e.handleCommand(ctx, sess, user, in)
	}
	if in.Kind == KindText && isCancel(in.Text) && sess.State != StateIdle {
		e.teardown(sess)
		return e.withMenu(ctx, sess, "Cancelled. Nothing was saved.")
	}

	// A non-idle state needs a draft of its workflow. Losing it (restart,
	// out-of-order delivery) sends the user back to the menu.
	if want := workflowOf(sess.State); want != models.WorkflowNone {
		if sess.Draft == nil || sess.Draft.Workflow() != want {
			e.teardown(sess)
			return e.withMenu(ctx, sess, "Your previous session was lost. Starting over from the menu.")
		}
	}

	switch sess.State {
	case StateIdle:
		return e.handleMenu(ctx, sess, user, in)
	case StateSelectCounterparty, StateSelectPlace:
		return e.handleSelectTarget(ctx, sess, in)
	case StatePositionPhotos:
		return e.handlePositionPhotos(sess, in)
	case StatePositionQty:
		return e.handlePositionQty(sess, in)
	case StateOperationSummary:
		return e.handleOperationSummary(sess, in)
	case StateGeneralComment:
		return e.handleGeneralComment(ctx, sess, in)
	case StateNewProductPhotos:
		return e.handleNewProductPhotos(sess, in)
	case StateNewProductComment:
		return e.handleNewProductComment(sess, in)
	case StateNewProductType:
		return e.handleNewProductType(ctx, sess, in)
	case StateDocType:
		return e.handleDocType(sess, in)
	case StateDocPhotos:
		return e.handleDocPhotos(sess, in)
	case StateDocCounterparty:
		return e.handleDocCounterparty(sess, in)
	case StateDocComment:
		return e.handleDocComment(ctx, sess, in)
	case StateVehicleOpType:
		return e.handleVehicleOpType(ctx, sess, in)
	case StateVehicleID:
		return e.handleVehicleID(ctx, sess, in)
	case StateVehiclePhotos:
		return e.handleVehiclePhotos(sess, in)
	case StateVehicleComment:
		return e.handleVehicleComment(ctx, sess, in)
	case StateInvoiceComment:
		return e.handleInvoiceComment(ctx, sess, in)
	case StateHistoryFilter:
		return e.handleHistoryFilter(sess, in)
	case StateHistoryPeriod:
		return e.handleHistoryPeriod(ctx, sess, in)
	default:
		e.teardown(sess)
		return e.withMenu(ctx, sess, "Something went wrong. Back to the menu.")
	}
}

// releaseOrphanUpload removes a staged attachment that no handler attached
// to the draft. The transport stages every upload before the machine sees
// it; re-prompted or rejected turns must not leak the file until the reaper.
func (e *Engine) releaseOrphanUpload(sess *Session, in Input) {
	if (in.Kind != KindPhoto && in.Kind != KindDocument) || in.FilePath == "" {
		return
	}
	if sess.Draft != nil {
		for _, p := range sess.Draft.StagedFiles() {
			if p == in.FilePath {
				return
			}
		}
	}
	e.files.Remove(in.FilePath)
}

// withMenu appends the main-menu keyboard to a message.
func (e *Engine) withMenu(ctx context.Context, sess *Session, text string) []Reply {
	return []Reply{{Text: text, Keyboard: e.menuKeyboard(ctx, sess.UserID)}}
}

var menuLabels = map[string]string{
	"receipt":     btnReceipt,
	"issue":       btnIssue,
	"new_product": btnNewProduct,
	"documents":   btnDocuments,
	"vehicles":    btnVehicles,
	"invoices":    btnInvoices,
	"history":     btnHistory,
}

func (e *Engine) menuKeyboard(ctx context.Context, userID int64) [][]string {
	items := e.dir.MenuItems(ctx, userID)
	labels := make([]string, 0, len(items))
	for _, it := range items {
		if lbl, ok := menuLabels[it]; ok {
			labels = append(labels, lbl)
		}
	}
	rows := pairRows(labels)
	rows = append(rows, []string{btnHelp})
	return rows
}

// handleMenu reacts to a main-menu choice. Each workflow entry re-checks
// the capability flag before any state moves away from idle.
func (e *Engine) handleMenu(ctx context.Context, sess *Session, user models.User, in Input) []Reply {
	if in.Kind == KindDocument {
		return e.startInvoice(ctx, sess, user, in)
	}
	if in.Kind != KindText {
		return e.withMenu(ctx, sess, "Choose an action from the menu.")
	}

	switch {
	case isChoice(in.Text, btnReceipt):
		return e.startMovement(ctx, sess, user, models.OperationReceipt)
	case isChoice(in.Text, btnIssue):
		return e.startMovement(ctx, sess, user, models.OperationIssue)
	case isChoice(in.Text, btnNewProduct):
		return e.startNewProduct(ctx, sess, user)
	case isChoice(in.Text, btnDocuments):
		return e.startDocument(ctx, sess, user)
	case isChoice(in.Text, btnVehicles):
		return e.startVehicle(ctx, sess, user)
	case isChoice(in.Text, btnInvoices):
		return e.invoicePrompt(ctx, sess, user)
	case isChoice(in.Text, btnHistory):
		return e.startHistory(sess)
	case isChoice(in.Text, btnHelp):
		return e.helpReply(ctx, sess)
	default:
		return e.withMenu(ctx, sess, "Choose an action from the menu.")
	}
}

func (e *Engine) denied(ctx context.Context, sess *Session) []Reply {
	return e.withMenu(ctx, sess, "You do not have access to this action.")
}

// handleCommand covers the slash commands valid in every state. /start and
// /menu unconditionally tear down whatever was in progress.
func (e *Engine) handleCommand(ctx context.Context, sess *Session, user models.User, in Input) []Reply {
	cmd := strings.ToLower(strings.TrimSpace(in.Text))
	if i := strings.IndexByte(cmd, ' '); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/start", "/menu":
		e.teardown(sess)
		return e.withMenu(ctx, sess, fmt.Sprintf("Hello, %s! Choose an action.", e.dir.DisplayName(ctx, sess.UserID)))
	case "/cancel":
		if sess.State == StateIdle {
			return e.withMenu(ctx, sess, "Nothing to cancel.")
		}
		e.teardown(sess)
		return e.withMenu(ctx, sess, "Cancelled. Nothing was saved.")
	case "/status":
		return e.statusReply(ctx, sess, user)
	case "/help":
		return e.helpReply(ctx, sess)
	case "/reload":
		if !e.dir.IsAdmin(ctx, sess.UserID) {
			return e.denied(ctx, sess)
		}
		counts, err := e.dir.ForceRefresh(ctx)
		if err != nil {
			return e.withMenu(ctx, sess, "Directory refresh failed.")
		}
		return e.withMenu(ctx, sess, fmt.Sprintf(
			"Directory refreshed: %d users, %d counterparties, %d places.",
			counts.Users, counts.Counterparties, counts.Places))
	case "/cleanup":
		if !e.dir.IsAdmin(ctx, sess.UserID) {
			return e.denied(ctx, sess)
		}
		// The purge sweeps the whole staging dir, so anything the current
		// draft staged is gone with it.
		sess.Draft = nil
		sess.State = StateIdle
		n := e.files.PurgeAll()
		return e.withMenu(ctx, sess, fmt.Sprintf("Staging cleaned: %d file(s) removed.", n))
	default:
		return e.withMenu(ctx, sess, "Unknown command. Try /help.")
	}
}

func (e *Engine) statusReply(ctx context.Context, sess *Session, user models.User) []Reply {
	var caps []string
	if user.Warehouse {
		caps = append(caps, "warehouse")
	}
	if user.Documents {
		caps = append(caps, "documents")
	}
	if user.Vehicles {
		caps = append(caps, "vehicles")
	}
	if user.Invoices {
		caps = append(caps, "invoices")
	}
	if user.Admin {
		caps = append(caps, "admin")
	}
	access := "none"
	if len(caps) > 0 {
		access = strings.Join(caps, ", ")
	}
	text := fmt.Sprintf("%s (@%s)\nAccess: %s\nState: %s\nServer time: %s",
		user.DisplayName, user.Username, access, sess.State,
		e.now().Format("2006-01-02 15:04:05"))
	return []Reply{{Text: text}}
}

func (e *Engine) helpReply(ctx context.Context, sess *Session) []Reply {
	text := "Pick an action from the menu and follow the prompts.\n" +
		"Receipt and issue collect photos and a quantity per position.\n" +
		"Send " + btnCancel + " or /cancel at any step to discard the draft.\n" +
		"/menu returns to the main menu, /status shows your access."
	return e.withMenu(ctx, sess, text)
}

// comment normalization shared by every optional-comment step: truncation
// to the configured length, or "" for an explicit skip. Nothing else is
// ever stored.
func (e *Engine) normalizeComment(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) > e.limits.MaxCommentLength {
		text = string(r[:e.limits.MaxCommentLength])
	}
	return text
}

// parseQuantity strips non-digits before parsing and accepts only a final
// value in [1, max].
func parseQuantity(text string, max int) (int, bool) {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}

func cancelRow() []string { return []string{btnCancel} }
