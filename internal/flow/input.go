package flow

import "strings"

// Kind classifies one inbound user turn.
type Kind string

const (
	KindCommand  Kind = "command"
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindDocument Kind = "document"
)

// Input is one user action as delivered by the transport layer. Photo and
// document turns carry the staged local path of the attachment.
type Input struct {
	Kind     Kind
	Text     string // message text, command, or attachment caption
	FilePath string // staged path, set for photo/document kinds
	FileName string // original attachment name, set for document kind
}

// Reply is what the machine sends back for one turn. An empty Keyboard
// with RemoveKeyboard set clears any choice buttons on the client.
type Reply struct {
	Text           string     `json:"text"`
	Keyboard       [][]string `json:"keyboard,omitempty"`
	RemoveKeyboard bool       `json:"remove_keyboard,omitempty"`
}

// Button labels. The emoji prefix is decorative; matching strips it.
const (
	btnReceipt    = "📥 Receipt"
	btnIssue      = "📤 Issue"
	btnNewProduct = "🆕 New product"
	btnDocuments  = "📄 Documents"
	btnVehicles   = "🚚 Vehicles"
	btnInvoices   = "🧾 Invoices"
	btnHistory    = "📋 History"
	btnHelp       = "❓ Help"

	btnCancel      = "❌ Cancel"
	btnDone        = "✅ Done"
	btnSkip        = "⏭ Skip"
	btnAddPosition = "➕ Add position"
	btnFinish      = "🏁 Finish"
	btnOther       = "✏️ Other"
	btnAuto        = "🔢 Auto"

	btnVehicleIn  = "🟢 Entry"
	btnVehicleOut = "🔴 Exit"

	choicePrefix = "🔸 "
)

// decorTokens holds the emoji markers the bot itself puts in front of
// button labels. Only these are stripped during matching; an arbitrary
// non-ASCII first word is user content and stays untouched.
var decorTokens = map[string]bool{}

func init() {
	decorated := []string{
		btnReceipt, btnIssue, btnNewProduct, btnDocuments, btnVehicles,
		btnInvoices, btnHistory, btnHelp, btnCancel, btnDone, btnSkip,
		btnAddPosition, btnFinish, btnOther, btnAuto, btnVehicleIn,
		btnVehicleOut, btnHistAll, btnHistReceipts, btnHistIssues,
		btnHistDocuments, btnHistVehicles,
	}
	for _, b := range decorated {
		if i := strings.IndexByte(b, ' '); i > 0 {
			decorTokens[b[:i]] = true
		}
	}
}

// stripDecor drops the bot's own leading emoji marker and surrounding
// whitespace so button text and typed text compare equal.
func stripDecor(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, choicePrefix)
	if i := strings.IndexByte(s, ' '); i > 0 && decorTokens[s[:i]] {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// isChoice reports whether the user's text selects the given button,
// tolerating a missing emoji prefix and letter case.
func isChoice(text, button string) bool {
	return strings.EqualFold(stripDecor(text), stripDecor(button))
}

func isCancel(text string) bool {
	return isChoice(text, btnCancel) || strings.EqualFold(strings.TrimSpace(text), "/cancel")
}

func keyboard(rows ...[]string) [][]string { return rows }

// pairRows lays items out two per row, the way the main menu renders.
func pairRows(items []string) [][]string {
	var rows [][]string
	for i := 0; i < len(items); i += 2 {
		end := i + 2
		if end > len(items) {
			end = len(items)
		}
		row := make([]string, end-i)
		copy(row, items[i:end])
		rows = append(rows, row)
	}
	return rows
}
