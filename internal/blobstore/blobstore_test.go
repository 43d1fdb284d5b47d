package blobstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedArchive(t *testing.T) (*Archive, string) {
	t.Helper()
	root := t.TempDir()
	a := NewArchive(root, "https://files.test")
	a.now = func() time.Time { return time.Date(2026, 3, 14, 10, 30, 45, 0, time.UTC) }
	return a, root
}

func stageFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
		t.Fatalf("write staged: %v", err)
	}
	return p
}

func TestSaveOperationPhotosLayout(t *testing.T) {
	a, root := fixedArchive(t)
	photos := []string{stageFile(t, "a.jpg"), stageFile(t, "b.jpg")}

	links := a.SaveOperationPhotos(photos, "OP-20260314-103045-ivanov", "receipt", "Acme / Ltd", 2)
	if len(links) != 2 {
		t.Fatalf("got %d links", len(links))
	}
	want := "https://files.test/2026-03-14/OP-20260314-103045-ivanov_receipt_Acme_Ltd/OP-20260314-103045-ivanov_P02_F01.jpg"
	if links[0] != want {
		t.Fatalf("link[0]\n got %s\nwant %s", links[0], want)
	}
	onDisk := filepath.Join(root, "2026-03-14",
		"OP-20260314-103045-ivanov_receipt_Acme_Ltd",
		"OP-20260314-103045-ivanov_P02_F02.jpg")
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("second photo not archived: %v", err)
	}
}

func TestSaveFailureYieldsEmptyLink(t *testing.T) {
	a, _ := fixedArchive(t)
	good := stageFile(t, "ok.jpg")
	links := a.SaveOperationPhotos([]string{"/nonexistent/gone.jpg", good}, "OP-X", "issue", "Acme", 1)
	if len(links) != 2 {
		t.Fatalf("got %d links", len(links))
	}
	if links[0] != "" {
		t.Fatalf("missing source produced link %q", links[0])
	}
	if links[1] == "" {
		t.Fatalf("good photo got no link")
	}
}

func TestSaveDocumentPhotosDirection(t *testing.T) {
	a, root := fixedArchive(t)
	a.SaveDocumentPhotos([]string{stageFile(t, "d.jpg")}, "📥 Incoming invoice")
	matches, _ := filepath.Glob(filepath.Join(root, "documents", "Incoming", "2026-03", "*"))
	if len(matches) != 1 {
		t.Fatalf("incoming document not filed under Incoming/<month>: %v", matches)
	}

	a.SaveDocumentPhotos([]string{stageFile(t, "w.jpg")}, "Waybill")
	matches, _ = filepath.Glob(filepath.Join(root, "documents", "Outgoing", "2026-03", "*"))
	if len(matches) != 1 {
		t.Fatalf("other document types must default to Outgoing: %v", matches)
	}
}

func TestSaveInvoiceKeepsSanitizedName(t *testing.T) {
	a, root := fixedArchive(t)
	link := a.SaveInvoice(stageFile(t, "inv.xlsx"), `march / "final".xlsx`)
	if link == "" {
		t.Fatalf("invoice not archived")
	}
	if strings.ContainsAny(link, `"\\`) {
		t.Fatalf("unsafe characters survived: %q", link)
	}
	matches, _ := filepath.Glob(filepath.Join(root, "invoices", "2026-03", "*.xlsx"))
	if len(matches) != 1 {
		t.Fatalf("invoice file missing: %v", matches)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{`Acme / Ltd`, "Acme_Ltd"},
		{"  spaced   out  ", "spaced_out"},
		{"", "unnamed"},
		{"///", "unnamed"},
	}
	for _, tc := range cases {
		if got := sanitizeName(tc.in, 50); got != tc.want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
