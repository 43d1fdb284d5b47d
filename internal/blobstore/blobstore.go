package blobstore

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Archive stores uploaded media durably under a root directory, organized
// the way the downstream folder conventions expect, and returns one
// shareable link per stored item. A failed store yields "" for that item;
// callers treat an empty link as "link unavailable" and proceed.
type Archive struct {
	root    string
	baseURL string
	now     func() time.Time
}

func NewArchive(root, baseURL string) *Archive {
	return &Archive{root: root, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

var unsafeChars = regexp.MustCompile(`[/\\:*?"<>|]`)
var squeezeChars = regexp.MustCompile(`[\s_]+`)

// sanitizeName makes an arbitrary display string safe as a path component.
func sanitizeName(name string, maxLen int) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = squeezeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if maxLen > 0 && len(name) > maxLen {
		name = name[:maxLen]
	}
	if name == "" {
		return "unnamed"
	}
	return name
}

// store copies the staged file into relDir under the archive root and
// returns its link, or "" on any failure.
func (a *Archive) store(stagedPath, relDir, fileName string) string {
	src, err := os.Open(stagedPath)
	if err != nil {
		log.Printf("archive: open %s failed: %v", stagedPath, err)
		return ""
	}
	defer src.Close()

	destDir := filepath.Join(a.root, filepath.FromSlash(relDir))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		log.Printf("archive: create %s failed: %v", destDir, err)
		return ""
	}
	destPath := filepath.Join(destDir, fileName)
	dst, err := os.Create(destPath)
	if err != nil {
		log.Printf("archive: create %s failed: %v", destPath, err)
		return ""
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		log.Printf("archive: copy to %s failed: %v", destPath, err)
		os.Remove(destPath)
		return ""
	}
	return a.link(path.Join(relDir, fileName))
}

func (a *Archive) link(relPath string) string {
	if a.baseURL == "" {
		return "file://" + filepath.Join(a.root, filepath.FromSlash(relPath))
	}
	return a.baseURL + "/" + relPath
}

func ext(p string) string {
	if e := filepath.Ext(p); e != "" {
		return e
	}
	return ".jpg"
}

// SaveOperationPhotos archives the photos of one movement position under
// <date>/<opID>_<opType>_<counterparty>/, named so that operation id,
// position, and capture order survive in the file name.
func (a *Archive) SaveOperationPhotos(photos []string, operationID, opType, counterparty string, positionNumber int) []string {
	relDir := path.Join(
		a.now().Format("2006-01-02"),
		fmt.Sprintf("%s_%s_%s", operationID, sanitizeName(opType, 15), sanitizeName(counterparty, 20)),
	)
	links := make([]string, 0, len(photos))
	for i, p := range photos {
		name := fmt.Sprintf("%s_P%02d_F%02d%s", operationID, positionNumber, i+1, ext(p))
		links = append(links, a.store(p, relDir, name))
	}
	return links
}

// SaveNewProductPhotos archives new-product photos under a per-capture
// folder keyed by date, time, and employee.
func (a *Archive) SaveNewProductPhotos(photos []string, employee string) []string {
	now := a.now()
	today := now.Format("2006-01-02")
	relDir := path.Join(today,
		fmt.Sprintf("%s_%s_%s", today, now.Format("150405"), sanitizeName(employee, 15)))
	links := make([]string, 0, len(photos))
	for i, p := range photos {
		links = append(links, a.store(p, relDir, fmt.Sprintf("Photo_%02d%s", i+1, ext(p))))
	}
	return links
}

// SaveDocumentPhotos archives scanned document photos under
// Incoming|Outgoing/<yyyy-mm>/. Incoming is inferred from the type label.
func (a *Archive) SaveDocumentPhotos(photos []string, docType string) []string {
	subfolder := "Outgoing"
	if strings.Contains(strings.ToLower(docType), "incoming") || strings.Contains(docType, "📥") {
		subfolder = "Incoming"
	}
	now := a.now()
	relDir := path.Join("documents", subfolder, now.Format("2006-01"))
	ts := now.Format("20060102_150405")
	links := make([]string, 0, len(photos))
	for i, p := range photos {
		links = append(links, a.store(p, relDir, fmt.Sprintf("Doc_%s_%02d%s", ts, i+1, ext(p))))
	}
	return links
}

// SaveVehiclePhotos archives gate-movement photos under
// <date>/<hhmmss>_<IN|OUT>_<vehicleID>/.
func (a *Archive) SaveVehiclePhotos(photos []string, vehicleID string, inbound bool) []string {
	dir := "OUT"
	if inbound {
		dir = "IN"
	}
	now := a.now()
	relDir := path.Join("vehicles", now.Format("2006-01-02"),
		fmt.Sprintf("%s_%s_%s", now.Format("150405"), dir, sanitizeName(vehicleID, 20)))
	links := make([]string, 0, len(photos))
	for i, p := range photos {
		links = append(links, a.store(p, relDir, fmt.Sprintf("Photo_%02d%s", i+1, ext(p))))
	}
	return links
}

// SaveInvoice archives a supplier invoice under <yyyy-mm>/ keeping a
// sanitized version of its original name.
func (a *Archive) SaveInvoice(stagedPath, originalName string) string {
	relDir := path.Join("invoices", a.now().Format("2006-01"))
	return a.store(stagedPath, relDir, sanitizeName(originalName, 100))
}
