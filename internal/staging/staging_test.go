package staging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStageWritesUniqueFiles(t *testing.T) {
	area, err := NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("new area: %v", err)
	}

	p1, err := area.Stage("photo", "shot.jpg", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	p2, err := area.Stage("photo", "shot.jpg", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("same name staged twice produced one path: %s", p1)
	}
	if filepath.Ext(p1) != ".jpg" {
		t.Fatalf("extension lost: %s", p1)
	}
	if !strings.HasPrefix(filepath.Base(p1), "photo_") {
		t.Fatalf("prefix missing: %s", p1)
	}
	data, err := os.ReadFile(p2)
	if err != nil {
		t.Fatalf("read staged: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("staged content %q", data)
	}
}

func TestRemoveToleratesMissing(t *testing.T) {
	area, err := NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("new area: %v", err)
	}
	p, err := area.Stage("document", "inv.pdf", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	area.Remove(p, "", filepath.Join(area.Dir(), "never-existed.jpg"))
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("staged file still present after Remove")
	}
	// removing again must not blow up
	area.Remove(p)
}

func TestPurgeAllCounts(t *testing.T) {
	area, err := NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("new area: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := area.Stage("vehicle", "v.jpg", strings.NewReader("p")); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}
	if n := area.PurgeAll(); n != 4 {
		t.Fatalf("purged %d, want 4", n)
	}
	if n := area.PurgeAll(); n != 0 {
		t.Fatalf("second purge removed %d from an empty dir", n)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	area, err := NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("new area: %v", err)
	}
	old, err := area.Stage("photo", "old.jpg", strings.NewReader("o"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	fresh, err := area.Stage("photo", "fresh.jpg", strings.NewReader("f"))
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	stale := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if n := area.purgeOlderThan(time.Hour); n != 1 {
		t.Fatalf("purged %d stale files, want 1", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("stale file survived the sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh file removed: %v", err)
	}
}
