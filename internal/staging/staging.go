package staging

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Area holds uploaded files on local disk between the moment a user sends
// them and the moment the operation is finalized or cancelled. Files here
// are disposable; anything that matters has been archived by then.
type Area struct {
	dir string
}

func NewArea(dir string) (*Area, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Area{dir: dir}, nil
}

func (a *Area) Dir() string { return a.dir }

// Stage writes the reader's contents to a uniquely named file and returns
// its absolute path. The original name contributes only its extension.
func (a *Area) Stage(prefix, originalName string, r io.Reader) (string, error) {
	ext := filepath.Ext(originalName)
	name := fmt.Sprintf("%s_%s_%s%s", prefix, time.Now().Format("20060102150405"), uuid.NewString()[:8], ext)
	dest := filepath.Join(a.dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	return dest, nil
}

// Remove deletes staged files, ignoring ones already gone.
func (a *Area) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("staging: remove %s failed: %v", p, err)
		}
	}
}

// PurgeAll deletes every file in the staging directory and reports how
// many were removed. Used at boot and by the admin cleanup command.
func (a *Area) PurgeAll() int {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		log.Printf("staging: read dir failed: %v", err)
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, e.Name())); err != nil {
			log.Printf("staging: purge %s failed: %v", e.Name(), err)
			continue
		}
		removed++
	}
	return removed
}

// purgeOlderThan removes files whose mtime is older than maxAge.
func (a *Area) purgeOlderThan(maxAge time.Duration) int {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		log.Printf("staging: read dir failed: %v", err)
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed
}

// StartCleaner runs a periodic sweep that drops staged files abandoned by
// expired sessions. Stops when ctx is done.
func (a *Area) StartCleaner(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.purgeOlderThan(maxAge); n > 0 {
					log.Printf("staging: cleaner removed %d stale file(s)", n)
				}
			}
		}
	}()
}
