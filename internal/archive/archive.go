// Package archive keeps timestamped copies of the backup document so that an
// import can be rolled back by hand.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	filePrefix = "backup-"
	fileSuffix = ".json"
)

// Archiver writes snapshots into a directory
type Archiver struct {
	dir  string
	keep int
	now  func() time.Time
}

// New creates an archiver for dir. When keep is positive only the newest
// keep snapshots are retained.
func New(dir string, keep int) *Archiver {
	return &Archiver{dir: dir, keep: keep, now: time.Now}
}

// Dir returns the archive directory
func (a *Archiver) Dir() string {
	return a.dir
}

// Snapshot writes doc to a new timestamped file and returns its path
func (a *Archiver) Snapshot(doc []byte) (string, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	now := a.now()
	path := filepath.Join(a.dir, filePrefix+now.Format("20060102-150405")+fileSuffix)

	// Add microseconds to make it unique
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(a.dir, filePrefix+now.Format("20060102-150405.000000")+fileSuffix)
	}

	if err := os.WriteFile(path, doc, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	if a.keep > 0 {
		if err := a.Prune(a.keep); err != nil {
			return path, err
		}
	}
	return path, nil
}

// SnapshotFunc adapts Snapshot to the store's snapshot hook
func (a *Archiver) SnapshotFunc() func(doc []byte) error {
	return func(doc []byte) error {
		path, err := a.Snapshot(doc)
		if err != nil {
			return err
		}
		fmt.Printf("Current data archived to: %s\n", path)
		return nil
	}
}

// List returns the snapshot paths, oldest first
func (a *Archiver) List() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		paths = append(paths, filepath.Join(a.dir, name))
	}
	// the timestamp format sorts chronologically
	sort.Strings(paths)
	return paths, nil
}

// Prune removes all but the newest keep snapshots
func (a *Archiver) Prune(keep int) error {
	paths, err := a.List()
	if err != nil {
		return err
	}
	if len(paths) <= keep {
		return nil
	}
	for _, p := range paths[:len(paths)-keep] {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("failed to remove old snapshot: %w", err)
		}
	}
	return nil
}
