package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "archive")
	a := New(dir, 0)
	a.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 45, 123456000, time.UTC) }

	path, err := a.Snapshot([]byte(`{"savedAnalyses":[]}`))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if filepath.Base(path) != "backup-20250301-123045.json" {
		t.Errorf("unexpected snapshot name: %s", filepath.Base(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if string(content) != `{"savedAnalyses":[]}` {
		t.Errorf("snapshot content = %q", content)
	}

	// Same second again gets a unique name
	second, err := a.Snapshot([]byte(`{}`))
	if err != nil {
		t.Fatalf("second Snapshot failed: %v", err)
	}
	if second == path || !strings.Contains(filepath.Base(second), ".123456") {
		t.Errorf("collision not resolved: %s", second)
	}
}

func TestSnapshotPrunes(t *testing.T) {
	a := New(t.TempDir(), 2)
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		current = current.Add(time.Minute)
		return current
	}

	var last string
	for i := 0; i < 4; i++ {
		path, err := a.Snapshot([]byte("{}"))
		if err != nil {
			t.Fatalf("Snapshot %d failed: %v", i, err)
		}
		last = path
	}

	paths, err := a.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(paths))
	}
	if paths[1] != last {
		t.Errorf("newest snapshot was pruned: %v", paths)
	}
}

func TestListMissingDir(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), "nope"), 0)
	paths, err := a.List()
	if err != nil || len(paths) != 0 {
		t.Errorf("List() = %v, %v", paths, err)
	}
}

func TestListIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "backup-dir.json"), 0755)

	a := New(dir, 0)
	if _, err := a.Snapshot([]byte("{}")); err != nil {
		t.Fatal(err)
	}
	paths, _ := a.List()
	if len(paths) != 1 {
		t.Errorf("List() = %v", paths)
	}
}
