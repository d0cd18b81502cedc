package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func extract(t *testing.T, apkg, dir string) map[string]bool {
	t.Helper()
	r, err := zip.OpenReader(apkg)
	if err != nil {
		t.Fatalf("Failed to open package: %v", err)
	}
	defer r.Close()

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return names
}

func TestGenerateAPKG(t *testing.T) {
	tempDir := t.TempDir()
	notes := NotesFromDeck(sampleDeck())
	notes[1].Audio = []byte("RIFF sentence")

	g := newAPKGGenerator("My Vocabulary", time.UnixMilli(1700000000000))
	g.AddNotes(notes...)

	out := filepath.Join(tempDir, "deck.apkg")
	if err := g.GenerateAPKG(out); err != nil {
		t.Fatalf("GenerateAPKG failed: %v", err)
	}

	extractDir := filepath.Join(tempDir, "x")
	os.Mkdir(extractDir, 0755)
	names := extract(t, out, extractDir)
	for _, want := range []string{"collection.anki2", "media", "0"} {
		if !names[want] {
			t.Errorf("package is missing %s", want)
		}
	}

	mediaJSON, _ := os.ReadFile(filepath.Join(extractDir, "media"))
	var mapping map[string]string
	if err := json.Unmarshal(mediaJSON, &mapping); err != nil {
		t.Fatalf("invalid media mapping: %v", err)
	}
	if mapping["0"] != notes[1].MediaName() {
		t.Errorf("media mapping = %v", mapping)
	}

	db, err := sql.Open("sqlite3", filepath.Join(extractDir, "collection.anki2"))
	if err != nil {
		t.Fatalf("Failed to open collection: %v", err)
	}
	defer db.Close()

	var noteCount, cardCount int
	db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&noteCount)
	db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&cardCount)
	if noteCount != 3 || cardCount != 3 {
		t.Errorf("notes = %d, cards = %d", noteCount, cardCount)
	}

	var flds string
	if err := db.QueryRow("SELECT flds FROM notes WHERE sfld = ?", "犬が綺麗。").Scan(&flds); err != nil {
		t.Fatalf("sentence note missing: %v", err)
	}
	fields := strings.Split(flds, "\x1f")
	if len(fields) != 3 || fields[1] != "狗很漂亮。" || !strings.HasPrefix(fields[2], "[sound:") {
		t.Errorf("sentence fields = %q", fields)
	}

	if err := db.QueryRow("SELECT flds FROM notes WHERE sfld = ?", "猫").Scan(&flds); err != nil {
		t.Fatalf("word note missing: %v", err)
	}
	if fields := strings.Split(flds, "\x1f"); len(fields) != 5 || fields[1] != "ねこ" || fields[4] != "" {
		t.Errorf("word fields = %q", fields)
	}

	var decks string
	db.QueryRow("SELECT decks FROM col").Scan(&decks)
	if !strings.Contains(decks, "My Vocabulary") {
		t.Errorf("deck name missing from collection: %s", decks)
	}
}

func TestGenerateAPKGEmpty(t *testing.T) {
	err := ExportDeck(filepath.Join(t.TempDir(), "empty.apkg"), "Empty", nil)
	if !errors.Is(err, ErrEmptyDeck) {
		t.Errorf("expected ErrEmptyDeck, got %v", err)
	}
}
