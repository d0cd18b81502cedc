package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// APKGGenerator creates Anki package files (.apkg) holding one deck with a
// word note type and a sentence note type
type APKGGenerator struct {
	deckName        string
	deckID          int64
	wordModelID     int64
	sentenceModelID int64
	now             time.Time
	notes           []Note
	mediaFiles      map[string]int // maps media filename to media number
	mediaCounter    int
}

// NewAPKGGenerator creates a new APKG generator
func NewAPKGGenerator(deckName string) *APKGGenerator {
	return newAPKGGenerator(deckName, time.Now())
}

func newAPKGGenerator(deckName string, now time.Time) *APKGGenerator {
	// Generate IDs based on timestamp to ensure uniqueness
	ms := now.UnixMilli()
	return &APKGGenerator{
		deckName:        deckName,
		deckID:          ms,
		wordModelID:     ms + 1,
		sentenceModelID: ms + 2,
		now:             now,
		mediaFiles:      make(map[string]int),
	}
}

// AddNotes adds notes to the package
func (g *APKGGenerator) AddNotes(notes ...Note) {
	g.notes = append(g.notes, notes...)
}

// GenerateAPKG writes the .apkg file
func (g *APKGGenerator) GenerateAPKG(outputPath string) error {
	if len(g.notes) == 0 {
		return ErrEmptyDeck
	}

	tempDir, err := os.MkdirTemp("", "kotoba_anki_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Media first: the notes reference the numbered files
	if err := g.writeMediaFiles(tempDir); err != nil {
		return fmt.Errorf("failed to write media files: %w", err)
	}
	if err := g.createMediaMapping(tempDir); err != nil {
		return fmt.Errorf("failed to create media mapping: %w", err)
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := g.createDatabase(dbPath); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	if err := createZipPackage(tempDir, outputPath); err != nil {
		return fmt.Errorf("failed to create zip package: %w", err)
	}
	return nil
}

func (g *APKGGenerator) createDatabase(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := createTables(db); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := g.insertCollection(db); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	if err := g.insertNotesAndCards(db); err != nil {
		return fmt.Errorf("failed to insert notes and cards: %w", err)
	}
	return nil
}

// createTables creates the schema of an Anki 2.1 collection (version 11)
func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE col (
			id integer PRIMARY KEY,
			crt integer NOT NULL,
			mod integer NOT NULL,
			scm integer NOT NULL,
			ver integer NOT NULL,
			dty integer NOT NULL,
			usn integer NOT NULL,
			ls integer NOT NULL,
			conf text NOT NULL,
			models text NOT NULL,
			decks text NOT NULL,
			dconf text NOT NULL,
			tags text NOT NULL
		)`,
		`CREATE TABLE notes (
			id integer PRIMARY KEY,
			guid text NOT NULL,
			mid integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			tags text NOT NULL,
			flds text NOT NULL,
			sfld text NOT NULL,
			csum integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE cards (
			id integer PRIMARY KEY,
			nid integer NOT NULL,
			did integer NOT NULL,
			ord integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			type integer NOT NULL,
			queue integer NOT NULL,
			due integer NOT NULL,
			ivl integer NOT NULL,
			factor integer NOT NULL,
			reps integer NOT NULL,
			lapses integer NOT NULL,
			left integer NOT NULL,
			odue integer NOT NULL,
			odid integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE revlog (
			id integer PRIMARY KEY,
			cid integer NOT NULL,
			usn integer NOT NULL,
			ease integer NOT NULL,
			ivl integer NOT NULL,
			lastIvl integer NOT NULL,
			factor integer NOT NULL,
			time integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE TABLE graves (
			usn integer NOT NULL,
			oid integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE INDEX ix_notes_csum ON notes (csum)`,
		`CREATE INDEX ix_notes_usn ON notes (usn)`,
		`CREATE INDEX ix_cards_usn ON cards (usn)`,
		`CREATE INDEX ix_cards_nid ON cards (nid)`,
		`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
		`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
		`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

func deckConfig(id int64, name, desc string, mod int64) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"name":             name,
		"mod":              mod,
		"desc":             desc,
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

func (g *APKGGenerator) insertCollection(db *sql.DB) error {
	now := g.now.Unix()

	decks := map[string]interface{}{
		"1": deckConfig(1, "Default", "", now),
		strconv.FormatInt(g.deckID, 10): deckConfig(g.deckID, g.deckName,
			"Japanese study cards exported by kotoba", now),
	}
	models := map[string]interface{}{
		strconv.FormatInt(g.wordModelID, 10):     g.noteType(g.wordModelID, "kotoba Word", wordFields, wordFront, wordBack),
		strconv.FormatInt(g.sentenceModelID, 10): g.noteType(g.sentenceModelID, "kotoba Sentence", sentenceFields, sentenceFront, sentenceBack),
	}
	conf := map[string]interface{}{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      strconv.FormatInt(g.wordModelID, 10),
		"dayLearnFirst": false,
	}
	dconf := map[string]interface{}{
		"1": map[string]interface{}{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]interface{}{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]interface{}{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]interface{}{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      now,
			"autoplay": true,
			"replayq":  true,
		},
	}

	var encoded [4][]byte
	for i, v := range []interface{}{conf, models, decks, dconf} {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		encoded[i] = data
	}

	_, err := db.Exec(`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1,        // id
		now,      // crt
		now*1000, // mod
		now*1000, // scm
		11,       // ver (schema version)
		0,        // dty
		0,        // usn
		0,        // ls
		string(encoded[0]),
		string(encoded[1]),
		string(encoded[2]),
		string(encoded[3]),
		"{}", // tags
	)
	return err
}

var (
	wordFields     = []string{"Japanese", "Reading", "Meaning", "JLPT", "Audio"}
	sentenceFields = []string{"Japanese", "Translation", "Audio"}
)

const (
	wordFront = `<div class="japanese">{{Japanese}}</div>`
	wordBack  = `{{FrontSide}}

<hr id="answer">

<div class="reading">{{Reading}}</div>
<div class="meaning">{{Meaning}}</div>
{{#JLPT}}<div class="jlpt">{{JLPT}}</div>{{/JLPT}}
{{#Audio}}<div class="audio">{{Audio}}</div>{{/Audio}}`

	sentenceFront = `<div class="japanese">{{Japanese}}</div>
{{#Audio}}<div class="audio">{{Audio}}</div>{{/Audio}}`
	sentenceBack = `{{FrontSide}}

<hr id="answer">

<div class="translation">{{Translation}}</div>`

	cardCSS = `.card {
  font-family: "Hiragino Sans", "Noto Sans JP", sans-serif;
  font-size: 20px;
  text-align: center;
  color: #333;
  background-color: white;
}

.japanese {
  font-size: 36px;
  margin: 20px 0;
}

.reading {
  font-size: 24px;
  color: #2c3e50;
}

.meaning, .translation {
  font-size: 22px;
  margin: 15px 0;
}

.jlpt {
  font-size: 14px;
  color: #7f8c8d;
}

hr#answer {
  margin: 30px 0;
  border: 0;
  border-top: 1px solid #ecf0f1;
}`
)

func (g *APKGGenerator) noteType(id int64, name string, fields []string, front, back string) map[string]interface{} {
	flds := make([]map[string]interface{}, len(fields))
	for i, f := range fields {
		flds[i] = map[string]interface{}{
			"name":   f,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Arial",
			"size":   20,
			"media":  []string{},
		}
	}

	return map[string]interface{}{
		"id":    id,
		"name":  name,
		"type":  0,
		"mod":   g.now.Unix(),
		"usn":   -1,
		"sortf": 0,
		"did":   g.deckID,
		"req":   [][]interface{}{{0, "all", []int{0}}},
		"vers":  []int{},
		"tags":  []string{},
		"latexPre": `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\begin{document}`,
		"latexPost": `\end{document}`,
		"flds":      flds,
		"tmpls": []map[string]interface{}{{
			"name":  "Recognition",
			"ord":   0,
			"qfmt":  front,
			"afmt":  back,
			"did":   nil,
			"bqfmt": "",
			"bafmt": "",
		}},
		"css": cardCSS,
	}
}

func (g *APKGGenerator) insertNotesAndCards(db *sql.DB) error {
	mod := g.now.Unix()
	base := g.now.UnixMilli()

	for i, n := range g.notes {
		// Leave space for the card id after every note id
		noteID := base + int64(i*2)
		cardID := noteID + 1

		audio := ""
		if _, ok := g.mediaFiles[n.MediaName()]; ok {
			audio = fmt.Sprintf("[sound:%s]", n.MediaName())
		}

		modelID := g.wordModelID
		fields := []string{n.Japanese, n.Reading, n.Meaning, n.JLPT, audio}
		if n.Kind == SentenceNote {
			modelID = g.sentenceModelID
			fields = []string{n.Japanese, n.Translation, audio}
		}

		// Fields are joined with the unit separator (ASCII 31)
		guid := fmt.Sprintf("kotoba_%s_%s", n.Kind, n.Key())
		_, err := db.Exec(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			noteID,                       // id
			guid,                         // guid
			modelID,                      // mid
			mod,                          // mod
			-1,                           // usn
			"kotoba "+n.Kind.String(),    // tags
			strings.Join(fields, "\x1f"), // flds
			n.Japanese,                   // sfld (sort field)
			0,                            // csum
			0,                            // flags
			"",                           // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}

		_, err = db.Exec(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cardID,   // id
			noteID,   // nid
			g.deckID, // did
			0,        // ord
			mod,      // mod
			-1,       // usn
			0,        // type (0=new)
			0,        // queue (0=new)
			i+1,      // due (position for new cards)
			0,        // ivl
			0,        // factor
			0,        // reps
			0,        // lapses
			0,        // left
			0,        // odue
			0,        // odid
			0,        // flags
			"",       // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert card: %w", err)
		}
	}
	return nil
}

// writeMediaFiles stores attached audio under numeric names
func (g *APKGGenerator) writeMediaFiles(tempDir string) error {
	for _, n := range g.notes {
		if len(n.Audio) == 0 {
			continue
		}
		name := n.MediaName()
		if _, exists := g.mediaFiles[name]; exists {
			continue
		}
		target := filepath.Join(tempDir, strconv.Itoa(g.mediaCounter))
		if err := os.WriteFile(target, n.Audio, 0644); err != nil {
			return fmt.Errorf("failed to write audio for %s: %w", n.Japanese, err)
		}
		g.mediaFiles[name] = g.mediaCounter
		g.mediaCounter++
	}
	return nil
}

// createMediaMapping writes the media file (number -> filename)
func (g *APKGGenerator) createMediaMapping(tempDir string) error {
	mapping := make(map[string]string, len(g.mediaFiles))
	for filename, num := range g.mediaFiles {
		mapping[strconv.Itoa(num)] = filename
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(tempDir, "media"), data, 0644)
}

func createZipPackage(tempDir, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	archive := zip.NewWriter(zipFile)

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := addZipEntry(archive, tempDir, e.Name()); err != nil {
			return err
		}
	}
	return archive.Close()
}

func addZipEntry(archive *zip.Writer, dir, name string) error {
	writer, err := archive.Create(name)
	if err != nil {
		return err
	}
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}

// ExportDeck writes notes to an .apkg file named after the deck
func ExportDeck(outputPath, deckName string, notes []Note) error {
	g := NewAPKGGenerator(deckName)
	g.AddNotes(notes...)
	return g.GenerateAPKG(outputPath)
}
