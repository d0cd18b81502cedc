// Package anki exports flashcard decks as Anki packages (.apkg) or CSV files
// for Anki's text importer.
package anki

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"codeberg.org/snonux/kotoba/internal"
	"codeberg.org/snonux/kotoba/internal/audio"
	"codeberg.org/snonux/kotoba/internal/model"
)

// ErrEmptyDeck is returned when exporting a deck without cards
var ErrEmptyDeck = errors.New("deck has no cards")

// NoteKind tells word notes from sentence notes
type NoteKind int

const (
	WordNote NoteKind = iota
	SentenceNote
)

// String returns the string representation of the kind
func (k NoteKind) String() string {
	if k == SentenceNote {
		return "sentence"
	}
	return "word"
}

// Note is one exported card
type Note struct {
	Kind NoteKind

	Japanese string
	Reading  string // words only
	Meaning  string // words only
	JLPT     string // words only

	Translation string // sentences only

	// Audio is the WAV data of the spoken text, if attached
	Audio []byte
}

// SpokenText returns the text read aloud for the note: the reading of a word
// or the whole sentence
func (n Note) SpokenText() string {
	if n.Kind == WordNote && n.Reading != "" {
		return n.Reading
	}
	return n.Japanese
}

// Key returns the identity key of the note inside a deck
func (n Note) Key() string {
	if n.Kind == WordNote {
		return model.WordKey(n.Japanese, n.Reading)
	}
	return n.Japanese
}

// MediaName returns the file name of the note's audio
func (n Note) MediaName() string {
	return internal.MediaFilename("kotoba", n.SpokenText(), "wav")
}

// NotesFromDeck converts the cards of a deck into notes, in deck order
func NotesFromDeck(d model.Deck) []Note {
	notes := make([]Note, 0, len(d.Cards))
	for _, c := range d.Cards {
		switch {
		case c.Word != nil:
			notes = append(notes, Note{
				Kind:     WordNote,
				Japanese: c.Word.Surface,
				Reading:  c.Word.Reading,
				Meaning:  c.Word.Definition,
				JLPT:     c.Word.JLPT,
			})
		case c.Sentence != nil:
			notes = append(notes, Note{
				Kind:        SentenceNote,
				Japanese:    c.Sentence.Japanese,
				Translation: c.Sentence.Chinese,
			})
		}
	}
	return notes
}

// AttachAudio synthesizes the spoken text of every note through the cache
// and stores the WAV data on the notes. Notes whose synthesis failed keep no
// audio. The returned error is the preload error, if any.
func AttachAudio(ctx context.Context, notes []Note, synth audio.Synthesizer, cache *audio.Cache, logger *log.Logger) (int, error) {
	texts := make([]string, 0, len(notes))
	for _, n := range notes {
		texts = append(texts, n.SpokenText())
	}

	_, err := audio.Preload(ctx, synth, cache, texts, audio.DefaultPreloadConcurrency, logger)

	attached := 0
	for i := range notes {
		buf, ok := cache.Get(notes[i].SpokenText())
		if !ok {
			continue
		}
		data, encErr := buf.EncodeWAV()
		if encErr != nil {
			if logger != nil {
				logger.Printf("skipping audio for %q: %v", notes[i].SpokenText(), encErr)
			}
			continue
		}
		notes[i].Audio = data
		attached++
	}
	return attached, err
}

// csvHeaders are the columns written by WriteCSV
var csvHeaders = []string{"Type", "Japanese", "Reading", "Meaning", "JLPT", "Translation", "Audio"}

// WriteCSV writes the notes in Anki's text import format. Audio fields
// reference MediaName; the files themselves are written by WriteMedia.
func WriteCSV(w io.Writer, notes []Note, includeHeaders bool) error {
	writer := csv.NewWriter(w)

	if includeHeaders {
		if err := writer.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for _, n := range notes {
		record := []string{
			n.Kind.String(),
			n.Japanese,
			n.Reading,
			n.Meaning,
			n.JLPT,
			n.Translation,
			audioField(n),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write card: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// GenerateCSV writes the notes to a CSV file at path
func GenerateCSV(path string, notes []Note) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := WriteCSV(file, notes, true); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteMedia writes the attached audio of the notes into dir
func WriteMedia(dir string, notes []Note) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create media directory: %w", err)
	}
	written := 0
	seen := make(map[string]bool)
	for _, n := range notes {
		name := n.MediaName()
		if len(n.Audio) == 0 || seen[name] {
			continue
		}
		seen[name] = true
		if err := os.WriteFile(filepath.Join(dir, name), n.Audio, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written++
	}
	return written, nil
}

// audioField formats the audio reference for Anki: [sound:filename.wav]
func audioField(n Note) string {
	if len(n.Audio) == 0 {
		return ""
	}
	return fmt.Sprintf("[sound:%s]", n.MediaName())
}

// Stats returns statistics about the notes
func Stats(notes []Note) (words, sentences, withAudio int) {
	for _, n := range notes {
		if n.Kind == WordNote {
			words++
		} else {
			sentences++
		}
		if len(n.Audio) > 0 {
			withAudio++
		}
	}
	return
}
