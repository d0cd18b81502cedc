package anki

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/kotoba/internal/audio"
	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/testutil"
)

func sampleDeck() model.Deck {
	now := time.UnixMilli(1700000000000)
	sentence := model.NewSentenceCard(testutil.SampleAnalysis().Sentences[1], now)
	return model.Deck{
		ID:   1,
		Name: "Mixed",
		Cards: []model.Card{
			model.WordCard(testutil.Neko),
			model.SentenceCardOf(sentence),
			model.WordCard(testutil.Kirei),
		},
	}
}

func TestNotesFromDeck(t *testing.T) {
	notes := NotesFromDeck(sampleDeck())
	if len(notes) != 3 {
		t.Fatalf("Expected 3 notes, got %d", len(notes))
	}

	word := notes[0]
	if word.Kind != WordNote || word.Japanese != "猫" || word.Reading != "ねこ" || word.Meaning != "貓" || word.JLPT != "N5" {
		t.Errorf("unexpected word note: %+v", word)
	}
	if word.SpokenText() != "ねこ" {
		t.Errorf("word spoken text = %q", word.SpokenText())
	}

	sentence := notes[1]
	if sentence.Kind != SentenceNote || sentence.Japanese != "犬が綺麗。" || sentence.Translation != "狗很漂亮。" {
		t.Errorf("unexpected sentence note: %+v", sentence)
	}
	if sentence.SpokenText() != "犬が綺麗。" {
		t.Errorf("sentence spoken text = %q", sentence.SpokenText())
	}
}

func TestWriteCSV(t *testing.T) {
	notes := NotesFromDeck(sampleDeck())
	notes[0].Audio = []byte("RIFF")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, notes, true); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "Type,Japanese,Reading,Meaning,JLPT,Translation,Audio" {
		t.Errorf("unexpected headers: %v", records[0])
	}
	if records[1][0] != "word" || records[1][6] != "[sound:"+notes[0].MediaName()+"]" {
		t.Errorf("unexpected word record: %v", records[1])
	}
	if records[2][0] != "sentence" || records[2][5] != "狗很漂亮。" || records[2][6] != "" {
		t.Errorf("unexpected sentence record: %v", records[2])
	}

	buf.Reset()
	WriteCSV(&buf, notes, false)
	if strings.HasPrefix(buf.String(), "Type") {
		t.Error("headers written when disabled")
	}
}

func TestGenerateCSVAndMedia(t *testing.T) {
	tempDir := t.TempDir()
	notes := NotesFromDeck(sampleDeck())
	notes[0].Audio = []byte("one")
	notes[2].Audio = []byte("two")

	csvPath := filepath.Join(tempDir, "deck.csv")
	if err := GenerateCSV(csvPath, notes); err != nil {
		t.Fatalf("GenerateCSV failed: %v", err)
	}
	testutil.AssertFileExists(t, csvPath)

	mediaDir := filepath.Join(tempDir, "media")
	n, err := WriteMedia(mediaDir, notes)
	if err != nil {
		t.Fatalf("WriteMedia failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 media files, got %d", n)
	}
	data, err := os.ReadFile(filepath.Join(mediaDir, notes[2].MediaName()))
	if err != nil || string(data) != "two" {
		t.Errorf("media content = %q, %v", data, err)
	}
}

func TestAttachAudio(t *testing.T) {
	notes := NotesFromDeck(sampleDeck())
	synth := &testutil.MockSynthesizer{Errors: map[string]error{"きれい": errors.New("synthesis failed")}}
	cache := audio.NewCache()

	attached, err := AttachAudio(context.Background(), notes, synth, cache, nil)
	if err != nil {
		t.Fatalf("AttachAudio failed: %v", err)
	}
	if attached != 2 {
		t.Errorf("Expected 2 notes with audio, got %d", attached)
	}
	if len(notes[2].Audio) != 0 {
		t.Error("failed synthesis left audio on the note")
	}
	if _, err := audio.DecodeWAV(notes[0].Audio); err != nil {
		t.Errorf("attached audio is not WAV: %v", err)
	}

	words, sentences, withAudio := Stats(notes)
	if words != 2 || sentences != 1 || withAudio != 2 {
		t.Errorf("Stats() = %d, %d, %d", words, sentences, withAudio)
	}

	// Cached texts are not synthesized again
	calls := synth.CallCount()
	AttachAudio(context.Background(), notes[:2], synth, cache, nil)
	if synth.CallCount() != calls {
		t.Errorf("cached audio synthesized again")
	}
}
