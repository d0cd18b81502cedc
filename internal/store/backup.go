package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"codeberg.org/snonux/kotoba/internal/model"
)

// ErrInvalidBackup is returned for a backup document that cannot be imported
var ErrInvalidBackup = errors.New("invalid backup file")

// ImportResult reports what an import added to the store
type ImportResult struct {
	AnalysesAdded  int
	DecksAdded     int
	CardsAdded     int
	DismissedAdded int
}

// Export returns a copy of the whole state as a backup document
func (s *Store) Export() model.BackupData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportLocked()
}

func (s *Store) exportLocked() model.BackupData {
	decks := make([]model.Deck, len(s.decks))
	for i, d := range s.decks {
		decks[i] = d.Clone()
	}
	return model.BackupData{
		SavedAnalyses:  append([]model.SavedAnalysis{}, s.analyses...),
		SavedCardDecks: decks,
		DismissedWords: append([]string{}, s.dismissed...),
	}
}

// ExportJSON returns the backup document indented with two spaces
func (s *Store) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Export(), "", "  ")
}

// ParseBackup extracts the outermost {...} span of content and decodes it.
// All three collections must be present.
func ParseBackup(content []byte) (model.BackupData, error) {
	first := bytes.IndexByte(content, '{')
	last := bytes.LastIndexByte(content, '}')
	if first < 0 || last < first {
		return model.BackupData{}, fmt.Errorf("%w: could not find a JSON object", ErrInvalidBackup)
	}
	doc := content[first : last+1]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return model.BackupData{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	for _, key := range []string{KeyAnalyses, KeyDecks, KeyDismissed} {
		raw, ok := fields[key]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			return model.BackupData{}, fmt.Errorf("%w: missing required field %s", ErrInvalidBackup, key)
		}
	}

	var data model.BackupData
	if err := json.Unmarshal(doc, &data); err != nil {
		return model.BackupData{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return data, nil
}

// Merge combines current state with an imported document. Analyses are
// matched by id, decks by name and cards by identity key; on every match the
// imported item wins but keeps the position of the current one. Dismissed
// keys are unioned.
func Merge(current, imported model.BackupData) (model.BackupData, ImportResult) {
	var result ImportResult

	analyses := append([]model.SavedAnalysis{}, current.SavedAnalyses...)
	analysisAt := make(map[int64]int, len(analyses))
	for i, a := range analyses {
		analysisAt[a.ID] = i
	}
	for _, a := range imported.SavedAnalyses {
		if i, ok := analysisAt[a.ID]; ok {
			analyses[i] = a
			continue
		}
		analysisAt[a.ID] = len(analyses)
		analyses = append(analyses, a)
		result.AnalysesAdded++
	}

	dismissed := uniqueStrings(current.DismissedWords)
	seen := make(map[string]bool, len(dismissed))
	for _, k := range dismissed {
		seen[k] = true
	}
	for _, k := range imported.DismissedWords {
		if !seen[k] {
			seen[k] = true
			dismissed = append(dismissed, k)
			result.DismissedAdded++
		}
	}

	decks := make([]model.Deck, 0, len(current.SavedCardDecks))
	deckAt := make(map[string]int)
	for _, d := range current.SavedCardDecks {
		if i, ok := deckAt[d.Name]; ok {
			decks[i].Cards, _ = mergeCards(decks[i].Cards, d.Cards)
			continue
		}
		deckAt[d.Name] = len(decks)
		decks = append(decks, d.Clone())
	}
	for _, d := range imported.SavedCardDecks {
		if i, ok := deckAt[d.Name]; ok {
			var added int
			decks[i].Cards, added = mergeCards(decks[i].Cards, d.Cards)
			result.CardsAdded += added
			continue
		}
		deckAt[d.Name] = len(decks)
		decks = append(decks, d.Clone())
		result.DecksAdded++
		result.CardsAdded += len(d.Cards)
	}

	return model.BackupData{
		SavedAnalyses:  analyses,
		SavedCardDecks: normalizeDecks(decks),
		DismissedWords: dismissed,
	}, result
}

// mergeCards unions two card lists by key. Raw cards of the current deck
// stay in place; raw imported cards are skipped.
func mergeCards(current, imported []model.Card) ([]model.Card, int) {
	merged := make([]model.Card, 0, len(current)+len(imported))
	at := make(map[string]int)
	for _, c := range current {
		if c.IsRaw() {
			merged = append(merged, c)
			continue
		}
		if i, ok := at[c.Key()]; ok {
			merged[i] = c
			continue
		}
		at[c.Key()] = len(merged)
		merged = append(merged, c)
	}

	added := 0
	for _, c := range imported {
		if c.IsRaw() {
			continue
		}
		if i, ok := at[c.Key()]; ok {
			merged[i] = c
			continue
		}
		at[c.Key()] = len(merged)
		merged = append(merged, c)
		added++
	}
	return merged, added
}

// Import merges a backup document into the store. Nothing is written unless
// the document parses and every collection is present.
func (s *Store) Import(content []byte) (ImportResult, error) {
	imported, err := ParseBackup(content)
	if err != nil {
		return ImportResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.exportLocked()
	if s.snapshot != nil {
		doc, err := json.MarshalIndent(current, "", "  ")
		if err != nil {
			return ImportResult{}, fmt.Errorf("encode snapshot: %w", err)
		}
		if err := s.snapshot(doc); err != nil {
			return ImportResult{}, fmt.Errorf("snapshot before import: %w", err)
		}
	}

	merged, result := Merge(current, imported)

	values := make(map[string]string, 3)
	for key, v := range map[string]interface{}{
		KeyAnalyses:  merged.SavedAnalyses,
		KeyDecks:     merged.SavedCardDecks,
		KeyDismissed: merged.DismissedWords,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return ImportResult{}, fmt.Errorf("encode %s: %w", key, err)
		}
		values[key] = string(data)
	}
	if err := s.kv.SetAll(values); err != nil {
		return ImportResult{}, fmt.Errorf("persist import: %w", err)
	}

	s.analyses = merged.SavedAnalyses
	s.decks = merged.SavedCardDecks
	s.dismissed = merged.DismissedWords

	s.logf("imported %d analyses, %d decks, %d cards, %d dismissed words",
		result.AnalysesAdded, result.DecksAdded, result.CardsAdded, result.DismissedAdded)
	return result, nil
}
