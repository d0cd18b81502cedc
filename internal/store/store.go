// Package store persists saved analyses, flashcard decks and dismissed words
// and merges backup documents into them. Every mutation writes the whole
// updated collection before it returns.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"codeberg.org/snonux/kotoba/internal/model"
)

var (
	// ErrNotFound is returned when an id matches nothing
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned by Load for a region whose contents cannot be
	// decoded
	ErrCorrupt = errors.New("stored data is corrupt")

	// ErrNoTranslation is returned when saving a sentence without translation
	ErrNoTranslation = errors.New("sentence has no translation")
)

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source used for new ids
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets a logger for load and import diagnostics
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithSnapshotter sets a function that receives the current backup document
// before an import overwrites it
func WithSnapshotter(f func(doc []byte) error) Option {
	return func(s *Store) { s.snapshot = f }
}

// Store is the durable state of the application
type Store struct {
	kv       KeyValueStore
	now      func() time.Time
	logger   *log.Logger
	snapshot func(doc []byte) error

	mu        sync.Mutex
	analyses  []model.SavedAnalysis
	decks     []model.Deck
	dismissed []string
}

// New creates a store on top of kv. Call Load before use.
func New(kv KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		now:       time.Now,
		analyses:  []model.SavedAnalysis{},
		decks:     []model.Deck{},
		dismissed: []string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Load reads all regions. A region that is missing loads empty. A corrupt
// region also loads empty and is reported in the returned error; the other
// regions still load.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	analyses := []model.SavedAnalysis{}
	if err := s.loadRegion(KeyAnalyses, &analyses); err != nil {
		errs = append(errs, err)
		analyses = []model.SavedAnalysis{}
	}

	decks := []model.Deck{}
	if err := s.loadRegion(KeyDecks, &decks); err != nil {
		errs = append(errs, err)
		decks = []model.Deck{}
	}

	dismissed := []string{}
	if err := s.loadRegion(KeyDismissed, &dismissed); err != nil {
		errs = append(errs, err)
		dismissed = []string{}
	}

	if analyses == nil {
		analyses = []model.SavedAnalysis{}
	}
	s.analyses = analyses
	s.decks = normalizeDecks(decks)
	s.dismissed = uniqueStrings(dismissed)

	s.logf("loaded %d analyses, %d decks, %d dismissed words", len(s.analyses), len(s.decks), len(s.dismissed))
	return errors.Join(errs...)
}

func (s *Store) loadRegion(key string, v interface{}) error {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logf("region %s is corrupt: %v", key, err)
		return fmt.Errorf("load %s: %w: %v", key, ErrCorrupt, err)
	}
	return nil
}

func (s *Store) persist(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(key, string(data)); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying key-value store
func (s *Store) Close() error {
	return s.kv.Close()
}

// Analyses returns the saved analyses in save order
func (s *Store) Analyses() []model.SavedAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SavedAnalysis, len(s.analyses))
	copy(out, s.analyses)
	return out
}

// Analysis returns the saved analysis with the given id
func (s *Store) Analysis(id int64) (model.SavedAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.analyses {
		if a.ID == id {
			return a, nil
		}
	}
	return model.SavedAnalysis{}, fmt.Errorf("analysis %d: %w", id, ErrNotFound)
}

// SaveAnalysis stores a new analysis of input
func (s *Store) SaveAnalysis(input string, analysis model.Analysis) (model.SavedAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := model.NewSavedAnalysis(input, analysis, s.now())
	for s.hasAnalysis(saved.ID) {
		saved.ID++
	}

	updated := append(append([]model.SavedAnalysis{}, s.analyses...), saved)
	if err := s.persist(KeyAnalyses, updated); err != nil {
		return model.SavedAnalysis{}, err
	}
	s.analyses = updated
	return saved, nil
}

func (s *Store) hasAnalysis(id int64) bool {
	for _, a := range s.analyses {
		if a.ID == id {
			return true
		}
	}
	return false
}

// DeleteAnalysis removes the analysis with the given id
func (s *Store) DeleteAnalysis(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasAnalysis(id) {
		return fmt.Errorf("analysis %d: %w", id, ErrNotFound)
	}

	updated := make([]model.SavedAnalysis, 0, len(s.analyses))
	for _, a := range s.analyses {
		if a.ID != id {
			updated = append(updated, a)
		}
	}
	if err := s.persist(KeyAnalyses, updated); err != nil {
		return err
	}
	s.analyses = updated
	return nil
}

// Decks returns all decks
func (s *Store) Decks() []model.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Deck, len(s.decks))
	for i, d := range s.decks {
		out[i] = d.Clone()
	}
	return out
}

// Deck returns the deck with the given id
func (s *Store) Deck(id int64) (model.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.deckIndex(id); i >= 0 {
		return s.decks[i].Clone(), nil
	}
	return model.Deck{}, fmt.Errorf("deck %d: %w", id, ErrNotFound)
}

// DeckByRole returns the reserved deck for role, if it exists
func (s *Store) DeckByRole(role model.DeckRole) (model.Deck, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.roleIndex(role); i >= 0 {
		return s.decks[i].Clone(), true
	}
	return model.Deck{}, false
}

func (s *Store) deckIndex(id int64) int {
	for i, d := range s.decks {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) roleIndex(role model.DeckRole) int {
	for i, d := range s.decks {
		if d.Role() == role {
			return i
		}
	}
	return -1
}

func (s *Store) newDeck(role model.DeckRole) model.Deck {
	d := model.NewDeck(role, s.now())
	for s.deckIndex(d.ID) >= 0 {
		d.ID++
	}
	return d
}

func (s *Store) copyDecks() []model.Deck {
	out := make([]model.Deck, len(s.decks))
	copy(out, s.decks)
	return out
}

func (s *Store) commitDecks(updated []model.Deck) error {
	if err := s.persist(KeyDecks, updated); err != nil {
		return err
	}
	s.decks = updated
	return nil
}

// SaveWord adds the word to the vocabulary deck, creating the deck on first
// use. Saving a word that is already there changes nothing.
func (s *Store) SaveWord(w model.Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.copyDecks()
	i := s.roleIndex(model.RoleVocabulary)
	if i < 0 {
		deck := s.newDeck(model.RoleVocabulary)
		deck.Cards = append(deck.Cards, model.WordCard(w))
		updated = append(updated, deck)
		return s.commitDecks(updated)
	}

	if updated[i].Contains(w.Key()) {
		return nil
	}
	deck := updated[i].Clone()
	deck.Cards = append(deck.Cards, model.WordCard(w))
	updated[i] = deck
	return s.commitDecks(updated)
}

// UnsaveWord removes the word from the vocabulary deck. When reviewDeckID
// names another deck the word is removed from that deck too.
func (s *Store) UnsaveWord(w model.Word, reviewDeckID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := w.Key()
	isWord := func(c model.Card) bool { return c.IsWord() && c.Key() == key }

	updated := s.copyDecks()
	if i := s.roleIndex(model.RoleVocabulary); i >= 0 {
		updated[i] = updated[i].Without(isWord)
	}
	if i := s.deckIndex(reviewDeckID); i >= 0 && updated[i].Role() != model.RoleVocabulary {
		updated[i] = updated[i].Without(isWord)
	}
	return s.commitDecks(updated)
}

// ToggleWord saves or unsaves the word depending on its current saved state
func (s *Store) ToggleWord(w model.Word, saved bool, reviewDeckID int64) error {
	if saved {
		return s.UnsaveWord(w, reviewDeckID)
	}
	return s.SaveWord(w)
}

// SaveSentence adds the sentence to the sentence deck, creating the deck on
// first use
func (s *Store) SaveSentence(sentence model.Sentence) error {
	if sentence.ChineseTranslation == "" {
		return ErrNoTranslation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card := model.NewSentenceCard(sentence, s.now())
	updated := s.copyDecks()
	i := s.roleIndex(model.RoleSentences)
	if i < 0 {
		deck := s.newDeck(model.RoleSentences)
		deck.Cards = append(deck.Cards, model.SentenceCardOf(card))
		updated = append(updated, deck)
		return s.commitDecks(updated)
	}

	if updated[i].Contains(card.Key()) {
		return nil
	}
	deck := updated[i].Clone()
	deck.Cards = append(deck.Cards, model.SentenceCardOf(card))
	updated[i] = deck
	return s.commitDecks(updated)
}

// UnsaveSentence removes the sentence from the sentence deck
func (s *Store) UnsaveSentence(sentence model.Sentence) error {
	if sentence.ChineseTranslation == "" {
		return ErrNoTranslation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sentence.JapaneseText()
	updated := s.copyDecks()
	if i := s.roleIndex(model.RoleSentences); i >= 0 {
		updated[i] = updated[i].Without(func(c model.Card) bool {
			return c.IsSentence() && c.Key() == key
		})
	}
	return s.commitDecks(updated)
}

// ToggleSentence saves or unsaves the sentence depending on its current
// saved state
func (s *Store) ToggleSentence(sentence model.Sentence, saved bool) error {
	if saved {
		return s.UnsaveSentence(sentence)
	}
	return s.SaveSentence(sentence)
}

// DeleteSentenceCard removes the sentence card with cardID from a deck
func (s *Store) DeleteSentenceCard(deckID int64, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.deckIndex(deckID)
	if i < 0 {
		return fmt.Errorf("deck %d: %w", deckID, ErrNotFound)
	}

	updated := s.copyDecks()
	updated[i] = updated[i].Without(func(c model.Card) bool {
		return c.IsSentence() && c.Sentence.ID == cardID
	})
	if len(updated[i].Cards) == len(s.decks[i].Cards) {
		return fmt.Errorf("card %s: %w", cardID, ErrNotFound)
	}
	return s.commitDecks(updated)
}

// DeleteDeck removes a deck
func (s *Store) DeleteDeck(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deckIndex(id) < 0 {
		return fmt.Errorf("deck %d: %w", id, ErrNotFound)
	}

	updated := make([]model.Deck, 0, len(s.decks))
	for _, d := range s.decks {
		if d.ID != id {
			updated = append(updated, d)
		}
	}
	return s.commitDecks(updated)
}

// SavedWordKeys returns the keys of the words in the vocabulary deck
func (s *Store) SavedWordKeys() map[string]bool {
	return s.roleKeys(model.RoleVocabulary, model.Card.IsWord)
}

// SavedSentenceKeys returns the keys of the cards in the sentence deck
func (s *Store) SavedSentenceKeys() map[string]bool {
	return s.roleKeys(model.RoleSentences, model.Card.IsSentence)
}

func (s *Store) roleKeys(role model.DeckRole, keep func(model.Card) bool) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]bool)
	if i := s.roleIndex(role); i >= 0 {
		for _, c := range s.decks[i].Cards {
			if keep(c) {
				keys[c.Key()] = true
			}
		}
	}
	return keys
}

// Dismiss hides a word key from flashcards and games
func (s *Store) Dismiss(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.dismissed {
		if k == key {
			return nil
		}
	}
	updated := append(append([]string{}, s.dismissed...), key)
	if err := s.persist(KeyDismissed, updated); err != nil {
		return err
	}
	s.dismissed = updated
	return nil
}

// Restore removes a word key from the dismissed set
func (s *Store) Restore(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]string, 0, len(s.dismissed))
	for _, k := range s.dismissed {
		if k != key {
			updated = append(updated, k)
		}
	}
	if len(updated) == len(s.dismissed) {
		return nil
	}
	if err := s.persist(KeyDismissed, updated); err != nil {
		return err
	}
	s.dismissed = updated
	return nil
}

// Dismissed returns the dismissed word keys in dismissal order
func (s *Store) Dismissed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.dismissed...)
}

// DismissedSet returns the dismissed word keys as a set
func (s *Store) DismissedSet() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool, len(s.dismissed))
	for _, k := range s.dismissed {
		set[k] = true
	}
	return set
}

func normalizeDecks(decks []model.Deck) []model.Deck {
	if decks == nil {
		return []model.Deck{}
	}
	for i := range decks {
		if decks[i].Cards == nil {
			decks[i].Cards = []model.Card{}
		}
	}
	return decks
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
