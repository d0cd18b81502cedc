package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Reserved deck names
const (
	VocabularyDeckName = "My Vocabulary"
	SentenceDeckName   = "My Sentences"
)

// ErrUnknownCard is returned when an empty card is encoded
var ErrUnknownCard = errors.New("card is neither a word nor a sentence card")

// DeckRole tells the reserved decks apart from user decks
type DeckRole int

const (
	RoleCustom DeckRole = iota
	RoleVocabulary
	RoleSentences
)

// String returns the string representation of the role
func (r DeckRole) String() string {
	switch r {
	case RoleVocabulary:
		return "vocabulary"
	case RoleSentences:
		return "sentences"
	default:
		return "custom"
	}
}

// DeckName returns the stored name of a reserved role
func (r DeckRole) DeckName() string {
	switch r {
	case RoleVocabulary:
		return VocabularyDeckName
	case RoleSentences:
		return SentenceDeckName
	default:
		return ""
	}
}

// RoleForName maps a stored deck name to its role
func RoleForName(name string) DeckRole {
	switch name {
	case VocabularyDeckName:
		return RoleVocabulary
	case SentenceDeckName:
		return RoleSentences
	default:
		return RoleCustom
	}
}

// SentenceCard is a saved sentence with its translation
type SentenceCard struct {
	ID       string `json:"id"`
	Japanese string `json:"japanese"`
	Chinese  string `json:"chinese"`
}

// Key returns the identity key of the sentence card
func (c SentenceCard) Key() string {
	return c.Japanese
}

// NewSentenceCard creates a card for the sentence, stamped with now
func NewSentenceCard(s Sentence, now time.Time) SentenceCard {
	text := s.JapaneseText()
	prefix := []rune(text)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return SentenceCard{
		ID:       fmt.Sprintf("%d-%s", now.UnixMilli(), string(prefix)),
		Japanese: text,
		Chinese:  s.ChineseTranslation,
	}
}

// Card holds exactly one of a word, a sentence card or, for shapes neither
// kind matches, the raw JSON it was read from. Raw cards have no key and are
// written back unchanged.
type Card struct {
	Word     *Word
	Sentence *SentenceCard
	Raw      json.RawMessage
}

// WordCard wraps a word as a deck card
func WordCard(w Word) Card {
	return Card{Word: &w}
}

// SentenceCardOf wraps a sentence card as a deck card
func SentenceCardOf(c SentenceCard) Card {
	return Card{Sentence: &c}
}

// IsWord reports whether the card holds a word
func (c Card) IsWord() bool {
	return c.Word != nil
}

// IsSentence reports whether the card holds a sentence card
func (c Card) IsSentence() bool {
	return c.Sentence != nil
}

// IsRaw reports whether the card kept an unrecognized shape
func (c Card) IsRaw() bool {
	return c.Word == nil && c.Sentence == nil && c.Raw != nil
}

// Key returns the identity key of whichever card kind is held. Raw cards
// return "".
func (c Card) Key() string {
	switch {
	case c.Word != nil:
		return c.Word.Key()
	case c.Sentence != nil:
		return c.Sentence.Key()
	default:
		return ""
	}
}

// MarshalJSON writes the held card in its own shape
func (c Card) MarshalJSON() ([]byte, error) {
	switch {
	case c.Word != nil:
		return json.Marshal(c.Word)
	case c.Sentence != nil:
		return json.Marshal(c.Sentence)
	case c.Raw != nil:
		return c.Raw, nil
	default:
		return nil, ErrUnknownCard
	}
}

// UnmarshalJSON detects the card kind from the fields present. Objects with
// surface and reading are words, objects with japanese and chinese are
// sentence cards. Anything else is kept as raw JSON.
func (c *Card) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		*c = Card{Raw: append(json.RawMessage(nil), data...)}
		return nil
	}

	_, hasSurface := fields["surface"]
	_, hasReading := fields["reading"]
	if hasSurface && hasReading {
		var w Word
		if err := json.Unmarshal(data, &w); err == nil {
			*c = Card{Word: &w}
			return nil
		}
	}

	_, hasJapanese := fields["japanese"]
	_, hasChinese := fields["chinese"]
	if hasJapanese && hasChinese {
		var s SentenceCard
		if err := json.Unmarshal(data, &s); err == nil {
			*c = Card{Sentence: &s}
			return nil
		}
	}

	*c = Card{Raw: append(json.RawMessage(nil), data...)}
	return nil
}

// Deck is a named collection of cards. Card keys are unique within a deck.
type Deck struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}

// NewDeck creates an empty deck for a reserved role
func NewDeck(role DeckRole, now time.Time) Deck {
	return Deck{
		ID:    now.UnixMilli(),
		Name:  role.DeckName(),
		Cards: []Card{},
	}
}

// Role returns the role of the deck, derived from its name
func (d Deck) Role() DeckRole {
	return RoleForName(d.Name)
}

// IndexOf returns the position of the card with the given key, or -1. Raw
// cards never match.
func (d Deck) IndexOf(key string) int {
	for i, c := range d.Cards {
		if !c.IsRaw() && c.Key() == key {
			return i
		}
	}
	return -1
}

// Contains reports whether a card with the key is in the deck
func (d Deck) Contains(key string) bool {
	return d.IndexOf(key) >= 0
}

// Clone returns a copy of the deck that shares no card slice with d
func (d Deck) Clone() Deck {
	cards := make([]Card, len(d.Cards))
	copy(cards, d.Cards)
	d.Cards = cards
	return d
}

// Without returns a copy of the deck minus the cards matching drop
func (d Deck) Without(drop func(Card) bool) Deck {
	cards := make([]Card, 0, len(d.Cards))
	for _, c := range d.Cards {
		if !drop(c) {
			cards = append(cards, c)
		}
	}
	d.Cards = cards
	return d
}

// WordCount returns the number of word cards
func (d Deck) WordCount() int {
	n := 0
	for _, c := range d.Cards {
		if c.IsWord() {
			n++
		}
	}
	return n
}

// SentenceCount returns the number of sentence cards
func (d Deck) SentenceCount() int {
	n := 0
	for _, c := range d.Cards {
		if c.IsSentence() {
			n++
		}
	}
	return n
}
