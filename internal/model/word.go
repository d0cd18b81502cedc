package model

import (
	"encoding/json"
	"strings"
)

// Part-of-speech values with special meaning
const (
	POSPunctuation = "句読点"
	POSSymbol      = "記号"
	POSLinebreak   = "Linebreak"
)

// LinebreakSurface is the surface form of a paragraph break token
const LinebreakSurface = "\n"

// Word is one analyzed token of Japanese text
type Word struct {
	Surface     string `json:"surface"`
	Reading     string `json:"reading"`
	POS         string `json:"pos"`
	JLPT        string `json:"jlpt"`
	Definition  string `json:"definition"`
	Sentiment   string `json:"sentiment,omitempty"`
	IsEssential bool   `json:"isEssential"`
}

// WordKey builds the identity key of a word from its surface and reading
func WordKey(surface, reading string) string {
	return surface + "|" + reading
}

// Key returns the identity key of the word
func (w Word) Key() string {
	return WordKey(w.Surface, w.Reading)
}

// IsLinebreak reports whether the word is a paragraph break marker
func (w Word) IsLinebreak() bool {
	return w.POS == POSLinebreak
}

// NewLinebreak returns the token that ends a paragraph
func NewLinebreak() Word {
	return Word{
		Surface:     LinebreakSurface,
		Reading:     LinebreakSurface,
		POS:         POSLinebreak,
		JLPT:        "Unknown",
		IsEssential: true,
	}
}

// Sentence groups the words of one Japanese sentence with an optional
// Traditional Chinese translation
type Sentence struct {
	JapaneseWords      []Word `json:"japaneseWords"`
	ChineseTranslation string `json:"chineseTranslation,omitempty"`
}

// JapaneseText concatenates the surfaces of the sentence. It is the identity
// key of a saved sentence card.
func (s Sentence) JapaneseText() string {
	var b strings.Builder
	for _, w := range s.JapaneseWords {
		b.WriteString(w.Surface)
	}
	return b.String()
}

// EndsParagraph reports whether the sentence closes with a linebreak token
func (s Sentence) EndsParagraph() bool {
	n := len(s.JapaneseWords)
	return n > 0 && s.JapaneseWords[n-1].IsLinebreak()
}

// Analysis is the result of analyzing a piece of text
type Analysis struct {
	Sentences []Sentence `json:"sentences"`
}

// Words flattens all sentences into one word list
func (a Analysis) Words() []Word {
	var words []Word
	for _, s := range a.Sentences {
		words = append(words, s.JapaneseWords...)
	}
	return words
}

// UnmarshalJSON accepts the legacy flat shape {"words": [...]} and turns it
// into a single sentence.
func (a *Analysis) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sentences []Sentence `json:"sentences"`
		Words     []Word     `json:"words"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Sentences = raw.Sentences
	if a.Sentences == nil && raw.Words != nil {
		a.Sentences = []Sentence{{JapaneseWords: raw.Words}}
	}
	if a.Sentences == nil {
		a.Sentences = []Sentence{}
	}
	return nil
}
