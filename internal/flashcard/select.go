// Package flashcard decides which analyzed words become study cards and
// computes text statistics. It also holds the flip state of a single card.
package flashcard

import (
	"strings"

	"codeberg.org/snonux/kotoba/internal/model"
)

// MinQuizWords is the number of kanji words a multiple-choice quiz needs
const MinQuizWords = 4

var advancedLevels = map[string]bool{
	"N3":      true,
	"N2":      true,
	"N1":      true,
	"UNKNOWN": true,
}

// IsPunctuationOrSymbol reports whether a part of speech marks punctuation,
// a symbol or a paragraph break
func IsPunctuationOrSymbol(pos string) bool {
	return pos == model.POSPunctuation || pos == model.POSSymbol || pos == model.POSLinebreak
}

// HasKanji reports whether s contains a CJK unified ideograph
func HasKanji(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FAF {
			return true
		}
	}
	return false
}

// IsKanaOnly reports whether s is non-empty and made of hiragana ぁ-ん or
// katakana ァ-ン only
func IsKanaOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'ぁ' && r <= 'ん') && !(r >= 'ァ' && r <= 'ン') {
			return false
		}
	}
	return true
}

// IsAdvancedKana reports whether a kana-only word is above N4 or unlevelled
func IsAdvancedKana(w model.Word) bool {
	return IsKanaOnly(w.Surface) && advancedLevels[strings.ToUpper(w.JLPT)]
}

// IsFlashcardWorthy applies the admission rule to a single word
func IsFlashcardWorthy(w model.Word) bool {
	if IsPunctuationOrSymbol(w.POS) {
		return false
	}
	return HasKanji(w.Surface) || IsAdvancedKana(w)
}

// Words flattens the sentences. With simplified set only essential words are
// kept.
func Words(sentences []model.Sentence, simplified bool) []model.Word {
	var words []model.Word
	for _, s := range sentences {
		for _, w := range s.JapaneseWords {
			if simplified && !w.IsEssential {
				continue
			}
			words = append(words, w)
		}
	}
	return words
}

// Select keeps the flashcard-worthy words, first occurrence per key
func Select(words []model.Word) []model.Word {
	seen := make(map[string]bool)
	var selected []model.Word
	for _, w := range words {
		if !IsFlashcardWorthy(w) {
			continue
		}
		key := w.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		selected = append(selected, w)
	}
	return selected
}

// FlashcardWords returns the study words of an analysis
func FlashcardWords(sentences []model.Sentence, simplified bool) []model.Word {
	return Select(Words(sentences, simplified))
}

// Visible drops the dismissed words
func Visible(words []model.Word, dismissed map[string]bool) []model.Word {
	var visible []model.Word
	for _, w := range words {
		if !dismissed[w.Key()] {
			visible = append(visible, w)
		}
	}
	return visible
}

// QuizWords keeps the words whose surface has kanji
func QuizWords(words []model.Word) []model.Word {
	var quiz []model.Word
	for _, w := range words {
		if HasKanji(w.Surface) {
			quiz = append(quiz, w)
		}
	}
	return quiz
}

// CanStartQuiz reports whether there are enough kanji words for a quiz
func CanStartQuiz(words []model.Word) bool {
	return len(QuizWords(words)) >= MinQuizWords
}

// Readings returns the distinct readings of the words, in order. These are
// the texts a listening session speaks.
func Readings(words []model.Word) []string {
	seen := make(map[string]bool)
	var readings []string
	for _, w := range words {
		if w.Reading == "" || seen[w.Reading] {
			continue
		}
		seen[w.Reading] = true
		readings = append(readings, w.Reading)
	}
	return readings
}
