package flashcard

import (
	"strings"
	"unicode/utf8"

	"codeberg.org/snonux/kotoba/internal/model"
)

// ComputeStatistics counts the words of an analysis. Punctuation, symbols
// and linebreaks are not words.
func ComputeStatistics(sentences []model.Sentence) model.Statistics {
	var stats model.Statistics
	unique := make(map[string]bool)

	for _, s := range sentences {
		for _, w := range s.JapaneseWords {
			if IsPunctuationOrSymbol(w.POS) {
				continue
			}
			stats.TotalWords++
			stats.CharacterCount += utf8.RuneCountInString(w.Surface)

			key := w.Key()
			if unique[key] {
				continue
			}
			unique[key] = true

			switch strings.ToUpper(w.JLPT) {
			case "N5":
				stats.JLPTDistribution.N5++
			case "N4":
				stats.JLPTDistribution.N4++
			case "N3":
				stats.JLPTDistribution.N3++
			case "N2":
				stats.JLPTDistribution.N2++
			case "N1":
				stats.JLPTDistribution.N1++
			default:
				stats.JLPTDistribution.Unknown++
			}
		}
	}

	stats.UniqueWords = len(unique)
	return stats
}
