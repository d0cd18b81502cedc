package processor

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"codeberg.org/snonux/kotoba/internal/model"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// printAnalysis writes every sentence followed by its word table
func printAnalysis(w io.Writer, a model.Analysis, simplified bool) {
	for i, s := range a.Sentences {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, strings.TrimRight(s.JapaneseText(), "\n"))
		if s.ChineseTranslation != "" {
			fmt.Fprintf(w, "    %s\n", s.ChineseTranslation)
		}

		tw := newTable(w)
		for _, word := range s.JapaneseWords {
			if word.IsLinebreak() || (simplified && !word.IsEssential) {
				continue
			}
			fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\t%s\n", word.Surface, word.Reading, word.POS, word.JLPT, word.Definition)
		}
		tw.Flush()
	}
}

func printStatistics(w io.Writer, st model.Statistics) {
	fmt.Fprintf(w, "\n=== Statistics ===\n")
	fmt.Fprintf(w, "Total words: %d\n", st.TotalWords)
	fmt.Fprintf(w, "Unique words: %d\n", st.UniqueWords)
	fmt.Fprintf(w, "Characters: %d\n", st.CharacterCount)
	d := st.JLPTDistribution
	fmt.Fprintf(w, "JLPT: N5 %d, N4 %d, N3 %d, N2 %d, N1 %d, unknown %d\n", d.N5, d.N4, d.N3, d.N2, d.N1, d.Unknown)
}

func printWords(w io.Writer, words []model.Word) {
	tw := newTable(w)
	for i, word := range words {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, word.Surface, word.Reading, word.JLPT, word.Definition)
	}
	tw.Flush()
}

func printDeck(w io.Writer, d model.Deck) {
	fmt.Fprintf(w, "%s (id %d): %d words, %d sentences\n", d.Name, d.ID, d.WordCount(), d.SentenceCount())
	tw := newTable(w)
	for _, c := range d.Cards {
		switch {
		case c.IsWord():
			fmt.Fprintf(tw, "  word\t%s\t%s\t%s\t%s\n", c.Word.Surface, c.Word.Reading, c.Word.JLPT, c.Word.Definition)
		case c.IsSentence():
			fmt.Fprintf(tw, "  sentence\t%s\t%s\t%s\n", c.Sentence.ID, c.Sentence.Japanese, c.Sentence.Chinese)
		}
	}
	tw.Flush()
}
