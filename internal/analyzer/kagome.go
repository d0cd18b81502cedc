package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"codeberg.org/snonux/kotoba/internal/model"
)

// KagomeAnalyzer segments text offline with the IPA dictionary. It knows
// readings and parts of speech but neither JLPT levels nor translations.
type KagomeAnalyzer struct {
	t *tokenizer.Tokenizer
}

// NewKagomeAnalyzer loads the dictionary
func NewKagomeAnalyzer() (*KagomeAnalyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}
	return &KagomeAnalyzer{t: t}, nil
}

// AnalyzeText splits text into sentences at 。！？ and newlines
func (k *KagomeAnalyzer) AnalyzeText(ctx context.Context, text string) (model.Analysis, error) {
	text = NormalizeInput(text)

	var a model.Analysis
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return model.Analysis{}, err
		}
		start := len(a.Sentences)
		for _, s := range SplitSentences(line) {
			words := k.words(s)
			if len(words) > 0 {
				a.Sentences = append(a.Sentences, model.Sentence{JapaneseWords: words})
			}
		}
		// one break per paragraph; blank lines add none
		if i < len(lines)-1 && len(a.Sentences) > start {
			last := &a.Sentences[len(a.Sentences)-1]
			last.JapaneseWords = append(last.JapaneseWords, model.NewLinebreak())
		}
	}
	return a, nil
}

func (k *KagomeAnalyzer) words(sentence string) []model.Word {
	var words []model.Word
	for _, tok := range k.t.Tokenize(sentence) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		features := tok.Features()
		pos, sub := feature(features, 0), feature(features, 1)

		reading := feature(features, 7)
		if reading == "" {
			reading = tok.Surface
		}

		words = append(words, model.Word{
			Surface:     tok.Surface,
			Reading:     ToHiragana(reading),
			POS:         mapPOS(pos, sub),
			JLPT:        "Unknown",
			IsEssential: isEssentialPOS(pos),
		})
	}
	return words
}

func feature(features []string, i int) string {
	if i < len(features) && features[i] != "*" {
		return features[i]
	}
	return ""
}

func mapPOS(pos, sub string) string {
	if pos == "記号" {
		if sub == "句点" || sub == "読点" {
			return model.POSPunctuation
		}
		return model.POSSymbol
	}
	if pos == "" {
		return "Unknown"
	}
	return pos
}

// isEssentialPOS keeps the sentence skeleton: content words, particles,
// auxiliaries and punctuation
func isEssentialPOS(pos string) bool {
	switch pos {
	case "副詞", "連体詞", "感動詞", "接頭詞", "フィラー":
		return false
	}
	return true
}

// SplitSentences cuts a line after every 。！？!? and keeps closing
// brackets with the sentence they end
func SplitSentences(line string) []string {
	var sentences []string
	var cur []rune
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		cur = append(cur, runes[i])
		if !strings.ContainsRune("。！？!?", runes[i]) {
			continue
		}
		for i+1 < len(runes) && strings.ContainsRune("」』）)", runes[i+1]) {
			i++
			cur = append(cur, runes[i])
		}
		sentences = append(sentences, string(cur))
		cur = nil
	}
	if strings.TrimSpace(string(cur)) != "" {
		sentences = append(sentences, string(cur))
	}
	return sentences
}

// ToHiragana converts katakana to hiragana. Other runes pass through.
func ToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - 0x60
		}
		return r
	}, s)
}

// AnalyzeImage is not supported offline
func (k *KagomeAnalyzer) AnalyzeImage(ctx context.Context, img Image) (model.Analysis, error) {
	return model.Analysis{}, fmt.Errorf("image analysis: %w", ErrUnsupported)
}

// AnalyzeImageWithTranslation is not supported offline
func (k *KagomeAnalyzer) AnalyzeImageWithTranslation(ctx context.Context, japanese, chinese Image) (model.Analysis, error) {
	return model.Analysis{}, fmt.Errorf("image analysis: %w", ErrUnsupported)
}

// Name returns the analyzer name
func (k *KagomeAnalyzer) Name() string {
	return "kagome"
}
