// Package analyzer turns Japanese text or images into sentences of words
// with readings, parts of speech, JLPT levels and translations.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"codeberg.org/snonux/kotoba/internal/model"
)

var (
	// ErrUnsupported is returned by analyzers that cannot read images
	ErrUnsupported = errors.New("operation not supported by this analyzer")

	// ErrEmptyResponse is returned when the service answers with nothing
	ErrEmptyResponse = errors.New("analyzer returned an empty response")
)

// Image is an uploaded picture of text
type Image struct {
	Data     []byte
	MIMEType string
}

// Analyzer segments and annotates Japanese
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (model.Analysis, error)
	AnalyzeImage(ctx context.Context, img Image) (model.Analysis, error)

	// AnalyzeImageWithTranslation aligns a Japanese image with a picture of
	// its Chinese translation
	AnalyzeImageWithTranslation(ctx context.Context, japanese, chinese Image) (model.Analysis, error)

	Name() string
}

// ParseResponse decodes an analysis from model output, tolerating a
// surrounding markdown code fence
func ParseResponse(text string) (model.Analysis, error) {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return model.Analysis{}, ErrEmptyResponse
	}

	var a model.Analysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return model.Analysis{}, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return Repair(a), nil
}

// StripCodeFence removes a ```json or ``` fence around text
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NormalizeInput applies NFC and unifies line endings
func NormalizeInput(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// Validate checks that every Linebreak token ends its sentence
func Validate(a model.Analysis) error {
	var errs []error
	for i, s := range a.Sentences {
		for j, w := range s.JapaneseWords {
			if w.IsLinebreak() && j != len(s.JapaneseWords)-1 {
				errs = append(errs, fmt.Errorf("sentence %d: linebreak at token %d of %d", i, j, len(s.JapaneseWords)))
			}
		}
	}
	return errors.Join(errs...)
}

// Repair moves stray Linebreak tokens to the end of their sentence so the
// result passes Validate
func Repair(a model.Analysis) model.Analysis {
	if Validate(a) == nil {
		return a
	}

	out := model.Analysis{Sentences: make([]model.Sentence, len(a.Sentences))}
	for i, s := range a.Sentences {
		var words []model.Word
		breaks := false
		for _, w := range s.JapaneseWords {
			if w.IsLinebreak() {
				breaks = true
				continue
			}
			words = append(words, w)
		}
		if breaks {
			words = append(words, model.NewLinebreak())
		}
		out.Sentences[i] = model.Sentence{JapaneseWords: words, ChineseTranslation: s.ChineseTranslation}
	}
	return out
}

// ReconstructText joins the surfaces back into text. Linebreak tokens
// become newlines.
func ReconstructText(a model.Analysis) string {
	var b strings.Builder
	for _, s := range a.Sentences {
		for _, w := range s.JapaneseWords {
			if w.IsLinebreak() {
				b.WriteString("\n")
				continue
			}
			b.WriteString(w.Surface)
		}
	}
	return b.String()
}

// PlainAnalysis shows unanalyzed text: every paragraph becomes one sentence
// of single-character tokens ending in a Linebreak
func PlainAnalysis(text string) model.Analysis {
	var a model.Analysis
	paragraphs := strings.Split(text, "\n")
	for i, p := range paragraphs {
		var words []model.Word
		for _, r := range p {
			ch := string(r)
			words = append(words, model.Word{Surface: ch, Reading: ch, POS: "Unknown", JLPT: "Unknown", IsEssential: true})
		}
		if i < len(paragraphs)-1 {
			words = append(words, model.NewLinebreak())
		}
		if len(words) > 0 {
			a.Sentences = append(a.Sentences, model.Sentence{JapaneseWords: words})
		}
	}
	return a
}
