package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"codeberg.org/snonux/kotoba/internal/model"
)

const sampleJSON = `{"sentences":[{"japaneseWords":[
	{"surface":"猫","reading":"ねこ","pos":"Noun","jlpt":"N5","definition":"貓","isEssential":true},
	{"surface":"。","reading":"。","pos":"句読点","jlpt":"Unknown","definition":"Period","isEssential":true},
	{"surface":"\n","reading":"\n","pos":"Linebreak","jlpt":"Unknown","definition":"","isEssential":true}
],"chineseTranslation":"貓。"}]}`

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", ` {"a":1} `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	a, err := ParseResponse("```json\n" + sampleJSON + "\n```")
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if len(a.Sentences) != 1 || len(a.Sentences[0].JapaneseWords) != 3 {
		t.Fatalf("unexpected analysis: %+v", a)
	}
	if a.Sentences[0].ChineseTranslation != "貓。" {
		t.Errorf("translation = %q", a.Sentences[0].ChineseTranslation)
	}

	if _, err := ParseResponse(""); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
	if _, err := ParseResponse("not json"); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidateAndRepair(t *testing.T) {
	cat := model.Word{Surface: "猫", Reading: "ねこ"}
	bad := model.Analysis{Sentences: []model.Sentence{{
		JapaneseWords:      []model.Word{cat, model.NewLinebreak(), cat},
		ChineseTranslation: "x",
	}}}

	if err := Validate(bad); err == nil {
		t.Fatal("Validate accepted a linebreak in the middle")
	}

	fixed := Repair(bad)
	if err := Validate(fixed); err != nil {
		t.Fatalf("Repair left an invalid analysis: %v", err)
	}
	words := fixed.Sentences[0].JapaneseWords
	if len(words) != 3 || !words[2].IsLinebreak() {
		t.Errorf("repaired words = %+v", words)
	}
	if fixed.Sentences[0].ChineseTranslation != "x" {
		t.Error("repair dropped the translation")
	}
}

func TestReconstructText(t *testing.T) {
	a := PlainAnalysis("猫だ。\n犬")
	if got := ReconstructText(a); got != "猫だ。\n犬" {
		t.Errorf("ReconstructText() = %q", got)
	}
}

func TestPlainAnalysis(t *testing.T) {
	a := PlainAnalysis("あい\nう")
	if len(a.Sentences) != 2 {
		t.Fatalf("got %d sentences, want 2", len(a.Sentences))
	}
	first := a.Sentences[0].JapaneseWords
	if len(first) != 3 || first[0].Surface != "あ" || !first[2].IsLinebreak() {
		t.Errorf("first paragraph = %+v", first)
	}
	if last := a.Sentences[1].JapaneseWords; len(last) != 1 || last[0].IsLinebreak() {
		t.Errorf("last paragraph should not end in a linebreak: %+v", last)
	}
	if err := Validate(a); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("「行こう！」と言った。本当？まだ")
	want := []string{"「行こう！」", "と言った。", "本当？", "まだ"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("SplitSentences() = %q, want %q", got, want)
	}
}

func TestToHiragana(t *testing.T) {
	if got := ToHiragana("ネコとイヌ、ヴ"); got != "ねこといぬ、ゔ" {
		t.Errorf("ToHiragana() = %q", got)
	}
}

func TestNormalizeInput(t *testing.T) {
	// か followed by a combining dakuten composes to が
	if got := NormalizeInput("\u304b\u3099\r\nな"); got != "\u304c\nな" {
		t.Errorf("NormalizeInput() = %q", got)
	}
}

type fakeGenerator struct {
	response string
	err      error
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	model    string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.response}}},
		}},
	}, nil
}

func TestGeminiAnalyzeText(t *testing.T) {
	gen := &fakeGenerator{response: sampleJSON}
	g := newGeminiAnalyzer(gen, "")

	a, err := g.AnalyzeText(context.Background(), "猫。\n")
	if err != nil {
		t.Fatalf("AnalyzeText failed: %v", err)
	}
	if len(a.Sentences) != 1 {
		t.Errorf("got %d sentences", len(a.Sentences))
	}
	if gen.model != DefaultGeminiModel {
		t.Errorf("model = %q", gen.model)
	}
	if gen.config.ResponseMIMEType != "application/json" || gen.config.ResponseSchema == nil {
		t.Error("request is missing the JSON schema")
	}
	prompt := gen.contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Original Text:\n\"猫。\n\"") {
		t.Errorf("prompt does not carry the text: %q", prompt)
	}
}

func TestGeminiAnalyzeImage(t *testing.T) {
	gen := &fakeGenerator{response: sampleJSON}
	g := newGeminiAnalyzer(gen, "custom-model")

	_, err := g.AnalyzeImageWithTranslation(context.Background(),
		Image{Data: []byte{1}, MIMEType: "image/png"},
		Image{Data: []byte{2}, MIMEType: "image/jpeg"})
	if err != nil {
		t.Fatalf("AnalyzeImageWithTranslation failed: %v", err)
	}
	parts := gen.contents[0].Parts
	if len(parts) != 3 || parts[1].InlineData == nil || parts[2].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("unexpected parts: %+v", parts)
	}
	if gen.model != "custom-model" {
		t.Errorf("model = %q", gen.model)
	}

	if _, err := g.AnalyzeImage(context.Background(), Image{}); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestGeminiRequestError(t *testing.T) {
	apiErr := genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}
	g := newGeminiAnalyzer(&fakeGenerator{err: apiErr}, "")

	_, err := g.AnalyzeText(context.Background(), "猫")
	var got genai.APIError
	if !errors.As(err, &got) || got.Code != 429 {
		t.Errorf("expected wrapped API error, got %v", err)
	}
}

func TestNewGeminiAnalyzerNeedsKey(t *testing.T) {
	if _, err := NewGeminiAnalyzer(context.Background(), GeminiConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestKagomeAnalyzeText(t *testing.T) {
	k, err := NewKagomeAnalyzer()
	if err != nil {
		t.Fatalf("NewKagomeAnalyzer failed: %v", err)
	}

	a, err := k.AnalyzeText(context.Background(), "猫が好きです。\n\n犬も好き。")
	if err != nil {
		t.Fatalf("AnalyzeText failed: %v", err)
	}
	if len(a.Sentences) != 2 {
		t.Fatalf("got %d sentences, want 2", len(a.Sentences))
	}
	if err := Validate(a); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	first := a.Sentences[0].JapaneseWords
	if !first[len(first)-1].IsLinebreak() {
		t.Error("first paragraph does not end in a linebreak")
	}
	if first[0].Surface != "猫" || first[0].Reading != "ねこ" {
		t.Errorf("first word = %+v", first[0])
	}
	period := first[len(first)-2]
	if period.Surface != "。" || period.POS != model.POSPunctuation {
		t.Errorf("period = %+v", period)
	}
	second := a.Sentences[1].JapaneseWords
	if second[len(second)-1].IsLinebreak() {
		t.Error("last paragraph should not end in a linebreak")
	}

	if got := ReconstructText(a); got != "猫が好きです。\n犬も好き。" {
		t.Errorf("ReconstructText() = %q", got)
	}

	if _, err := k.AnalyzeImage(context.Background(), Image{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
