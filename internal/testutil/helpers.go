package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/store"
)

// Words used across tests
var (
	Neko   = model.Word{Surface: "猫", Reading: "ねこ", POS: "名詞", JLPT: "N5", Definition: "貓", IsEssential: true}
	Ga     = model.Word{Surface: "が", Reading: "が", POS: "助詞", JLPT: "N5", Definition: "主格助詞", IsEssential: true}
	Suki   = model.Word{Surface: "好き", Reading: "すき", POS: "形容動詞", JLPT: "N5", Definition: "喜歡", IsEssential: true}
	Totemo = model.Word{Surface: "とても", Reading: "とても", POS: "副詞", JLPT: "N4", Definition: "非常", IsEssential: false}
	Inu    = model.Word{Surface: "犬", Reading: "いぬ", POS: "名詞", JLPT: "N5", Definition: "狗", IsEssential: true}
	Kirei  = model.Word{Surface: "綺麗", Reading: "きれい", POS: "形容動詞", JLPT: "N4", Definition: "漂亮", IsEssential: true}
	Sakana = model.Word{Surface: "魚", Reading: "さかな", POS: "名詞", JLPT: "N5", Definition: "魚", IsEssential: true}
	Period = model.Word{Surface: "。", Reading: "。", POS: model.POSPunctuation, JLPT: "Unknown", Definition: "Period", IsEssential: true}
)

// SampleAnalysis returns two paragraphs with five kanji words
func SampleAnalysis() model.Analysis {
	return model.Analysis{Sentences: []model.Sentence{
		{
			JapaneseWords:      []model.Word{Neko, Ga, Totemo, Suki, Period, model.NewLinebreak()},
			ChineseTranslation: "非常喜歡貓。",
		},
		{
			JapaneseWords:      []model.Word{Inu, Ga, Kirei, Period},
			ChineseTranslation: "狗很漂亮。",
		},
		{
			JapaneseWords: []model.Word{Sakana, Period},
		},
	}}
}

// NewStore returns a loaded store on an in-memory key-value store with a
// clock that ticks one millisecond per call
func NewStore(t *testing.T, opts ...store.Option) (*store.Store, *store.MemoryKV) {
	t.Helper()

	ms := int64(1700000000000)
	clock := func() time.Time {
		ms++
		return time.UnixMilli(ms)
	}

	kv := store.NewMemoryKV()
	s := store.New(kv, append([]store.Option{store.WithClock(clock)}, opts...)...)
	if err := s.Load(); err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	return s, kv
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}
