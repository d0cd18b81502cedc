package batch

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Entry
	}{
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
		{
			name:    "only whitespace",
			content: "   \n\t\r\n   ",
			want:    nil,
		},
		{
			name:    "single text",
			content: "猫が好きです。\n犬も好きです。\n",
			want:    []Entry{{Text: "猫が好きです。\n犬も好きです。"}},
		},
		{
			name: "texts and urls",
			content: `猫が好きです。
---
https://www3.nhk.or.jp/news/easy/
---
# skipped comment
犬も好き。
`,
			want: []Entry{
				{Text: "猫が好きです。"},
				{URL: "https://www3.nhk.or.jp/news/easy/"},
				{Text: "犬も好き。"},
			},
		},
		{
			name:    "empty entries",
			content: "---\n\n---\n魚\n---\n",
			want:    []Entry{{Text: "魚"}},
		},
		{
			name:    "windows line endings",
			content: "猫\r\n---\r\n犬\r\n",
			want:    []Entry{{Text: "猫"}, {Text: "犬"}},
		},
		{
			name:    "url inside text stays text",
			content: "ここを見て https://example.com",
			want:    []Entry{{Text: "ここを見て https://example.com"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestReadBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.txt")
	if err := os.WriteFile(path, []byte("猫\n---\nhttp://example.com/a"), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadBatchFile(path)
	if err != nil {
		t.Fatalf("ReadBatchFile failed: %v", err)
	}
	if len(entries) != 2 || entries[0].IsURL() || !entries[1].IsURL() {
		t.Errorf("unexpected entries: %+v", entries)
	}

	if _, err := ReadBatchFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
