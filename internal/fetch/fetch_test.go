package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const page = `<!DOCTYPE html>
<html><head><title>猫の話</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>猫の話</h1>
<p><ruby>猫<rp>(</rp><rt>ねこ</rt><rp>)</rp></ruby>がとても好きです。毎日一緒に遊んでいます。朝ごはんの後は庭で日向ぼっこをします。</p>
<p>　<ruby>犬<rt>いぬ</rt></ruby>も綺麗です。散歩が大好きで、公園までよく歩きます。夕方になると家に帰ってきます。</p>
</article>
</body></html>`

func TestSanitizeRuby(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"rt", "<ruby>猫<rt>ねこ</rt></ruby>", "<ruby>猫</ruby>"},
		{"rp and rt", "<ruby>漢字<rp>(</rp><RT class=\"x\">かんじ</RT><rp>)</rp></ruby>", "<ruby>漢字</ruby>"},
		{"multiline", "<rt>\nね\nこ\n</rt>猫", "猫"},
		{"no ruby", "<p>猫</p>", "<p>猫</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(SanitizeRuby([]byte(tt.in))); got != tt.want {
				t.Errorf("SanitizeRuby() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	in := "  猫です。 \r\n\r\n\n　犬です。\n \n魚"
	want := "猫です。\n犬です。\n魚"
	if got := CleanText(in); got != want {
		t.Errorf("CleanText() = %q, want %q", got, want)
	}
}

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	article, err := New(srv.Client()).Fetch(context.Background(), srv.URL+"/neko")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotUA == "" {
		t.Error("request sent without a User-Agent")
	}
	if strings.Contains(article.Text, "ねこ") || strings.Contains(article.Text, "いぬ") {
		t.Errorf("furigana leaked into the text: %q", article.Text)
	}
	if !strings.Contains(article.Text, "猫がとても好きです。") {
		t.Errorf("text = %q", article.Text)
	}
	if !strings.Contains(article.Text, "犬も綺麗です。") {
		t.Errorf("text = %q", article.Text)
	}
	if article.URL != srv.URL+"/neko" {
		t.Errorf("URL = %q", article.URL)
	}
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/huge":
			w.Write([]byte(strings.Repeat("a", MaxBodySize+1)))
		}
	}))
	defer srv.Close()

	f := New(srv.Client())
	ctx := context.Background()

	if _, err := f.Fetch(ctx, srv.URL+"/missing"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
	if _, err := f.Fetch(ctx, srv.URL+"/huge"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, err := f.Fetch(ctx, "ftp://example.com/x"); err == nil {
		t.Error("expected error for ftp scheme")
	}
	if _, err := f.Fetch(ctx, "not a url"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
