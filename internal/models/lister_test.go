package models

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

type fakeSource struct {
	name string
	ids  []string
	err  error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) ModelIDs(ctx context.Context) ([]string, error) {
	return f.ids, f.err
}

func TestCategorize(t *testing.T) {
	c := Categorize([]string{
		"gemini-2.5-pro",
		"gemini-2.5-flash-preview-tts",
		"text-embedding-004",
		"gemini-2.5-flash",
		"gpt-4o-mini-tts",
		"dall-e-3",
		"gpt-4o",
		"imagen-3.0-generate-002",
	})

	if strings.Join(c.Text, ",") != "gemini-2.5-flash,gemini-2.5-pro,gpt-4o" {
		t.Errorf("Text = %v", c.Text)
	}
	if strings.Join(c.TTS, ",") != "gemini-2.5-flash-preview-tts,gpt-4o-mini-tts" {
		t.Errorf("TTS = %v", c.TTS)
	}
}

func TestListAvailableModels(t *testing.T) {
	lister := NewLister(
		&fakeSource{name: "Gemini", ids: []string{"gemini-2.5-flash", "gemini-2.5-flash-preview-tts"}},
		&fakeSource{name: "OpenAI", err: errors.New("unauthorized")},
	)

	var buf bytes.Buffer
	if err := lister.ListAvailableModels(context.Background(), &buf); err != nil {
		t.Fatalf("ListAvailableModels failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Available Gemini Models:", "  gemini-2.5-flash\n", "  gemini-2.5-flash-preview-tts\n", "OpenAI: unauthorized"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestListAvailableModels_AllFail(t *testing.T) {
	lister := NewLister(&fakeSource{name: "Gemini", err: errors.New("boom")})
	if err := lister.ListAvailableModels(context.Background(), &bytes.Buffer{}); err == nil {
		t.Error("Expected error when every source fails")
	}
}

func TestNewListerFromKeys_NoAPIKey(t *testing.T) {
	_, err := NewListerFromKeys(context.Background(), "", "")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
	if err := NewLister().ListAvailableModels(context.Background(), &bytes.Buffer{}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey for empty lister, got %v", err)
	}
}

func TestListAvailableModels_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: GEMINI_API_KEY not set")
	}

	lister, err := NewListerFromKeys(context.Background(), apiKey, "")
	if err != nil {
		t.Fatalf("NewListerFromKeys failed: %v", err)
	}
	var buf bytes.Buffer
	if err := lister.ListAvailableModels(context.Background(), &buf); err != nil {
		t.Errorf("ListAvailableModels failed: %v", err)
	}
}
