package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ErrNoAPIKey is returned when neither provider has a key
var ErrNoAPIKey = errors.New("no API key found. Set GEMINI_API_KEY or OPENAI_API_KEY, or configure them in .kotoba.yaml")

// Source returns the model ids of one provider
type Source interface {
	Name() string
	ModelIDs(ctx context.Context) ([]string, error)
}

type geminiSource struct {
	client *genai.Client
}

// NewGeminiSource creates a source listing Gemini models
func NewGeminiSource(ctx context.Context, apiKey string) (Source, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiSource{client: client}, nil
}

func (g *geminiSource) Name() string { return "Gemini" }

func (g *geminiSource) ModelIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
	}
	return ids, nil
}

type openAISource struct {
	client *openai.Client
}

// NewOpenAISource creates a source listing OpenAI models
func NewOpenAISource(apiKey string) Source {
	return &openAISource{client: openai.NewClient(apiKey)}
}

func (o *openAISource) Name() string { return "OpenAI" }

func (o *openAISource) ModelIDs(ctx context.Context) ([]string, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Catalog groups model ids by use
type Catalog struct {
	Text []string
	TTS  []string
}

// Categorize sorts ids into text and speech models. Models that serve
// neither (embeddings, images) are dropped.
func Categorize(ids []string) Catalog {
	var c Catalog
	for _, id := range ids {
		lower := strings.ToLower(id)
		switch {
		case strings.Contains(lower, "tts") || strings.Contains(lower, "audio"):
			c.TTS = append(c.TTS, id)
		case strings.Contains(lower, "embed") || strings.Contains(lower, "image") || strings.Contains(lower, "dall-e"):
		case strings.Contains(lower, "gemini") || strings.Contains(lower, "gpt"):
			c.Text = append(c.Text, id)
		}
	}
	sort.Strings(c.Text)
	sort.Strings(c.TTS)
	return c
}

// Lister prints the models of every configured provider
type Lister struct {
	sources []Source
}

// NewLister creates a lister for the given sources
func NewLister(sources ...Source) *Lister {
	return &Lister{sources: sources}
}

// NewListerFromKeys creates a lister for every provider with a key
func NewListerFromKeys(ctx context.Context, geminiKey, openAIKey string) (*Lister, error) {
	var sources []Source
	if geminiKey != "" {
		s, err := NewGeminiSource(ctx, geminiKey)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	if openAIKey != "" {
		sources = append(sources, NewOpenAISource(openAIKey))
	}
	if len(sources) == 0 {
		return nil, ErrNoAPIKey
	}
	return NewLister(sources...), nil
}

// ListAvailableModels writes the categorized models of every source to w.
// A failing source is reported and the others are still listed.
func (l *Lister) ListAvailableModels(ctx context.Context, w io.Writer) error {
	if len(l.sources) == 0 {
		return ErrNoAPIKey
	}

	var errs []error
	for i, src := range l.sources {
		if i > 0 {
			fmt.Fprintln(w)
		}
		ids, err := src.ModelIDs(ctx)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", src.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		c := Categorize(ids)
		fmt.Fprintf(w, "Available %s Models:\n", src.Name())
		printGroup(w, "Text Models (for analysis)", c.Text)
		printGroup(w, "Text-to-Speech (TTS) Models", c.TTS)
	}

	if len(errs) == len(l.sources) {
		return errors.Join(errs...)
	}
	return nil
}

func printGroup(w io.Writer, title string, ids []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(ids) == 0 {
		fmt.Fprintln(w, "  None found")
		return
	}
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
}
