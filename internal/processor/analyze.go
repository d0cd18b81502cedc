package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"codeberg.org/snonux/kotoba/internal/analyzer"
	"codeberg.org/snonux/kotoba/internal/batch"
	"codeberg.org/snonux/kotoba/internal/session"
)

// analyze runs one analysis, or one per batch entry
func (p *Processor) analyze(ctx context.Context, args []string) error {
	if p.flags.Batch != "" {
		return p.analyzeBatch(ctx)
	}

	s, err := p.newSession(ctx)
	if err != nil {
		return err
	}

	switch {
	case p.flags.Image != "":
		img, err := readImage(p.flags.Image)
		if err != nil {
			return err
		}
		s.SetImage(img)
		if p.flags.TranslationImage != "" {
			translation, err := readImage(p.flags.TranslationImage)
			if err != nil {
				return err
			}
			s.SetTranslationImage(translation)
		}
	default:
		text, err := p.inputText(ctx, args)
		if err != nil {
			return err
		}
		s.SetInput(text)
	}

	return p.runSession(ctx, s)
}

// analyzeBatch analyzes every entry of the batch file. A failing entry is
// reported and the others still run.
func (p *Processor) analyzeBatch(ctx context.Context) error {
	entries, err := batch.ReadBatchFile(p.flags.Batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("batch file %s holds no entries", p.flags.Batch)
	}

	processed, errorCount := 0, 0
	for i, entry := range entries {
		label := entry.Text
		if entry.IsURL() {
			label = entry.URL
		}
		fmt.Fprintf(p.out, "\nProcessing %d/%d: %s\n", i+1, len(entries), firstLine(label))

		text := entry.Text
		if entry.IsURL() {
			article, err := p.fetcher.Fetch(ctx, entry.URL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching '%s': %v\n", entry.URL, err)
				errorCount++
				continue
			}
			text = article.Text
		}

		s, err := p.newSession(ctx)
		if err != nil {
			return err
		}
		s.SetInput(text)
		if err := p.runSession(ctx, s); err != nil {
			fmt.Fprintf(os.Stderr, "Error analyzing entry %d: %v\n", i+1, err)
			errorCount++
			continue
		}
		processed++
	}

	fmt.Fprintf(p.out, "\n=== Batch Analysis Summary ===\n")
	fmt.Fprintf(p.out, "Total entries: %d\n", len(entries))
	fmt.Fprintf(p.out, "Analyzed: %d\n", processed)
	if errorCount > 0 {
		fmt.Fprintf(p.out, "Errors: %d\n", errorCount)
	}
	fmt.Fprintf(p.out, "==============================\n")
	return nil
}

func (p *Processor) newSession(ctx context.Context) (*session.Session, error) {
	a, err := p.getAnalyzer(ctx)
	if err != nil {
		return nil, err
	}
	st, err := p.openStore()
	if err != nil {
		return nil, err
	}
	return session.New(a, st, p.sched), nil
}

// runSession analyzes, prints and optionally saves the session result
func (p *Processor) runSession(ctx context.Context, s *session.Session) error {
	if err := s.Analyze(ctx); err != nil {
		return fmt.Errorf("%s: %w", session.UserMessage(err), err)
	}
	s.SetSimplified(p.flags.Simplified)
	result, _ := s.Result()

	if p.flags.JSON {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printAnalysis(p.out, result, p.flags.Simplified)
		if p.flags.Stats {
			if stats, ok := s.Statistics(); ok {
				printStatistics(p.out, stats)
			}
		}
	}

	if p.flags.Save {
		saved, err := s.Save()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved analysis %d: %s\n", saved.ID, saved.Title)
	}
	return nil
}

// inputText returns the text to analyze from the URL, the file, the
// argument or stdin, in that order
func (p *Processor) inputText(ctx context.Context, args []string) (string, error) {
	switch {
	case p.flags.URL != "":
		article, err := p.fetcher.Fetch(ctx, p.flags.URL)
		if err != nil {
			return "", err
		}
		if article.Title != "" {
			fmt.Fprintf(os.Stderr, "Fetched: %s\n", article.Title)
		}
		return article.Text, nil

	case p.flags.File != "":
		data, err := os.ReadFile(p.flags.File)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return analyzer.NormalizeInput(string(data)), nil

	case len(args) > 0:
		return analyzer.NormalizeInput(args[0]), nil
	}

	data, err := io.ReadAll(p.in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return analyzer.NormalizeInput(string(data)), nil
}

// readImage loads an image file and detects its MIME type
func readImage(path string) (*analyzer.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return &analyzer.Image{Data: data, MIMEType: mime}, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	if r := []rune(line); len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return line
}
