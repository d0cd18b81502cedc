package processor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/snonux/kotoba/internal"
	"codeberg.org/snonux/kotoba/internal/anki"
	"codeberg.org/snonux/kotoba/internal/cli"
	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/models"
	"codeberg.org/snonux/kotoba/internal/server"
)

func (p *Processor) listAnalyses() error {
	st, err := p.openStore()
	if err != nil {
		return err
	}
	analyses := st.Analyses()
	if len(analyses) == 0 {
		fmt.Fprintln(p.out, "No saved analyses")
		return nil
	}
	tw := newTable(p.out)
	for _, a := range analyses {
		fmt.Fprintf(tw, "%d\t%d sentences\t%s\n", a.ID, len(a.Analysis.Sentences), strings.ReplaceAll(a.Title, "\n", " "))
	}
	return tw.Flush()
}

func (p *Processor) loadAnalysis(arg string) (model.SavedAnalysis, error) {
	id, err := parseID("analysis", arg)
	if err != nil {
		return model.SavedAnalysis{}, err
	}
	st, err := p.openStore()
	if err != nil {
		return model.SavedAnalysis{}, err
	}
	return st.Analysis(id)
}

func (p *Processor) showAnalysis(arg string) error {
	a, err := p.loadAnalysis(arg)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "%s (id %d)\n", a.Title, a.ID)
	printAnalysis(p.out, a.Analysis, p.flags.Simplified)
	return nil
}

func (p *Processor) deleteAnalysis(arg string) error {
	id, err := parseID("analysis", arg)
	if err != nil {
		return err
	}
	st, err := p.openStore()
	if err != nil {
		return err
	}
	if err := st.DeleteAnalysis(id); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Deleted analysis %d\n", id)
	return nil
}

func (p *Processor) listDecks() error {
	st, err := p.openStore()
	if err != nil {
		return err
	}
	decks := st.Decks()
	if len(decks) == 0 {
		fmt.Fprintln(p.out, "No decks")
		return nil
	}
	tw := newTable(p.out)
	for _, d := range decks {
		fmt.Fprintf(tw, "%d\t%s\t%d words\t%d sentences\n", d.ID, d.Name, d.WordCount(), d.SentenceCount())
	}
	return tw.Flush()
}

func (p *Processor) loadDeck(arg string) (model.Deck, error) {
	id, err := parseID("deck", arg)
	if err != nil {
		return model.Deck{}, err
	}
	st, err := p.openStore()
	if err != nil {
		return model.Deck{}, err
	}
	return st.Deck(id)
}

func (p *Processor) showDeck(arg string) error {
	d, err := p.loadDeck(arg)
	if err != nil {
		return err
	}
	printDeck(p.out, d)
	return nil
}

func (p *Processor) deleteDeck(arg string) error {
	d, err := p.loadDeck(arg)
	if err != nil {
		return err
	}
	if err := p.store.DeleteDeck(d.ID); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Deleted deck %s\n", d.Name)
	return nil
}

// exportAnki writes a deck as .apkg, or as CSV plus a media directory
func (p *Processor) exportAnki(ctx context.Context, args []string) error {
	d, err := p.loadDeck(args[0])
	if err != nil {
		return err
	}
	notes := anki.NotesFromDeck(d)
	if len(notes) == 0 {
		return anki.ErrEmptyDeck
	}

	ext := ".apkg"
	if p.flags.AnkiCSV {
		ext = ".csv"
	}
	outputPath := internal.SanitizeFilename(d.Name) + ext
	if len(args) > 1 {
		outputPath = args[1]
	}

	if p.flags.WithAudio {
		synth, err := p.getSynthesizer(ctx)
		if err != nil {
			return err
		}
		if synth == nil {
			return fmt.Errorf("--audio needs a speech provider; remove --no-audio")
		}
		fmt.Fprintf(p.out, "Generating audio for %d notes...\n", len(notes))
		attached, err := anki.AttachAudio(ctx, notes, synth, p.cache, p.logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		p.logf("attached audio to %d of %d notes", attached, len(notes))
	}

	if p.flags.AnkiCSV {
		if err := anki.GenerateCSV(outputPath, notes); err != nil {
			return err
		}
		mediaDir := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_media"
		if n, err := anki.WriteMedia(mediaDir, notes); err != nil {
			return err
		} else if n > 0 {
			fmt.Fprintf(p.out, "  Media files written to %s; copy them into Anki's collection.media\n", mediaDir)
		}
	} else if err := anki.ExportDeck(outputPath, d.Name, notes); err != nil {
		return err
	}

	words, sentences, withAudio := anki.Stats(notes)
	fmt.Fprintf(p.out, "  Generated %d notes (%d words, %d sentences, %d with audio)\n",
		len(notes), words, sentences, withAudio)
	fmt.Fprintf(p.out, "Anki file created: %s\n", outputPath)
	return nil
}

// findWord looks up a word of an analysis by surface or by key
func findWord(a model.Analysis, query string) (model.Word, bool) {
	for _, w := range a.Words() {
		if w.IsLinebreak() {
			continue
		}
		if w.Surface == query || w.Key() == query {
			return w, true
		}
	}
	return model.Word{}, false
}

func (p *Processor) saveWord(analysisArg, query string) error {
	a, err := p.loadAnalysis(analysisArg)
	if err != nil {
		return err
	}
	w, ok := findWord(a.Analysis, query)
	if !ok {
		return fmt.Errorf("word %q does not occur in analysis %d", query, a.ID)
	}
	if err := p.store.SaveWord(w); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Saved %s (%s) to %s\n", w.Surface, w.Reading, model.RoleVocabulary.DeckName())
	return nil
}

func (p *Processor) unsaveWord(key string) error {
	st, err := p.openStore()
	if err != nil {
		return err
	}

	w := wordFromKey(key)
	if d, ok := st.DeckByRole(model.RoleVocabulary); ok {
		if i := d.IndexOf(key); i >= 0 && d.Cards[i].IsWord() {
			w = *d.Cards[i].Word
		}
	}
	if err := st.UnsaveWord(w, p.flags.ReviewDeck); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Removed %s\n", key)
	return nil
}

func wordFromKey(key string) model.Word {
	surface, reading, _ := strings.Cut(key, "|")
	return model.Word{Surface: surface, Reading: reading}
}

func (p *Processor) saveSentence(ctx context.Context, analysisArg, numberArg string) error {
	a, err := p.loadAnalysis(analysisArg)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(numberArg)
	if err != nil || n < 1 || n > len(a.Analysis.Sentences) {
		return fmt.Errorf("sentence number must be between 1 and %d", len(a.Analysis.Sentences))
	}
	sentence := a.Analysis.Sentences[n-1]
	if p.flags.Translate {
		if sentence, err = p.getTranslator().Fill(ctx, sentence); err != nil {
			return fmt.Errorf("failed to translate sentence: %w", err)
		}
	}
	if err := p.store.SaveSentence(sentence); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Saved %s to %s\n", strings.TrimSpace(sentence.JapaneseText()), model.RoleSentences.DeckName())
	return nil
}

func (p *Processor) deleteSentenceCard(deckArg, cardID string) error {
	id, err := parseID("deck", deckArg)
	if err != nil {
		return err
	}
	st, err := p.openStore()
	if err != nil {
		return err
	}
	if err := st.DeleteSentenceCard(id, cardID); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Deleted card %s\n", cardID)
	return nil
}

func (p *Processor) listDismissed() error {
	st, err := p.openStore()
	if err != nil {
		return err
	}
	for _, key := range st.Dismissed() {
		fmt.Fprintln(p.out, key)
	}
	return nil
}

func (p *Processor) dismiss(key string) error {
	st, err := p.openStore()
	if err != nil {
		return err
	}
	if err := st.Dismiss(key); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Dismissed %s\n", key)
	return nil
}

func (p *Processor) restore(key string) error {
	st, err := p.openStore()
	if err != nil {
		return err
	}
	if err := st.Restore(key); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Restored %s\n", key)
	return nil
}

// export writes the backup document to a file or to the output
func (p *Processor) export(args []string) error {
	st, err := p.openStore()
	if err != nil {
		return err
	}
	doc, err := st.ExportJSON()
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	if len(args) == 0 {
		_, err := fmt.Fprintln(p.out, string(doc))
		return err
	}
	if err := os.WriteFile(args[0], doc, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	fmt.Fprintf(p.out, "Backup written to %s\n", args[0])
	return nil
}

func (p *Processor) importBackup(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	st, err := p.openStore()
	if err != nil {
		return err
	}
	res, err := st.Import(content)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Imported %d analyses, %d decks, %d cards, %d dismissed words\n",
		res.AnalysesAdded, res.DecksAdded, res.CardsAdded, res.DismissedAdded)
	return nil
}

func (p *Processor) listModels(ctx context.Context) error {
	lister, err := models.NewListerFromKeys(ctx, cli.GetGeminiKey(), cli.GetOpenAIKey())
	if err != nil {
		return err
	}
	return lister.ListAvailableModels(ctx, p.out)
}

// serve runs the API server until ctx is canceled
func (p *Processor) serve(ctx context.Context) error {
	a, err := p.getAnalyzer(ctx)
	if err != nil {
		return err
	}
	st, err := p.openStore()
	if err != nil {
		return err
	}
	synth, err := p.getSynthesizer(ctx)
	if err != nil {
		// The API still serves everything but speech
		fmt.Fprintf(os.Stderr, "Warning: %v; /api/speech is disabled\n", err)
	}

	srv, err := server.New(server.Config{
		Analyzer:     a,
		Store:        st,
		Synthesizer:  synth,
		Cache:        p.cache,
		AllowOrigins: p.flags.AllowOrigins,
		RateLimit:    p.flags.RateLimit,
		Burst:        p.flags.RateBurst,
		Logger:       log.New(os.Stderr, "", log.LstdFlags),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Serving on %s\n", p.flags.ListenAddr)
	return srv.Run(ctx, p.flags.ListenAddr)
}
