package processor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"codeberg.org/snonux/kotoba/internal/analyzer"
	"codeberg.org/snonux/kotoba/internal/archive"
	"codeberg.org/snonux/kotoba/internal/audio"
	"codeberg.org/snonux/kotoba/internal/cli"
	"codeberg.org/snonux/kotoba/internal/fetch"
	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/store"
	"codeberg.org/snonux/kotoba/internal/timer"
	"codeberg.org/snonux/kotoba/internal/translation"
)

// ErrNoSavedAnalysis is returned when a command needs a saved analysis and
// there is none
var ErrNoSavedAnalysis = errors.New("no saved analysis; run 'kotoba analyze --save' first")

// Processor runs command actions
type Processor struct {
	flags  *cli.Flags
	out    io.Writer
	in     *bufio.Reader
	logger *log.Logger
	sched  timer.Scheduler

	store    *store.Store
	analyzer analyzer.Analyzer
	synth    audio.Synthesizer
	cache    *audio.Cache
	sink     audio.Sink
	fetcher  *fetch.Fetcher

	translator sentenceTranslator
}

// sentenceTranslator fills in a missing sentence translation
type sentenceTranslator interface {
	Fill(ctx context.Context, s model.Sentence) (model.Sentence, error)
}

// NewProcessor creates a processor writing to stdout and reading answers
// from stdin
func NewProcessor(flags *cli.Flags) *Processor {
	p := &Processor{
		flags:   flags,
		out:     &lockedWriter{w: os.Stdout},
		in:      bufio.NewReader(os.Stdin),
		sched:   timer.Real{},
		cache:   audio.NewCache(),
		sink:    audio.NewExecSink(),
		fetcher: fetch.New(nil),
	}
	if flags.Verbose {
		p.logger = log.New(os.Stderr, "kotoba: ", log.LstdFlags)
	}
	return p
}

// lockedWriter serializes writes from the game timers and the prompt loop
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}

// Close releases the store
func (p *Processor) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// Run executes one action with its positional arguments
func (p *Processor) Run(ctx context.Context, action cli.Action, args []string) error {
	switch action {
	case cli.ActionAnalyze:
		return p.analyze(ctx, args)
	case cli.ActionAnalysesList:
		return p.listAnalyses()
	case cli.ActionAnalysesShow:
		return p.showAnalysis(args[0])
	case cli.ActionAnalysesDelete:
		return p.deleteAnalysis(args[0])
	case cli.ActionDecksList:
		return p.listDecks()
	case cli.ActionDecksShow:
		return p.showDeck(args[0])
	case cli.ActionDecksDelete:
		return p.deleteDeck(args[0])
	case cli.ActionDecksExportAnki:
		return p.exportAnki(ctx, args)
	case cli.ActionWordsSave:
		return p.saveWord(args[0], args[1])
	case cli.ActionWordsUnsave:
		return p.unsaveWord(args[0])
	case cli.ActionSentencesSave:
		return p.saveSentence(ctx, args[0], args[1])
	case cli.ActionSentencesDeleteCard:
		return p.deleteSentenceCard(args[0], args[1])
	case cli.ActionDismissedList:
		return p.listDismissed()
	case cli.ActionDismissedAdd:
		return p.dismiss(args[0])
	case cli.ActionDismissedRestore:
		return p.restore(args[0])
	case cli.ActionExport:
		return p.export(args)
	case cli.ActionImport:
		return p.importBackup(args[0])
	case cli.ActionFlashcards:
		return p.reviewFlashcards(ctx)
	case cli.ActionGame:
		return p.playListening(ctx)
	case cli.ActionQuiz:
		return p.playQuiz(ctx, args)
	case cli.ActionModels:
		return p.listModels(ctx)
	case cli.ActionServe:
		return p.serve(ctx)
	}
	return fmt.Errorf("unknown action %q", action)
}

func (p *Processor) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// openStore opens the database on first use
func (p *Processor) openStore() (*store.Store, error) {
	if p.store != nil {
		return p.store, nil
	}

	if dir := filepath.Dir(p.flags.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	kv, err := store.OpenSQLite(p.flags.DBPath)
	if err != nil {
		return nil, err
	}

	archiver := archive.New(p.flags.ArchiveDir, p.flags.ArchiveKeep)
	st := store.New(kv, store.WithLogger(p.logger), store.WithSnapshotter(archiver.SnapshotFunc()))
	if err := st.Load(); err != nil {
		// A corrupt region is reset to empty; the other regions are usable
		if !errors.Is(err, store.ErrCorrupt) {
			st.Close()
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	p.store = st
	return st, nil
}

// getAnalyzer builds the configured analyzer on first use. Without a Gemini
// key the offline analyzer is used.
func (p *Processor) getAnalyzer(ctx context.Context) (analyzer.Analyzer, error) {
	if p.analyzer != nil {
		return p.analyzer, nil
	}

	useKagome := p.flags.Offline || p.flags.Analyzer == "kagome"
	key := cli.GetGeminiKey()
	if !useKagome && key == "" {
		fmt.Fprintln(os.Stderr, "Note: no Gemini API key set, analyzing offline with kagome")
		useKagome = true
	}

	var (
		a   analyzer.Analyzer
		err error
	)
	switch {
	case useKagome:
		a, err = analyzer.NewKagomeAnalyzer()
	case p.flags.Analyzer == "gemini":
		a, err = analyzer.NewGeminiAnalyzer(ctx, analyzer.GeminiConfig{APIKey: key, Model: p.flags.GeminiModel})
	default:
		return nil, fmt.Errorf("unknown analyzer: %s", p.flags.Analyzer)
	}
	if err != nil {
		return nil, err
	}
	p.logf("using %s analyzer", a.Name())
	p.analyzer = a
	return a, nil
}

// audioConfig maps the flags onto the speech provider configuration
func (p *Processor) audioConfig() *audio.Config {
	cfg := audio.DefaultProviderConfig()
	cfg.Provider = p.flags.AudioProvider
	cfg.Fallback = p.flags.AudioFallback
	cfg.GeminiKey = cli.GetGeminiKey()
	cfg.GeminiVoice = p.flags.GeminiVoice
	cfg.OpenAIKey = cli.GetOpenAIKey()
	cfg.OpenAIModel = p.flags.OpenAIModel
	cfg.OpenAIVoice = p.flags.OpenAIVoice
	cfg.OpenAISpeed = p.flags.OpenAISpeed
	return cfg
}

// getSynthesizer builds the speech synthesizer on first use. It returns nil
// without error when audio is disabled.
func (p *Processor) getSynthesizer(ctx context.Context) (audio.Synthesizer, error) {
	if p.synth != nil || p.flags.NoAudio {
		return p.synth, nil
	}
	synth, err := audio.NewSynthesizer(ctx, p.audioConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create speech provider: %w", err)
	}
	p.logf("using %s speech provider", synth.Name())
	p.synth = synth
	return synth, nil
}

// getTranslator builds the sentence translator on first use
func (p *Processor) getTranslator() sentenceTranslator {
	if p.translator == nil {
		p.translator = translation.NewTranslator(cli.GetOpenAIKey())
	}
	return p.translator
}

// parseID parses a numeric id argument
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
