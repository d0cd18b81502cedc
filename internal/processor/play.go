package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"codeberg.org/snonux/kotoba/internal/audio"
	"codeberg.org/snonux/kotoba/internal/flashcard"
	"codeberg.org/snonux/kotoba/internal/game"
	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/session"
)

// playable is the part of a listening game or quiz the terminal loop drives
type playable interface {
	State() game.State
	Feedback() game.Feedback
	Answer(w model.Word) bool
	Replay() error
	Restart() error
	Summary() game.Summary
}

// round describes the current question: its prompt, the choices and the key
// of the right answer
type round struct {
	prompt  string
	choices []model.Word
	answer  string
}

// currentAnalysis returns the analysis named by --analysis, or the most
// recently saved one
func (p *Processor) currentAnalysis() (model.SavedAnalysis, error) {
	st, err := p.openStore()
	if err != nil {
		return model.SavedAnalysis{}, err
	}
	if p.flags.AnalysisID != 0 {
		return st.Analysis(p.flags.AnalysisID)
	}
	analyses := st.Analyses()
	if len(analyses) == 0 {
		return model.SavedAnalysis{}, ErrNoSavedAnalysis
	}
	return analyses[len(analyses)-1], nil
}

// speaker returns what plays the questions and the step that preloads their
// audio. Without a speech provider the readings are printed instead.
func (p *Processor) speaker(ctx context.Context) (game.Speaker, game.PrepareFunc, error) {
	synth, err := p.getSynthesizer(ctx)
	if err != nil {
		return nil, nil, err
	}
	if synth == nil {
		return &textSpeaker{p: p}, nil, nil
	}

	prepare := func(ctx context.Context, readings []string) error {
		fmt.Fprintf(p.out, "Loading audio for %d words...\n", len(readings))
		res, err := audio.Preload(ctx, synth, p.cache, readings, audio.DefaultPreloadConcurrency, p.logger)
		if len(res.Failed) > 0 && err == nil {
			p.logf("%d of %d words have no audio", len(res.Failed), res.Requested)
		}
		return err
	}
	return audio.NewPlayer(synth, p.cache, p.sink), prepare, nil
}

// textSpeaker prints the spoken reading when audio is disabled
type textSpeaker struct {
	p *Processor
}

func (s *textSpeaker) Play(ctx context.Context, id, text string) error {
	fmt.Fprintf(s.p.out, "  ♪ %s\n", text)
	return nil
}

func (s *textSpeaker) Stop() {}

func notifier(ch chan struct{}) func() {
	return func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func wait(ctx context.Context, changes <-chan struct{}) error {
	select {
	case <-changes:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) gameOptions(prepare game.PrepareFunc, changes chan struct{}) game.Options {
	return game.Options{
		Scheduler: p.sched,
		Prepare:   prepare,
		Logger:    p.logger,
		OnChange:  notifier(changes),
	}
}

// playListening runs the listening game over a saved analysis
func (p *Processor) playListening(ctx context.Context) error {
	saved, err := p.currentAnalysis()
	if err != nil {
		return err
	}
	pool := game.Pool(saved.Analysis.Sentences, p.flags.Simplified, p.store.DismissedSet())
	if len(pool) == 0 {
		fmt.Fprintln(p.out, "No words to practice in this analysis")
		return nil
	}

	speaker, prepare, err := p.speaker(ctx)
	if err != nil {
		return err
	}
	changes := make(chan struct{}, 1)
	g := game.NewListening(speaker, p.gameOptions(prepare, changes))
	defer g.Exit()

	fmt.Fprintf(p.out, "Listening game: %s\n", saved.Title)
	fmt.Fprintln(p.out, "Pick the word you hear.")
	if err := g.Start(ctx, pool); err != nil {
		return err
	}

	view := func() (round, bool) {
		w, i, ok := g.Current()
		if !ok {
			return round{}, false
		}
		prompt := fmt.Sprintf("Question %d/%d", i+1, len(g.Questions()))
		return round{prompt: prompt, choices: pool, answer: w.Key()}, true
	}
	return p.play(ctx, g, view, changes)
}

// playQuiz runs the quiz over a deck or a saved analysis
func (p *Processor) playQuiz(ctx context.Context, args []string) error {
	var (
		words []model.Word
		title string
	)
	if len(args) > 0 {
		d, err := p.loadDeck(args[0])
		if err != nil {
			return err
		}
		for _, c := range d.Cards {
			if c.IsWord() {
				words = append(words, *c.Word)
			}
		}
		title = d.Name
	} else {
		saved, err := p.currentAnalysis()
		if err != nil {
			return err
		}
		words = flashcard.Visible(flashcard.FlashcardWords(saved.Analysis.Sentences, p.flags.Simplified), p.store.DismissedSet())
		title = saved.Title
	}
	if !flashcard.CanStartQuiz(words) {
		return game.ErrNotEnoughWords
	}

	speaker, prepare, err := p.speaker(ctx)
	if err != nil {
		return err
	}
	changes := make(chan struct{}, 1)
	q := game.NewQuiz(speaker, p.gameOptions(prepare, changes))
	defer q.Exit()

	fmt.Fprintf(p.out, "Quiz: %s\n", title)
	if err := q.Start(ctx, words); err != nil {
		return err
	}

	view := func() (round, bool) {
		question, i, ok := q.Current()
		if !ok {
			return round{}, false
		}
		prompt := fmt.Sprintf("Question %d/%d: which word did you hear?", i+1, q.Len())
		return round{prompt: prompt, choices: question.Options, answer: question.Answer.Key()}, true
	}
	return p.play(ctx, q, view, changes)
}

// play drives a game from the terminal until it is finished and not
// restarted, or the player quits
func (p *Processor) play(ctx context.Context, g playable, view func() (round, bool), changes <-chan struct{}) error {
	for {
		switch g.State() {
		case game.Idle:
			return nil
		case game.Loading:
			if err := wait(ctx, changes); err != nil {
				return err
			}
			continue
		case game.Finished:
			s := g.Summary()
			fmt.Fprintf(p.out, "\nScore: %d/%d (%d%%)\n", s.Score, s.Total, s.Percentage)
			if !p.confirm("Play again? [y/N] ") {
				return nil
			}
			if err := g.Restart(); err != nil {
				return err
			}
			continue
		}

		if g.Feedback().Active() {
			if err := wait(ctx, changes); err != nil {
				return err
			}
			continue
		}

		r, ok := view()
		if !ok {
			return nil
		}
		fmt.Fprintf(p.out, "\n%s\n", r.prompt)
		for i, w := range r.choices {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, w.Surface)
		}
		fmt.Fprint(p.out, "Answer (number, r = replay, q = quit): ")

		line, err := p.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		switch line {
		case "q":
			return nil
		case "r":
			if err := g.Replay(); err != nil {
				p.logf("replay: %v", err)
			}
			continue
		}

		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(r.choices) {
			fmt.Fprintf(p.out, "Enter a number between 1 and %d\n", len(r.choices))
			continue
		}
		picked := r.choices[n-1]
		if !g.Answer(picked) {
			continue
		}
		if picked.Key() == r.answer {
			fmt.Fprintln(p.out, "✓ Correct")
		} else {
			fmt.Fprintln(p.out, "✗ Not quite, listen again")
		}
	}
}

// reviewFlashcards pages through the study words of a saved analysis
func (p *Processor) reviewFlashcards(ctx context.Context) error {
	saved, err := p.currentAnalysis()
	if err != nil {
		return err
	}
	speaker, _, err := p.speaker(ctx)
	if err != nil {
		return err
	}
	speak := func(reading string) {
		if err := speaker.Play(ctx, "card-"+reading, reading); err != nil {
			p.logf("failed to play %s: %v", reading, err)
		}
	}

	s := session.New(p.analyzer, p.store, p.sched)
	s.Load(saved)
	s.SetSimplified(p.flags.Simplified)

	words := s.FlashcardWords()
	fmt.Fprintf(p.out, "Flashcards: %s (%d cards)\n", saved.Title, len(words))
	if len(words) == 0 {
		return nil
	}

	index := 0
	var card *flashcard.Card
	for {
		if len(words) == 0 {
			fmt.Fprintln(p.out, "No cards left")
			return nil
		}
		if index >= len(words) {
			index = len(words) - 1
		}
		if card == nil || card.Word.Key() != words[index].Key() {
			if card != nil {
				card.Close()
			}
			card = flashcard.NewCard(words[index], p.sched, speak)
		}

		p.printCard(card, index, len(words))
		fmt.Fprint(p.out, "[Enter] flip, n next, p previous, s save, d dismiss, u undo, q quit: ")
		line, err := p.readLine()
		if err != nil {
			card.Close()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch line {
		case "":
			card.Flip()
		case "n":
			if index+1 < len(words) {
				index++
			}
		case "p":
			if index > 0 {
				index--
			}
		case "s":
			isSaved := p.store.SavedWordKeys()[card.Word.Key()]
			if err := p.store.ToggleWord(card.Word, isSaved, 0); err != nil {
				return err
			}
		case "d":
			if err := s.Dismiss(card.Word.Key()); err != nil {
				return err
			}
			fmt.Fprintf(p.out, "Dismissed %s; press u within %s to undo\n", card.Word.Surface, session.UndoWindow)
			words = s.FlashcardWords()
		case "u":
			if err := s.Undo(); err != nil {
				fmt.Fprintln(p.out, err)
				continue
			}
			words = s.FlashcardWords()
		case "q":
			card.Close()
			return nil
		}
	}
}

func (p *Processor) printCard(c *flashcard.Card, index, total int) {
	w := c.Word
	mark := ""
	if p.store.SavedWordKeys()[w.Key()] {
		mark = " ★"
	}
	fmt.Fprintf(p.out, "\nCard %d/%d%s\n", index+1, total, mark)
	if !c.Flipped() {
		fmt.Fprintf(p.out, "  %s\n", w.Surface)
		return
	}
	fmt.Fprintf(p.out, "  %s 【%s】 %s\n", w.Surface, w.Reading, w.JLPT)
	fmt.Fprintf(p.out, "  %s  (%s)\n", w.Definition, w.POS)
}

// readLine reads one trimmed line of input
func (p *Processor) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Processor) confirm(prompt string) bool {
	fmt.Fprint(p.out, prompt)
	line, err := p.readLine()
	if err != nil {
		return false
	}
	return strings.EqualFold(line, "y") || strings.EqualFold(line, "yes")
}
