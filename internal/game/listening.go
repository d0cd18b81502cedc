package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"codeberg.org/snonux/kotoba/internal/flashcard"
	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/timer"
)

// ErrNoQuestion is returned when there is no current question to act on
var ErrNoQuestion = errors.New("no question in progress")

// Options configures a game or quiz. Zero values select the real clock, a
// time-seeded random source and no logging.
type Options struct {
	Scheduler timer.Scheduler
	Rand      *rand.Rand
	Prepare   PrepareFunc
	Logger    *log.Logger

	// OnChange is called after every state transition, outside the lock
	OnChange func()
}

func (o Options) withDefaults() Options {
	if o.Scheduler == nil {
		o.Scheduler = timer.Real{}
	}
	o.Rand = newRand(o.Rand)
	return o
}

// Listening is the text-flow listening game. A word of the text is spoken
// and the player answers by picking that word.
type Listening struct {
	speaker Speaker
	opts    Options

	mu        sync.Mutex
	state     State
	pool      []model.Word
	questions []model.Word
	index     int
	score     int
	feedback  Feedback
	tested    map[string]bool
	gen       uint64
	audio     timer.Handle
	pending   timer.Handle
	parent    context.Context
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewListening creates an idle game. speaker may be nil for a silent game.
func NewListening(speaker Speaker, opts Options) *Listening {
	return &Listening{speaker: speaker, opts: opts.withDefaults(), tested: map[string]bool{}}
}

// Start begins a session over pool. An empty pool finishes at once with a
// 0/0 result. A failing prepare step returns the game to Idle.
func (g *Listening) Start(ctx context.Context, pool []model.Word) error {
	g.mu.Lock()
	g.resetLocked()
	g.state = Loading
	g.pool = append([]model.Word(nil), pool...)
	g.parent = ctx
	g.ctx, g.cancel = context.WithCancel(ctx)
	gen := g.gen
	g.mu.Unlock()
	g.changed()

	return g.begin(gen)
}

// Restart starts a fresh shuffled session over the same pool
func (g *Listening) Restart() error {
	g.mu.Lock()
	if g.state == Idle || g.state == Loading {
		g.mu.Unlock()
		return fmt.Errorf("cannot restart a %s game", g.state)
	}
	pool, parent := g.pool, g.parent
	g.mu.Unlock()

	return g.Start(parent, pool)
}

func (g *Listening) begin(gen uint64) error {
	g.mu.Lock()
	questions := BuildQuestions(g.pool, g.opts.Rand)
	ctx := g.ctx
	g.mu.Unlock()

	if len(questions) > 0 && g.opts.Prepare != nil {
		if err := g.opts.Prepare(ctx, flashcard.Readings(questions)); err != nil {
			g.mu.Lock()
			if g.gen == gen {
				g.resetLocked()
			}
			g.mu.Unlock()
			g.changed()
			return fmt.Errorf("failed to prepare game: %w", err)
		}
	}

	g.mu.Lock()
	if g.gen != gen {
		g.mu.Unlock()
		return nil
	}
	g.questions = questions
	g.index = 0
	g.score = 0
	if len(questions) == 0 {
		g.state = Finished
	} else {
		g.state = InProgress
		g.scheduleAudioLocked(AudioDelay)
	}
	g.mu.Unlock()
	g.changed()
	return nil
}

// Answer judges the picked word against the current question. It reports
// false when the click is ignored: while loading, while feedback shows, or
// when no session is in progress.
func (g *Listening) Answer(w model.Word) bool {
	g.mu.Lock()
	if g.state != InProgress || g.feedback.Active() {
		g.mu.Unlock()
		return false
	}

	current := g.questions[g.index]
	gen := g.gen
	if w.Key() == current.Key() {
		g.score++
		g.feedback = Feedback{Key: w.Key(), Kind: Correct}
		g.pending = g.opts.Scheduler.AfterFunc(FeedbackDelay, func() { g.advance(gen) })
	} else {
		g.feedback = Feedback{Key: w.Key(), Kind: Incorrect}
		g.pending = g.opts.Scheduler.AfterFunc(FeedbackDelay, func() { g.retry(gen) })
	}
	g.mu.Unlock()
	g.changed()
	return true
}

func (g *Listening) advance(gen uint64) {
	g.mu.Lock()
	if g.gen != gen || g.state != InProgress {
		g.mu.Unlock()
		return
	}
	g.pending = nil
	if g.index+1 < len(g.questions) {
		g.index++
		g.feedback = Feedback{}
		g.scheduleAudioLocked(AudioDelay)
	} else {
		g.state = Finished
		for _, q := range g.questions {
			g.tested[q.Key()] = true
		}
	}
	g.mu.Unlock()
	g.changed()
}

func (g *Listening) retry(gen uint64) {
	g.mu.Lock()
	if g.gen != gen || g.state != InProgress {
		g.mu.Unlock()
		return
	}
	g.pending = nil
	g.feedback = Feedback{}
	id, reading := g.audioIDLocked("-retry"), g.questions[g.index].Reading
	ctx := g.ctx
	g.mu.Unlock()

	g.changed()
	g.speak(ctx, id, reading)
}

// Replay speaks the current question again
func (g *Listening) Replay() error {
	g.mu.Lock()
	if g.state != InProgress {
		g.mu.Unlock()
		return ErrNoQuestion
	}
	id, reading := g.audioIDLocked(""), g.questions[g.index].Reading
	ctx := g.ctx
	g.mu.Unlock()

	return g.play(ctx, id, reading)
}

// Exit cancels every pending timer, stops audio and returns to Idle
func (g *Listening) Exit() {
	g.mu.Lock()
	g.resetLocked()
	g.mu.Unlock()
	if g.speaker != nil {
		g.speaker.Stop()
	}
	g.changed()
}

// resetLocked invalidates scheduled callbacks and clears the session
func (g *Listening) resetLocked() {
	g.gen++
	timer.Stop(g.audio)
	timer.Stop(g.pending)
	g.audio, g.pending = nil, nil
	if g.cancel != nil {
		g.cancel()
	}
	g.state = Idle
	g.questions = nil
	g.index = 0
	g.score = 0
	g.feedback = Feedback{}
	g.tested = map[string]bool{}
}

func (g *Listening) scheduleAudioLocked(delay time.Duration) {
	gen := g.gen
	timer.Stop(g.audio)
	g.audio = g.opts.Scheduler.AfterFunc(delay, func() {
		g.mu.Lock()
		if g.gen != gen || g.state != InProgress {
			g.mu.Unlock()
			return
		}
		g.audio = nil
		id, reading := g.audioIDLocked(""), g.questions[g.index].Reading
		ctx := g.ctx
		g.mu.Unlock()

		g.speak(ctx, id, reading)
	})
}

func (g *Listening) audioIDLocked(suffix string) string {
	return fmt.Sprintf("game-%d%s", g.index, suffix)
}

func (g *Listening) speak(ctx context.Context, id, reading string) {
	if err := g.play(ctx, id, reading); err != nil && g.opts.Logger != nil {
		g.opts.Logger.Printf("failed to play %q: %v", reading, err)
	}
}

func (g *Listening) play(ctx context.Context, id, reading string) error {
	if g.speaker == nil {
		return nil
	}
	return g.speaker.Play(ctx, id, reading)
}

func (g *Listening) changed() {
	if g.opts.OnChange != nil {
		g.opts.OnChange()
	}
}

// State returns the phase of the game
func (g *Listening) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Current returns the word being asked and its position
func (g *Listening) Current() (model.Word, int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != InProgress {
		return model.Word{}, 0, false
	}
	return g.questions[g.index], g.index, true
}

// Questions returns the words of the session in asking order
func (g *Listening) Questions() []model.Word {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Word(nil), g.questions...)
}

// Feedback returns the feedback being shown
func (g *Listening) Feedback() Feedback {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.feedback
}

// Tested returns the keys asked in the last finished session
func (g *Listening) Tested() map[string]bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	tested := make(map[string]bool, len(g.tested))
	for k := range g.tested {
		tested[k] = true
	}
	return tested
}

// Summary returns the score so far over the number of questions
func (g *Listening) Summary() Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return newSummary(g.score, len(g.questions))
}
