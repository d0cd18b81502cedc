package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"codeberg.org/snonux/kotoba/internal/flashcard"
	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/timer"
)

// ErrNotEnoughWords is returned when a quiz has too few kanji words to offer
// distinct choices
var ErrNotEnoughWords = fmt.Errorf("a quiz needs at least %d kanji words", flashcard.MinQuizWords)

// Question is one quiz round: the spoken word and the choices shown
type Question struct {
	Answer  model.Word
	Options []model.Word
}

// BuildQuiz returns one question per word plus floor(N/4) resampled extras,
// shuffled, with no word asked twice in a row where it can be avoided
func BuildQuiz(deck []model.Word, rnd *rand.Rand) []Question {
	if len(deck) == 0 {
		return nil
	}
	questions := make([]Question, 0, len(deck)+len(deck)/4)
	for _, w := range deck {
		questions = append(questions, newQuestion(w, deck, rnd))
	}
	for i := 0; i < len(deck)/4; i++ {
		questions = append(questions, newQuestion(deck[rnd.Intn(len(deck))], deck, rnd))
	}
	shuffle(rnd, questions)
	separateRepeats(questions)
	return questions
}

func newQuestion(answer model.Word, deck []model.Word, rnd *rand.Rand) Question {
	var distractors []model.Word
	for _, w := range deck {
		if w.Surface != answer.Surface {
			distractors = append(distractors, w)
		}
	}
	shuffle(rnd, distractors)
	if len(distractors) > NumOptions-1 {
		distractors = distractors[:NumOptions-1]
	}
	options := append([]model.Word{answer}, distractors...)
	shuffle(rnd, options)
	return Question{Answer: answer, Options: options}
}

// separateRepeats swaps a question that repeats its predecessor's surface
// with the next question that differs
func separateRepeats(questions []Question) {
	for i := 1; i < len(questions); i++ {
		surface := questions[i].Answer.Surface
		if surface != questions[i-1].Answer.Surface {
			continue
		}
		for j := i + 1; j < len(questions); j++ {
			if questions[j].Answer.Surface != surface {
				questions[i], questions[j] = questions[j], questions[i]
				break
			}
		}
	}
}

// Quiz is the multiple-choice listening quiz. Only answers right on the
// first try score.
type Quiz struct {
	speaker Speaker
	opts    Options

	mu        sync.Mutex
	state     State
	questions []Question
	index     int
	score     int
	attempts  int
	feedback  Feedback
	gen       uint64
	audio     timer.Handle
	pending   timer.Handle
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewQuiz creates an idle quiz. speaker may be nil for a silent quiz.
func NewQuiz(speaker Speaker, opts Options) *Quiz {
	return &Quiz{speaker: speaker, opts: opts.withDefaults()}
}

// Start builds the questions from the kanji words among words
func (q *Quiz) Start(ctx context.Context, words []model.Word) error {
	deck := flashcard.QuizWords(words)
	if len(deck) < flashcard.MinQuizWords {
		return ErrNotEnoughWords
	}

	q.mu.Lock()
	q.resetLocked()
	q.state = Loading
	q.ctx, q.cancel = context.WithCancel(ctx)
	questions := BuildQuiz(deck, q.opts.Rand)
	gen := q.gen
	ctx = q.ctx
	q.mu.Unlock()
	q.changed()

	if q.opts.Prepare != nil {
		answers := make([]model.Word, len(questions))
		for i, qu := range questions {
			answers[i] = qu.Answer
		}
		if err := q.opts.Prepare(ctx, flashcard.Readings(answers)); err != nil {
			q.mu.Lock()
			if q.gen == gen {
				q.resetLocked()
			}
			q.mu.Unlock()
			q.changed()
			return fmt.Errorf("failed to prepare quiz: %w", err)
		}
	}

	q.mu.Lock()
	if q.gen == gen {
		q.questions = questions
		q.state = InProgress
		q.scheduleAudioLocked()
	}
	q.mu.Unlock()
	q.changed()
	return nil
}

// Restart reshuffles the same questions and starts over
func (q *Quiz) Restart() error {
	q.mu.Lock()
	defer func() {
		q.mu.Unlock()
		q.changed()
	}()

	if len(q.questions) == 0 {
		return errors.New("quiz has not been started")
	}
	questions := q.questions
	q.gen++
	timer.Stop(q.audio)
	timer.Stop(q.pending)
	q.pending = nil
	shuffle(q.opts.Rand, questions)
	q.questions = questions
	q.index, q.score, q.attempts = 0, 0, 0
	q.feedback = Feedback{}
	q.state = InProgress
	q.scheduleAudioLocked()
	return nil
}

// Answer judges the chosen word. It reports false when the choice is
// ignored.
func (q *Quiz) Answer(w model.Word) bool {
	q.mu.Lock()
	if q.state != InProgress || q.feedback.Active() {
		q.mu.Unlock()
		return false
	}

	gen := q.gen
	if w.Key() == q.questions[q.index].Answer.Key() {
		if q.attempts == 0 {
			q.score++
		}
		q.feedback = Feedback{Key: w.Key(), Kind: Correct}
		q.pending = q.opts.Scheduler.AfterFunc(FeedbackDelay, func() { q.advance(gen) })
	} else {
		q.attempts++
		q.feedback = Feedback{Key: w.Key(), Kind: Incorrect}
		q.pending = q.opts.Scheduler.AfterFunc(FeedbackDelay, func() { q.retry(gen) })
	}
	q.mu.Unlock()
	q.changed()
	return true
}

func (q *Quiz) advance(gen uint64) {
	q.mu.Lock()
	if q.gen != gen || q.state != InProgress {
		q.mu.Unlock()
		return
	}
	q.pending = nil
	q.attempts = 0
	if q.index+1 < len(q.questions) {
		q.index++
		q.feedback = Feedback{}
		q.scheduleAudioLocked()
	} else {
		q.state = Finished
	}
	q.mu.Unlock()
	q.changed()
}

func (q *Quiz) retry(gen uint64) {
	q.mu.Lock()
	if q.gen != gen || q.state != InProgress {
		q.mu.Unlock()
		return
	}
	q.pending = nil
	q.feedback = Feedback{}
	id, reading, ctx := q.audioIDLocked(), q.questions[q.index].Answer.Reading, q.ctx
	q.mu.Unlock()

	q.changed()
	q.speak(ctx, id, reading)
}

func (q *Quiz) scheduleAudioLocked() {
	gen := q.gen
	q.audio = q.opts.Scheduler.AfterFunc(AudioDelay, func() {
		q.mu.Lock()
		if q.gen != gen || q.state != InProgress {
			q.mu.Unlock()
			return
		}
		q.audio = nil
		id, reading, ctx := q.audioIDLocked(), q.questions[q.index].Answer.Reading, q.ctx
		q.mu.Unlock()

		q.speak(ctx, id, reading)
	})
}

func (q *Quiz) audioIDLocked() string {
	return fmt.Sprintf("quiz-%d", q.index)
}

// Replay speaks the current question again
func (q *Quiz) Replay() error {
	q.mu.Lock()
	if q.state != InProgress {
		q.mu.Unlock()
		return ErrNoQuestion
	}
	id, reading, ctx := q.audioIDLocked(), q.questions[q.index].Answer.Reading, q.ctx
	q.mu.Unlock()

	if q.speaker == nil {
		return nil
	}
	return q.speaker.Play(ctx, id, reading)
}

// Exit abandons the quiz
func (q *Quiz) Exit() {
	q.mu.Lock()
	q.resetLocked()
	q.mu.Unlock()
	if q.speaker != nil {
		q.speaker.Stop()
	}
	q.changed()
}

func (q *Quiz) resetLocked() {
	q.gen++
	timer.Stop(q.audio)
	timer.Stop(q.pending)
	q.audio, q.pending = nil, nil
	if q.cancel != nil {
		q.cancel()
	}
	q.state = Idle
	q.questions = nil
	q.index, q.score, q.attempts = 0, 0, 0
	q.feedback = Feedback{}
}

func (q *Quiz) speak(ctx context.Context, id, reading string) {
	if q.speaker == nil {
		return
	}
	if err := q.speaker.Play(ctx, id, reading); err != nil && q.opts.Logger != nil {
		q.opts.Logger.Printf("failed to play %q: %v", reading, err)
	}
}

func (q *Quiz) changed() {
	if q.opts.OnChange != nil {
		q.opts.OnChange()
	}
}

// State returns the phase of the quiz
func (q *Quiz) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Current returns the question being asked and its position
func (q *Quiz) Current() (Question, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != InProgress {
		return Question{}, 0, false
	}
	return q.questions[q.index], q.index, true
}

// Len returns the number of questions
func (q *Quiz) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.questions)
}

// Feedback returns the feedback being shown
func (q *Quiz) Feedback() Feedback {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.feedback
}

// Summary returns the first-try score over the number of questions
func (q *Quiz) Summary() Summary {
	q.mu.Lock()
	defer q.mu.Unlock()
	return newSummary(q.score, len(q.questions))
}
