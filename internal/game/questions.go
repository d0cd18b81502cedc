// Package game runs listening sessions over the words of an analysis. The
// listening game speaks a word and expects the player to find it in the
// text; the quiz offers four written choices for each spoken word.
package game

import (
	"context"
	"math/rand"
	"time"

	"codeberg.org/snonux/kotoba/internal/flashcard"
	"codeberg.org/snonux/kotoba/internal/model"
)

const (
	// AudioDelay separates showing a question from speaking it
	AudioDelay = 200 * time.Millisecond

	// FeedbackDelay is how long answer feedback stays before the game moves on
	FeedbackDelay = 1500 * time.Millisecond

	// NumOptions is the number of choices per quiz question
	NumOptions = 4
)

// State is the phase of a session
type State int

const (
	Idle State = iota
	Loading
	InProgress
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case InProgress:
		return "in progress"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// FeedbackKind says how the last answer was judged
type FeedbackKind int

const (
	NoFeedback FeedbackKind = iota
	Correct
	Incorrect
)

// Feedback marks the answered word while feedback is showing
type Feedback struct {
	Key  string
	Kind FeedbackKind
}

// Active reports whether feedback is showing
func (f Feedback) Active() bool {
	return f.Kind != NoFeedback
}

// Speaker plays the reading of a question. *audio.Player satisfies it.
type Speaker interface {
	Play(ctx context.Context, id, text string) error
	Stop()
}

// PrepareFunc runs while a session is loading, typically preloading the
// audio of every question
type PrepareFunc func(ctx context.Context, readings []string) error

// Summary is the final result of a session
type Summary struct {
	Score      int
	Total      int
	Percentage int
}

func newSummary(score, total int) Summary {
	pct := 100
	if total > 0 {
		pct = (score*200 + total) / (total * 2)
	}
	return Summary{Score: score, Total: total, Percentage: pct}
}

// Pool returns the words a listening session asks about
func Pool(sentences []model.Sentence, simplified bool, dismissed map[string]bool) []model.Word {
	return flashcard.Visible(flashcard.FlashcardWords(sentences, simplified), dismissed)
}

// BuildQuestions returns the pool plus floor(N/4) extra words sampled with
// replacement, in shuffled order
func BuildQuestions(pool []model.Word, rnd *rand.Rand) []model.Word {
	if len(pool) == 0 {
		return nil
	}
	questions := append([]model.Word(nil), pool...)
	for i := 0; i < len(pool)/4; i++ {
		questions = append(questions, pool[rnd.Intn(len(pool))])
	}
	shuffle(rnd, questions)
	return questions
}

// shuffle is Fisher-Yates over rnd
func shuffle[T any](rnd *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

func newRand(rnd *rand.Rand) *rand.Rand {
	if rnd != nil {
		return rnd
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
