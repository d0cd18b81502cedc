package game

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"

	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/timer"
)

type play struct {
	id, text string
}

type recordingSpeaker struct {
	mu    sync.Mutex
	plays []play
	stops int
}

func (s *recordingSpeaker) Play(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays = append(s.plays, play{id, text})
	return nil
}

func (s *recordingSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *recordingSpeaker) last() play {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.plays) == 0 {
		return play{}
	}
	return s.plays[len(s.plays)-1]
}

func (s *recordingSpeaker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plays)
}

func kanjiWords() []model.Word {
	return []model.Word{
		{Surface: "猫", Reading: "ねこ", POS: "名詞", JLPT: "N5"},
		{Surface: "犬", Reading: "いぬ", POS: "名詞", JLPT: "N5"},
		{Surface: "鳥", Reading: "とり", POS: "名詞", JLPT: "N5"},
		{Surface: "魚", Reading: "さかな", POS: "名詞", JLPT: "N5"},
	}
}

var wrongWord = model.Word{Surface: "木", Reading: "き"}

func newTestListening(speaker Speaker) (*Listening, *timer.Manual) {
	clock := timer.NewManual()
	g := NewListening(speaker, Options{Scheduler: clock, Rand: rand.New(rand.NewSource(1))})
	return g, clock
}

func TestBuildQuestions(t *testing.T) {
	pool := append(kanjiWords(),
		model.Word{Surface: "山", Reading: "やま"},
		model.Word{Surface: "川", Reading: "かわ"},
		model.Word{Surface: "空", Reading: "そら"},
		model.Word{Surface: "海", Reading: "うみ"},
	)

	questions := BuildQuestions(pool, rand.New(rand.NewSource(7)))
	if len(questions) != 10 {
		t.Fatalf("got %d questions, want 10", len(questions))
	}
	seen := make(map[string]bool)
	for _, q := range questions {
		seen[q.Key()] = true
	}
	for _, w := range pool {
		if !seen[w.Key()] {
			t.Errorf("pool word %s never asked", w.Key())
		}
	}

	if got := BuildQuestions(nil, rand.New(rand.NewSource(1))); got != nil {
		t.Errorf("empty pool gave %v", got)
	}
}

func TestBuildQuestionsFourWords(t *testing.T) {
	pool := kanjiWords()
	for seed := int64(0); seed < 20; seed++ {
		questions := BuildQuestions(pool, rand.New(rand.NewSource(seed)))
		if len(questions) != 5 {
			t.Fatalf("seed %d: got %d questions, want 5", seed, len(questions))
		}
		counts := make(map[string]int)
		for _, q := range questions {
			counts[q.Key()]++
		}
		for _, w := range pool {
			if counts[w.Key()] == 0 {
				t.Errorf("seed %d: %s never asked", seed, w.Key())
			}
		}
	}
}

func TestSummaryPercentage(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{0, 0, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := newSummary(tt.score, tt.total).Percentage; got != tt.want {
			t.Errorf("newSummary(%d, %d).Percentage = %d, want %d", tt.score, tt.total, got, tt.want)
		}
	}
}

func TestListeningFullRound(t *testing.T) {
	speaker := &recordingSpeaker{}
	g, clock := newTestListening(speaker)

	if err := g.Start(context.Background(), kanjiWords()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if g.State() != InProgress {
		t.Fatalf("State() = %v, want in progress", g.State())
	}
	if len(g.Questions()) != 5 {
		t.Fatalf("got %d questions, want 5", len(g.Questions()))
	}

	if speaker.count() != 0 {
		t.Fatal("audio played before the delay")
	}
	clock.Advance(AudioDelay)
	current, _, _ := g.Current()
	if got := speaker.last(); got.id != "game-0" || got.text != current.Reading {
		t.Errorf("first play = %+v, want game-0 %s", got, current.Reading)
	}

	for i := 0; g.State() == InProgress; i++ {
		current, index, _ := g.Current()
		if index != i {
			t.Fatalf("index = %d, want %d", index, i)
		}
		if !g.Answer(current) {
			t.Fatalf("answer %d ignored", i)
		}
		if g.Answer(current) {
			t.Fatal("second click during feedback was accepted")
		}
		clock.Advance(FeedbackDelay)
		clock.Advance(AudioDelay)
	}

	if g.State() != Finished {
		t.Fatalf("State() = %v, want finished", g.State())
	}
	sum := g.Summary()
	if sum.Score != 5 || sum.Total != 5 || sum.Percentage != 100 {
		t.Errorf("Summary() = %+v", sum)
	}
	tested := g.Tested()
	for _, w := range kanjiWords() {
		if !tested[w.Key()] {
			t.Errorf("%s not marked tested", w.Key())
		}
	}
	if g.Answer(kanjiWords()[0]) {
		t.Error("answer accepted after finish")
	}
}

func TestListeningIncorrectAnswerReplays(t *testing.T) {
	speaker := &recordingSpeaker{}
	g, clock := newTestListening(speaker)
	g.Start(context.Background(), kanjiWords())
	clock.Advance(AudioDelay)

	current, _, _ := g.Current()
	if !g.Answer(wrongWord) {
		t.Fatal("wrong answer ignored")
	}
	if fb := g.Feedback(); fb.Kind != Incorrect || fb.Key != wrongWord.Key() {
		t.Errorf("Feedback() = %+v", fb)
	}

	clock.Advance(FeedbackDelay)
	if g.Feedback().Active() {
		t.Error("feedback not cleared")
	}
	if got := speaker.last(); got.id != "game-0-retry" || got.text != current.Reading {
		t.Errorf("replay = %+v", got)
	}
	if after, index, _ := g.Current(); index != 0 || after.Key() != current.Key() {
		t.Error("incorrect answer moved to another question")
	}
	if g.Summary().Score != 0 {
		t.Errorf("score = %d, want 0", g.Summary().Score)
	}
}

func TestListeningEmptyPool(t *testing.T) {
	g, _ := newTestListening(nil)
	if err := g.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if g.State() != Finished {
		t.Errorf("State() = %v, want finished", g.State())
	}
	if sum := g.Summary(); sum.Total != 0 || sum.Percentage != 100 {
		t.Errorf("Summary() = %+v", sum)
	}
}

func TestListeningExitCancelsTimers(t *testing.T) {
	speaker := &recordingSpeaker{}
	g, clock := newTestListening(speaker)
	g.Start(context.Background(), kanjiWords())
	clock.Advance(AudioDelay)

	current, _, _ := g.Current()
	g.Answer(current)
	g.Exit()

	plays := speaker.count()
	clock.Advance(FeedbackDelay + AudioDelay)
	if g.State() != Idle {
		t.Errorf("State() = %v, want idle", g.State())
	}
	if speaker.count() != plays {
		t.Error("audio played after exit")
	}
	if speaker.stops != 1 {
		t.Errorf("speaker stopped %d times, want 1", speaker.stops)
	}
	if clock.Pending() != 0 {
		t.Errorf("%d timers still pending", clock.Pending())
	}
	if g.Answer(current) {
		t.Error("answer accepted while idle")
	}
}

func TestListeningRestart(t *testing.T) {
	g, clock := newTestListening(&recordingSpeaker{})
	if err := g.Restart(); err == nil {
		t.Error("Restart of an idle game should fail")
	}

	g.Start(context.Background(), kanjiWords())
	clock.Advance(AudioDelay)
	current, _, _ := g.Current()
	g.Answer(current)

	if err := g.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	clock.Advance(FeedbackDelay)
	if _, index, _ := g.Current(); index != 0 {
		t.Errorf("stale advance ran after restart, index = %d", index)
	}
	if g.Summary().Score != 0 || g.Feedback().Active() {
		t.Error("restart kept score or feedback")
	}
}

func TestListeningPrepareFailure(t *testing.T) {
	prepErr := errors.New("quota")
	var got []string
	g := NewListening(nil, Options{
		Scheduler: timer.NewManual(),
		Rand:      rand.New(rand.NewSource(1)),
		Prepare: func(ctx context.Context, readings []string) error {
			got = readings
			return prepErr
		},
	})

	err := g.Start(context.Background(), kanjiWords())
	if !errors.Is(err, prepErr) {
		t.Fatalf("expected prepare error, got %v", err)
	}
	if g.State() != Idle {
		t.Errorf("State() = %v, want idle", g.State())
	}
	if len(got) != 4 {
		t.Errorf("prepared %d readings, want 4", len(got))
	}
}

func TestSeparateRepeats(t *testing.T) {
	q := func(s string) Question { return Question{Answer: model.Word{Surface: s}} }
	questions := []Question{q("A"), q("A"), q("B"), q("C")}

	separateRepeats(questions)

	var order string
	for _, qu := range questions {
		order += qu.Answer.Surface
	}
	if order != "ABAC" {
		t.Errorf("order = %s, want ABAC", order)
	}
}

func TestBuildQuiz(t *testing.T) {
	deck := append(kanjiWords(), model.Word{Surface: "山", Reading: "やま"})
	questions := BuildQuiz(deck, rand.New(rand.NewSource(3)))

	if len(questions) != 6 {
		t.Fatalf("got %d questions, want 6", len(questions))
	}
	for i, q := range questions {
		if len(q.Options) != NumOptions {
			t.Errorf("question %d has %d options", i, len(q.Options))
		}
		surfaces := make(map[string]bool)
		hasAnswer := false
		for _, o := range q.Options {
			if surfaces[o.Surface] {
				t.Errorf("question %d repeats option %s", i, o.Surface)
			}
			surfaces[o.Surface] = true
			if o.Key() == q.Answer.Key() {
				hasAnswer = true
			}
		}
		if !hasAnswer {
			t.Errorf("question %d lacks its answer", i)
		}
	}
}

func TestQuizNeedsFourKanjiWords(t *testing.T) {
	q := NewQuiz(nil, Options{Scheduler: timer.NewManual()})
	words := append(kanjiWords()[:3], model.Word{Surface: "ねこ", Reading: "ねこ"})
	if err := q.Start(context.Background(), words); !errors.Is(err, ErrNotEnoughWords) {
		t.Errorf("expected ErrNotEnoughWords, got %v", err)
	}
	if q.State() != Idle {
		t.Errorf("State() = %v, want idle", q.State())
	}
}

func TestQuizScoresFirstTryOnly(t *testing.T) {
	speaker := &recordingSpeaker{}
	clock := timer.NewManual()
	q := NewQuiz(speaker, Options{Scheduler: clock, Rand: rand.New(rand.NewSource(5))})

	if err := q.Start(context.Background(), kanjiWords()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}
	clock.Advance(AudioDelay)
	if got := speaker.last(); got.id != "quiz-0" {
		t.Errorf("first play id = %q", got.id)
	}

	first, _, _ := q.Current()
	var wrong model.Word
	for _, o := range first.Options {
		if o.Key() != first.Answer.Key() {
			wrong = o
			break
		}
	}
	q.Answer(wrong)
	clock.Advance(FeedbackDelay)
	q.Answer(first.Answer)
	clock.Advance(FeedbackDelay)

	if q.Summary().Score != 0 {
		t.Errorf("score after retry = %d, want 0", q.Summary().Score)
	}

	for q.State() == InProgress {
		current, _, _ := q.Current()
		q.Answer(current.Answer)
		clock.Advance(FeedbackDelay)
	}

	sum := q.Summary()
	if sum.Score != 4 || sum.Total != 5 || sum.Percentage != 80 {
		t.Errorf("Summary() = %+v", sum)
	}

	if err := q.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if q.State() != InProgress || q.Summary().Score != 0 || q.Len() != 5 {
		t.Error("restart did not reset the quiz")
	}
}

func TestQuizRestartKeepsOptions(t *testing.T) {
	clock := timer.NewManual()
	q := NewQuiz(nil, Options{Scheduler: clock, Rand: rand.New(rand.NewSource(9))})
	if err := q.Start(context.Background(), kanjiWords()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	walk := func() []string {
		var rounds []string
		for q.State() == InProgress {
			current, _, _ := q.Current()
			round := current.Answer.Key() + ":"
			for _, o := range current.Options {
				round += o.Key() + ","
			}
			rounds = append(rounds, round)
			q.Answer(current.Answer)
			clock.Advance(FeedbackDelay)
		}
		sort.Strings(rounds)
		return rounds
	}

	before := walk()
	if err := q.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	after := walk()
	if strings.Join(before, "|") != strings.Join(after, "|") {
		t.Errorf("restart changed the questions:\n%v\n%v", before, after)
	}
}
