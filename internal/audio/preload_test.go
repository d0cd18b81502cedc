package audio

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrQuotaExceeded, true},
		{"wrapped sentinel", fmt.Errorf("preload: %w", ErrQuotaExceeded), true},
		{"breaker open", gobreaker.ErrOpenState, true},
		{"genai 429", genai.APIError{Code: 429, Message: "slow down"}, true},
		{"genai exhausted", &genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"genai 500", genai.APIError{Code: 500, Status: "INTERNAL", Message: "boom"}, false},
		{"openai 429", &openai.APIError{HTTPStatusCode: 429}, true},
		{"message mentions quota", errors.New("daily quota reached"), true},
		{"plain failure", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuotaError(tt.err); got != tt.want {
				t.Errorf("IsQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCacheMissing(t *testing.T) {
	c := NewCache()
	c.Put("ねこ", &Buffer{})

	got := c.Missing([]string{"いぬ", "ねこ", "とり", "いぬ"})
	want := []string{"いぬ", "とり"}
	if len(got) != len(want) {
		t.Fatalf("Missing() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Missing()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestPreload(t *testing.T) {
	tests := []struct {
		name       string
		errs       map[string]error
		wantErr    error
		wantLoaded int
	}{
		{
			name:       "all succeed",
			wantLoaded: 3,
		},
		{
			name:       "partial failure is not an error",
			errs:       map[string]error{"いぬ": errors.New("timeout")},
			wantLoaded: 2,
		},
		{
			name:       "quota failures with partial success",
			errs:       map[string]error{"いぬ": ErrQuotaExceeded, "とり": genai.APIError{Code: 429}},
			wantErr:    ErrQuotaExceeded,
			wantLoaded: 1,
		},
		{
			name: "everything failed",
			errs: map[string]error{
				"ねこ": errors.New("a"),
				"いぬ": errors.New("b"),
				"とり": ErrQuotaExceeded,
			},
			wantErr: ErrPreloadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth := &mockSynth{name: "mock", errs: tt.errs}
			cache := NewCache()

			result, err := Preload(context.Background(), synth, cache, []string{"ねこ", "いぬ", "とり", "ねこ"}, 2, nil)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if result.Requested != 3 {
				t.Errorf("Requested = %d, want 3", result.Requested)
			}
			if result.Loaded != tt.wantLoaded || cache.Len() != tt.wantLoaded {
				t.Errorf("Loaded = %d, cached = %d, want %d", result.Loaded, cache.Len(), tt.wantLoaded)
			}
			if synth.callCount() != 3 {
				t.Errorf("synthesized %d texts, want 3", synth.callCount())
			}
		})
	}
}

func TestPreloadSkipsCached(t *testing.T) {
	synth := &mockSynth{name: "mock"}
	cache := NewCache()
	cache.Put("ねこ", &Buffer{})

	result, err := Preload(context.Background(), synth, cache, []string{"ねこ"}, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Requested != 0 || synth.callCount() != 0 {
		t.Errorf("cached text was synthesized again")
	}
}

func TestBreakerOpensOnQuotaErrors(t *testing.T) {
	inner := &mockSynth{name: "mock", err: ErrQuotaExceeded}
	b := NewBreakerSynthesizer(inner, 2).(*BreakerSynthesizer)

	for i := 0; i < 2; i++ {
		if _, err := b.Synthesize(context.Background(), "ねこ"); !errors.Is(err, ErrQuotaExceeded) {
			t.Fatalf("call %d: expected quota error, got %v", i, err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}

	_, err := b.Synthesize(context.Background(), "ねこ")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected quota error from open breaker, got %v", err)
	}
	if inner.callCount() != 2 {
		t.Errorf("open breaker still called the provider (%d calls)", inner.callCount())
	}
}

func TestBreakerIgnoresOtherErrors(t *testing.T) {
	inner := &mockSynth{name: "mock", err: errors.New("bad text")}
	b := NewBreakerSynthesizer(inner, 1).(*BreakerSynthesizer)

	for i := 0; i < 3; i++ {
		b.Synthesize(context.Background(), "ねこ")
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}

// fakeSink records playbacks that end only when stopped or finished by the test
type fakeSink struct {
	plays []*fakePlayback
	err   error
}

func (s *fakeSink) Play(buf *Buffer) (Playback, error) {
	if s.err != nil {
		return nil, s.err
	}
	pb := &fakePlayback{done: make(chan struct{})}
	s.plays = append(s.plays, pb)
	return pb, nil
}

type fakePlayback struct {
	stopped bool
	done    chan struct{}
}

func (p *fakePlayback) Stop() {
	if !p.stopped {
		p.stopped = true
		close(p.done)
	}
}

func (p *fakePlayback) Done() <-chan struct{} {
	return p.done
}

func TestPlayerExclusivePlayback(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	p := NewPlayer(&mockSynth{name: "mock"}, nil, sink)

	if err := p.Play(ctx, "word-0", "ねこ"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if p.PlayingID() != "word-0" {
		t.Errorf("PlayingID() = %q, want word-0", p.PlayingID())
	}

	if err := p.Play(ctx, "word-1", "いぬ"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !sink.plays[0].stopped {
		t.Error("first playback was not stopped")
	}
	if p.PlayingID() != "word-1" {
		t.Errorf("PlayingID() = %q, want word-1", p.PlayingID())
	}
	if p.Cache().Len() != 2 {
		t.Errorf("cache holds %d buffers, want 2", p.Cache().Len())
	}
}

func TestPlayerToggleSameID(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	synth := &mockSynth{name: "mock"}
	p := NewPlayer(synth, nil, sink)

	p.Play(ctx, "word-0", "ねこ")
	p.Play(ctx, "word-0", "ねこ")

	if p.PlayingID() != "" {
		t.Errorf("PlayingID() = %q after toggle, want empty", p.PlayingID())
	}
	if len(sink.plays) != 1 || !sink.plays[0].stopped {
		t.Error("toggle should stop the playback without starting a new one")
	}

	p.Play(ctx, "word-0", "ねこ")
	if synth.callCount() != 1 {
		t.Errorf("cached text synthesized %d times", synth.callCount())
	}
}

func TestPlayerSynthesisError(t *testing.T) {
	p := NewPlayer(&mockSynth{name: "mock", err: ErrQuotaExceeded}, nil, &fakeSink{})

	err := p.Play(context.Background(), "word-0", "ねこ")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if p.PlayingID() != "" {
		t.Errorf("PlayingID() = %q after failure, want empty", p.PlayingID())
	}
}

func TestPlayerClearsStateWhenPlaybackEnds(t *testing.T) {
	p := NewPlayer(&mockSynth{name: "mock"}, nil, DiscardSink{})

	if err := p.Play(context.Background(), "word-0", "ねこ"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for p.PlayingID() != "" {
		if time.Now().After(deadline) {
			t.Fatal("playing state not cleared after playback ended")
		}
		time.Sleep(time.Millisecond)
	}
}
