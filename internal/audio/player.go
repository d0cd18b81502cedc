package audio

import (
	"context"
	"sync"
)

// Playback is one sounding buffer
type Playback interface {
	// Stop silences the playback. It is safe to call more than once.
	Stop()

	// Done is closed when the playback ends or is stopped
	Done() <-chan struct{}
}

// Sink outputs decoded audio
type Sink interface {
	Play(buf *Buffer) (Playback, error)
}

// Player plays speech for texts with at most one sound at a time. Buffers
// come from the cache or are synthesized and cached on first use.
type Player struct {
	synth Synthesizer
	cache *Cache
	sink  Sink

	mu        sync.Mutex
	playingID string
	current   Playback
	seq       uint64
}

// NewPlayer creates a player. A nil cache starts a fresh one.
func NewPlayer(synth Synthesizer, cache *Cache, sink Sink) *Player {
	if cache == nil {
		cache = NewCache()
	}
	return &Player{synth: synth, cache: cache, sink: sink}
}

// Cache returns the player's audio cache
func (p *Player) Cache() *Cache {
	return p.cache
}

// PlayingID returns the id of the playback in progress, or ""
func (p *Player) PlayingID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playingID
}

// Play speaks text under the given id. Anything already playing is stopped
// first. Playing the id that is already playing stops it instead. A
// synthesis failure clears the playing state and is returned.
func (p *Player) Play(ctx context.Context, id, text string) error {
	p.mu.Lock()
	if p.playingID != "" && p.playingID == id {
		p.stopLocked()
		p.mu.Unlock()
		return nil
	}
	p.stopLocked()
	p.seq++
	seq := p.seq
	p.playingID = id
	p.mu.Unlock()

	buf, ok := p.cache.Get(text)
	if !ok {
		var err error
		buf, err = p.synth.Synthesize(ctx, text)
		if err != nil {
			p.mu.Lock()
			if p.seq == seq {
				p.playingID = ""
			}
			p.mu.Unlock()
			return err
		}
		p.cache.Put(text, buf)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq != seq {
		return nil
	}

	pb, err := p.sink.Play(buf)
	if err != nil {
		p.playingID = ""
		return err
	}
	p.current = pb

	go func() {
		<-pb.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.seq == seq {
			p.playingID = ""
			p.current = nil
		}
	}()
	return nil
}

// Stop silences the current playback
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.current != nil {
		p.current.Stop()
		p.current = nil
	}
	p.playingID = ""
	p.seq++
}
