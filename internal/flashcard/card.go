package flashcard

import (
	"sync"
	"time"

	"codeberg.org/snonux/kotoba/internal/model"
	"codeberg.org/snonux/kotoba/internal/timer"
)

// FlipBackDelay is how long a card shows its back before turning over again
const FlipBackDelay = 4 * time.Second

// Card is the flip state of one word card. Every flip speaks the reading;
// showing the back schedules an automatic flip back.
type Card struct {
	Word model.Word

	mu       sync.Mutex
	flipped  bool
	flipBack timer.Handle
	sched    timer.Scheduler
	speak    func(reading string)
}

// NewCard creates a face-up card. speak may be nil.
func NewCard(w model.Word, sched timer.Scheduler, speak func(reading string)) *Card {
	if sched == nil {
		sched = timer.Real{}
	}
	return &Card{Word: w, sched: sched, speak: speak}
}

// Flip turns the card over and returns whether the back is now showing
func (c *Card) Flip() bool {
	c.mu.Lock()
	timer.Stop(c.flipBack)
	c.flipBack = nil

	c.flipped = !c.flipped
	if c.flipped {
		var h timer.Handle
		h = c.sched.AfterFunc(FlipBackDelay, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.flipBack == h {
				c.flipped = false
				c.flipBack = nil
			}
		})
		c.flipBack = h
	}
	flipped := c.flipped
	c.mu.Unlock()

	if c.speak != nil {
		c.speak(c.Word.Reading)
	}
	return flipped
}

// Flipped reports whether the back is showing
func (c *Card) Flipped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flipped
}

// Close cancels a pending flip back
func (c *Card) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer.Stop(c.flipBack)
	c.flipBack = nil
}
