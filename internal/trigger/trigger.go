// Package trigger decides when a conversation has accumulated enough
// high-confidence technical discussion to warrant generating a diagram.
package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MessageCounter is the store view the engine needs. *store.MessageStore
// satisfies it.
type MessageCounter interface {
	CountHighConfidenceSince(ctx context.Context, conversationID int64, since time.Time, threshold float64) (int, error)
}

// Engine evaluates the sliding-window generation trigger. The decision is a
// pure read over stored messages, so repeated evaluation against the same
// state yields the same answer; the debounce gate is the only mutable state.
type Engine struct {
	messages MessageCounter

	confidenceThreshold float64
	window              time.Duration
	minMessages         int
	debounce            time.Duration

	mu        sync.Mutex
	lastFired map[int64]time.Time
	now       func() time.Time
}

// NewEngine creates a trigger engine over the message store.
func NewEngine(messages MessageCounter, confidenceThreshold float64, window time.Duration, minMessages int, debounce time.Duration) *Engine {
	return &Engine{
		messages:            messages,
		confidenceThreshold: confidenceThreshold,
		window:              window,
		minMessages:         minMessages,
		debounce:            debounce,
		lastFired:           make(map[int64]time.Time),
		now:                 time.Now,
	}
}

// ShouldGenerate reports whether the conversation currently satisfies the
// trigger condition: at least minMessages technical messages with confidence
// at or above the threshold inside the trailing window. It does not consult
// or touch the debounce gate.
func (e *Engine) ShouldGenerate(ctx context.Context, conversationID int64) (bool, error) {
	since := e.now().Add(-e.window)
	count, err := e.messages.CountHighConfidenceSince(ctx, conversationID, since, e.confidenceThreshold)
	if err != nil {
		return false, err
	}

	fire := count >= e.minMessages
	log.Debug().
		Int64("conversation_id", conversationID).
		Int("high_confidence_count", count).
		Int("min_messages", e.minMessages).
		Bool("fire", fire).
		Msg("evaluated generation trigger")
	return fire, nil
}

// TryAcquire claims the debounce gate for the conversation. It returns true
// when no generation has been started within the debounce interval and marks
// the conversation as fired; callers that get false should skip generation.
func (e *Engine) TryAcquire(conversationID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if last, ok := e.lastFired[conversationID]; ok && now.Sub(last) < e.debounce {
		return false
	}
	e.lastFired[conversationID] = now
	return true
}

// Release clears the debounce gate, allowing the next trigger evaluation to
// fire immediately. Used when a claimed generation fails before producing a
// diagram.
func (e *Engine) Release(conversationID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lastFired, conversationID)
}
