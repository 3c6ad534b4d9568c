// Package events publishes domain events for downstream consumers
// (notifications, analytics). Delivery is best effort: the core never
// fails an operation because an event could not be published.
package events

import (
	"context"
	"sync"
	"time"
)

// MatchCreated is emitted once per pair, when its conversation is created.
type MatchCreated struct {
	ConversationID string    `json:"conversation_id"`
	UserAID        uint64    `json:"user_a_id"`
	UserBID        uint64    `json:"user_b_id"`
	MatchedAt      time.Time `json:"matched_at"`
}

// MessageSent is emitted after a message is stored. The text is not included.
type MessageSent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       uint64    `json:"sender_id"`
	ReceiverID     uint64    `json:"receiver_id"`
	SentAt         time.Time `json:"sent_at"`
}

type Publisher interface {
	PublishMatch(ctx context.Context, e MatchCreated) error
	PublishMessage(ctx context.Context, e MessageSent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishMatch(context.Context, MatchCreated) error { return nil }
func (Nop) PublishMessage(context.Context, MessageSent) error { return nil }
func (Nop) Close() error                                      { return nil }

// Recorder keeps published events in memory. Used by tests and the seed tool.
type Recorder struct {
	mu       sync.Mutex
	matches  []MatchCreated
	messages []MessageSent
}

func (r *Recorder) PublishMatch(_ context.Context, e MatchCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, e)
	return nil
}

func (r *Recorder) PublishMessage(_ context.Context, e MessageSent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Matches returns a copy of the recorded match events.
func (r *Recorder) Matches() []MatchCreated {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MatchCreated(nil), r.matches...)
}

// Messages returns a copy of the recorded message events.
func (r *Recorder) Messages() []MessageSent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MessageSent(nil), r.messages...)
}
