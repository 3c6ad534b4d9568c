package matchmaker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/events"
)

// Appender adds messages to conversations. A message is its own row, so
// concurrent senders never read-modify-write a shared list.
type Appender struct {
	*deps
}

// SendMessage appends text from sender to the conversation.
//
// Behavior:
//   - Text is trimmed and must be non-empty and within the length limit.
//   - The sender must be a participant; the other participant receives it.
//   - Ids are UUIDv7, so (created_at, id) follows submission order.
//
// Example:
//
//	msg, err := app.SendMessage(ctx, convID, 1, "hi")
func (a *Appender) SendMessage(ctx context.Context, conversationID string, senderID uint64, text string) (*db.Message, error) {
	text = strings.TrimSpace(text)
	switch {
	case conversationID == "":
		return nil, svcErr.Validation("conversation id must be set")
	case text == "":
		return nil, svcErr.Validation("message text must not be empty")
	case utf8.RuneCountInString(text) > a.opts.MaxMessageLength:
		return nil, svcErr.Validation("message text exceeds %d characters", a.opts.MaxMessageLength)
	}

	conv, err := a.participantOf(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	return a.send(ctx, conv, senderID, text)
}

// ListMessages returns the conversation oldest first, ordered by
// (created_at, id). The viewer must be a participant.
func (a *Appender) ListMessages(ctx context.Context, conversationID string, viewerID uint64, token string, limit int) ([]db.Message, *string, error) {
	if _, err := a.participantOf(ctx, conversationID, viewerID); err != nil {
		return nil, nil, err
	}

	var (
		msgs []db.Message
		next *string
	)
	err := a.exec.run(ctx, "messages.list", func(ctx context.Context) error {
		var err error
		msgs, next, err = a.stores.Messages.List(ctx, conversationID, token, limit)
		return err
	})
	return msgs, next, err
}

// MarkRead flags the messages reader received in the conversation as read
// and returns how many changed.
func (a *Appender) MarkRead(ctx context.Context, conversationID string, readerID uint64) (int64, error) {
	if _, err := a.participantOf(ctx, conversationID, readerID); err != nil {
		return 0, err
	}
	at := a.now()
	return call(ctx, a.exec, "messages.mark_read", func(ctx context.Context) (int64, error) {
		return a.stores.Messages.MarkRead(ctx, conversationID, readerID, at)
	})
}

func (a *Appender) participantOf(ctx context.Context, conversationID string, userID uint64) (*db.Conversation, error) {
	if conversationID == "" {
		return nil, svcErr.Validation("conversation id must be set")
	}
	conv, err := call(ctx, a.exec, "conversations.get", func(ctx context.Context) (*db.Conversation, error) {
		return a.stores.Conversations.Get(ctx, conversationID)
	})
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, svcErr.Validation("user %d is not part of conversation %s", userID, conversationID)
	}
	return conv, nil
}

// send stores the message. The id is fixed before the first attempt, so a
// retried insert can never produce a duplicate.
func (a *Appender) send(ctx context.Context, conv *db.Conversation, senderID uint64, text string) (*db.Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	msg := &db.Message{
		ID:             id.String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.Other(senderID),
		Text:           text,
		CreatedAt:      a.now(),
	}

	err = a.exec.run(ctx, "messages.insert", func(ctx context.Context) error {
		_, err := a.stores.Messages.Insert(ctx, msg)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.touch(ctx, msg)

	a.metrics.MessageSent()
	err = a.events.PublishMessage(ctx, events.MessageSent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     msg.ReceiverID,
		SentAt:         msg.CreatedAt,
	})
	if err != nil {
		a.log.Warn("publish message.sent failed", "message", msg.ID, "err", err)
	}
	return msg, nil
}

// touch refreshes the conversation's last-message summary. The message is
// already stored, so a failure here is only logged.
func (a *Appender) touch(ctx context.Context, msg *db.Message) {
	err := a.exec.run(ctx, "conversations.update_last", func(ctx context.Context) error {
		return a.stores.Conversations.UpdateLastMessage(ctx, msg)
	})
	if err != nil {
		a.log.Warn("last message not updated", "conversation", msg.ConversationID, "err", err)
	}
}
