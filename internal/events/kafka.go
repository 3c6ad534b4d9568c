package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/oggyb/muzz-match/internal/config"
)

// writer is the part of *kafka.Writer the publisher uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON events keyed by conversation id, so every event
// of one conversation lands on the same partition in order.
type KafkaPublisher struct {
	matches  writer
	messages writer
}

// New returns a Kafka publisher, or Nop when no brokers are configured.
func New(cfg *config.Config, log *slog.Logger) Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, events disabled")
		return Nop{}
	}
	return &KafkaPublisher{
		matches:  newWriter(cfg.Kafka.Brokers, cfg.Kafka.MatchTopic),
		messages: newWriter(cfg.Kafka.Brokers, cfg.Kafka.MessageTopic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

func (p *KafkaPublisher) PublishMatch(ctx context.Context, e MatchCreated) error {
	return write(ctx, p.matches, e.ConversationID, e)
}

func (p *KafkaPublisher) PublishMessage(ctx context.Context, e MessageSent) error {
	return write(ctx, p.messages, e.ConversationID, e)
}

func (p *KafkaPublisher) Close() error {
	return errors.Join(p.matches.Close(), p.messages.Close())
}

func write(ctx context.Context, w writer, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
}
