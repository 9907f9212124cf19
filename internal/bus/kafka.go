package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaPublisher writes messages keyed by transaction id so every record of a transaction
// lands on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var _ Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value})
	if err != nil {
		return fmt.Errorf("bus: kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads in a consumer group and commits an offset only after the handler has
// accepted the message.
type KafkaConsumer struct {
	reader *kafka.Reader
	log    *logrus.Logger
}

var _ Consumer = (*KafkaConsumer)(nil)

func NewKafkaConsumer(log *logrus.Logger, brokers []string, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		log: log,
	}
}

func (c *KafkaConsumer) Run(ctx context.Context, handler Handler) error {
	c.log.Info("KafkaConsumer.Run.started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("bus: kafka fetch: %w", err)
		}

		if err := deliver(ctx, c.log, handler, Message{Key: m.Key, Value: m.Value}); err != nil {
			// Left uncommitted, the group hands the message out again after a restart.
			c.log.WithError(err).WithField("offset", m.Offset).Warn("KafkaConsumer.Run.uncommitted")
			return nil
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.WithError(err).WithField("offset", m.Offset).Error("KafkaConsumer.Run.commit")
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
