// Package bus carries transaction records from intake to the saga coordinator with
// at-least-once delivery. Handlers must tolerate duplicates.
package bus

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const DefaultTopic = "transactions"

var ErrClosed = errors.New("bus: closed")

type Message struct {
	Key   []byte
	Value []byte
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type Handler interface {
	HandleMessage(ctx context.Context, msg Message) error
}

type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Consumer delivers messages to a Handler until ctx is cancelled or the consumer is closed.
type Consumer interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}

// deliver hands msg to handler until the handler accepts it or ctx is done, in which case
// ctx's error is returned. Undecodable records are acknowledged by the handler itself, so a
// failing handler is always treated as transient. Each attempt runs detached from ctx so a
// shutdown does not cut an attempt short.
func deliver(ctx context.Context, log *logrus.Logger, handler Handler, msg Message) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return handler.HandleMessage(context.WithoutCancel(ctx), msg)
	}, backoff.WithContext(newDeliverBackOff(), ctx), func(err error, wait time.Duration) {
		log.WithError(err).WithFields(logrus.Fields{
			"key":     string(msg.Key),
			"attempt": attempt,
			"retryIn": wait.String(),
		}).Warn("Bus.deliver.retry")
	})
}

// abandon records a message that will never reach its handler. Its transaction needs manual
// reconciliation, so the full record is logged.
func abandon(log *logrus.Logger, msg Message, err error) {
	log.WithError(err).WithFields(logrus.Fields{
		"key":   string(msg.Key),
		"value": string(msg.Value),
	}).Error("Bus.deliver.reconciliationRequired")
}

func newDeliverBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}
