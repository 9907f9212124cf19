package actions

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/wallet-server/internal/bus"
)

// DeliverMessage hands a bus message that could not be published straight to the handler the
// bus consumer would have called. It keeps retrying until the handler accepts the message or
// ctx is done. A message given up on is logged for reconciliation, since no broker holds a
// copy of it.
type DeliverMessage struct {
	Log     *logrus.Logger
	Message bus.Message
	Handler bus.Handler

	// Retry overrides the redelivery policy, mainly for tests.
	Retry backoff.BackOff
}

func (d *DeliverMessage) Perform(ctx context.Context) error {
	policy := d.Retry
	if policy == nil {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 100 * time.Millisecond
		b.MaxInterval = 30 * time.Second
		b.MaxElapsedTime = 0
		policy = b
	}

	err := backoff.Retry(func() error {
		return d.Handler.HandleMessage(context.WithoutCancel(ctx), d.Message)
	}, backoff.WithContext(policy, ctx))
	if err != nil && d.Log != nil {
		d.Log.WithError(err).WithFields(logrus.Fields{
			"key":   string(d.Message.Key),
			"value": string(d.Message.Value),
		}).Error("DeliverMessage.Perform.reconciliationRequired")
	}
	return err
}
