package operator

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/wallet-server/internal/bus"
	"github.com/carson-networks/wallet-server/internal/operator/actions"
	"github.com/carson-networks/wallet-server/internal/service"
)

// Dispatcher delivers records the bus refused directly to the bus handler, on the operator
// workers.
//
// Deliveries outlive the request that produced them and are bounded by the dispatcher's own
// context instead, which is cancelled when the server shuts down.
type Dispatcher struct {
	ctx       context.Context
	log       *logrus.Logger
	delegator *OperatorDelegator
	handler   bus.Handler
}

var _ service.FallbackDispatcher = (*Dispatcher)(nil)

func NewDispatcher(ctx context.Context, log *logrus.Logger, delegator *OperatorDelegator, handler bus.Handler) *Dispatcher {
	return &Dispatcher{
		ctx:       ctx,
		log:       log,
		delegator: delegator,
		handler:   handler,
	}
}

func (d *Dispatcher) Dispatch(_ context.Context, msg bus.Message) {
	err := d.delegator.Submit(d.ctx, &actions.DeliverMessage{Log: d.log, Message: msg, Handler: d.handler})
	if err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{
			"key":   string(msg.Key),
			"value": string(msg.Value),
		}).Error("Dispatcher.Dispatch.reconciliationRequired")
	}
}
