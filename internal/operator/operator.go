package operator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/wallet-server/internal/operator/actions"
)

// Operator is the worker that processes items from the queue.
type Operator struct {
	log   *logrus.Logger
	queue chan ActionItem
}

func NewOperator(log *logrus.Logger, queue chan ActionItem) *Operator {
	return &Operator{
		log:   log,
		queue: queue,
	}
}

// Run listens to the queue and processes items. Exits when the queue is closed.
func (o *Operator) Run() {
	for item := range o.queue {
		o.processItem(item)
	}
}

func (o *Operator) processItem(item ActionItem) {
	err := item.action.Perform(item.ctx)

	// Submitted items have nobody waiting on them.
	if item.response == nil {
		if err != nil {
			o.log.WithError(err).WithField("action", fmt.Sprintf("%T", item.action)).Error("Operator.processItem")
		}
		return
	}

	item.response <- ActionItemResponse{err: err}
}

type ActionItem struct {
	ctx      context.Context
	action   actions.IAction
	response chan ActionItemResponse
}

type ActionItemResponse struct {
	err error
}
