package saga

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/wallet-server/internal/bus"
	"github.com/carson-networks/wallet-server/internal/gateway"
	"github.com/carson-networks/wallet-server/internal/notify"
	"github.com/carson-networks/wallet-server/internal/service"
)

type Config struct {
	Logger       *logrus.Logger
	Gateway      gateway.Gateway
	Ledger       Ledger
	Transactions TransactionLog
	Notifier     notify.Notifier
	Options      Options
}

// Coordinator persists every record it receives and starts at most one Withdrawal per
// transaction id.
type Coordinator struct {
	deps *dependencies

	// active maps a transaction id to its running *Withdrawal.
	active sync.Map
	wg     sync.WaitGroup
}

var _ bus.Handler = (*Coordinator)(nil)

func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		deps: &dependencies{
			log:          cfg.Logger,
			gateway:      cfg.Gateway,
			ledger:       cfg.Ledger,
			transactions: cfg.Transactions,
			notifier:     cfg.Notifier,
			options:      cfg.Options.withDefaults(),
		},
	}
}

// HandleMessage records the transaction carried by msg and launches a saga for a withdrawal
// that is still PENDING in the log. A returned error asks the bus to redeliver.
func (c *Coordinator) HandleMessage(ctx context.Context, msg bus.Message) error {
	tx, err := service.DecodeTransaction(msg)
	if err != nil {
		// Redelivering an undecodable record cannot help.
		c.deps.log.WithError(err).WithField("key", string(msg.Key)).Error("Coordinator.HandleMessage.decode")
		return nil
	}

	stored, err := c.deps.transactions.Record(ctx, tx)
	if err != nil {
		return fmt.Errorf("record transaction %s: %w", tx.ID, err)
	}

	if stored.Type != service.TransactionTypeWithdraw || stored.Status != service.TransactionStatusPending {
		return nil
	}
	c.Launch(stored)
	return nil
}

// Launch starts a saga for tx unless one is already running for the same id. It reports
// whether a saga was started.
func (c *Coordinator) Launch(tx service.Transaction) bool {
	w := newWithdrawal(tx, c.deps)
	if _, loaded := c.active.LoadOrStore(tx.ID, w); loaded {
		c.deps.log.WithField("transactionID", tx.ID.String()).Info("Coordinator.Launch.alreadyRunning")
		return false
	}

	c.deps.log.WithFields(logrus.Fields{
		"transactionID": tx.ID.String(),
		"accountID":     tx.AccountID.String(),
		"amount":        tx.Amount.String(),
	}).Info("Coordinator.Launch")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.active.Delete(tx.ID)
		w.run(context.Background())
	}()
	return true
}

// Running returns the saga for id, if one is in flight.
func (c *Coordinator) Running(id uuid.UUID) (*Withdrawal, bool) {
	v, ok := c.active.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Withdrawal), true
}

// Wait blocks until every running saga has finished or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
