// Package saga settles withdrawals: each PENDING withdrawal gets one saga that pays it out
// through the gateway, retries with exponential backoff and credits the funds back when the
// payout fails for good.
package saga

import (
	"context"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/wallet-server/internal/gateway"
	"github.com/carson-networks/wallet-server/internal/notify"
	"github.com/carson-networks/wallet-server/internal/service"
)

type State string

const (
	StateAttempting     State = "ATTEMPTING"
	StateRetryScheduled State = "RETRY_SCHEDULED"
	StateCompensating   State = "COMPENSATING"
	StateSuccess        State = "SUCCESS"
	StateFailed         State = "FAILED"
)

// ReconciliationRequired prefixes the meta of a withdrawal whose credit-back failed.
const ReconciliationRequired = "reconciliation required"

// Ledger returns the funds of a failed withdrawal.
type Ledger interface {
	Compensate(ctx context.Context, tx service.Transaction) (*service.Account, error)
}

// TransactionLog persists transaction records.
type TransactionLog interface {
	Record(ctx context.Context, tx service.Transaction) (service.Transaction, error)
}

type Options struct {
	MaxAttempts int
	// Backoff returns the pause before the attempt that follows attempt.
	Backoff func(attempt int) time.Duration
	// BankCode is sent with every payout.
	BankCode string
}

const DefaultMaxAttempts = 3

// DefaultBackoff waits 2^attempt seconds.
func DefaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Backoff == nil {
		o.Backoff = DefaultBackoff
	}
	return o
}

type dependencies struct {
	log          *logrus.Logger
	gateway      gateway.Gateway
	ledger       Ledger
	transactions TransactionLog
	notifier     notify.Notifier
	options      Options
}

// paymentResult and retryDue are the two events a saga reacts to.
type paymentResult struct {
	result gateway.Result
}

type retryDue struct{}

// Withdrawal is the state machine of one withdrawal. All fields are owned by the goroutine
// running run; the payout call and the retry timer only talk to it through inbox.
type Withdrawal struct {
	deps *dependencies

	tx        service.Transaction
	state     State
	attempts  int
	lastError string

	inbox chan interface{}
	done  chan struct{}
}

func newWithdrawal(tx service.Transaction, deps *dependencies) *Withdrawal {
	return &Withdrawal{
		deps: deps,
		tx:   tx,
		// At most one payout result or one retry timer is outstanding at any time.
		inbox: make(chan interface{}, 1),
		done:  make(chan struct{}),
	}
}

// Done is closed once the saga reached SUCCESS or FAILED.
func (w *Withdrawal) Done() <-chan struct{} {
	return w.done
}

// Outcome returns the final state and record. It must only be called after Done is closed.
func (w *Withdrawal) Outcome() (State, service.Transaction) {
	return w.state, w.tx
}

func (w *Withdrawal) run(ctx context.Context) {
	defer close(w.done)

	w.attempts = 1
	w.attempt(ctx)

	for event := range w.inbox {
		switch e := event.(type) {
		case paymentResult:
			if w.onPaymentResult(ctx, e.result) {
				return
			}
		case retryDue:
			w.attempts++
			w.deps.log.WithFields(w.fields()).Info("WithdrawalSaga.retry")
			w.attempt(ctx)
		}
	}
}

func (w *Withdrawal) attempt(ctx context.Context) {
	w.state = StateAttempting
	req := gateway.TransferRequest{
		Destination: w.tx.ContactRef,
		BankCode:    w.deps.options.BankCode,
		Amount:      w.tx.Amount,
		Currency:    w.tx.Currency,
		Narration:   "USSD withdrawal " + w.tx.ID.String(),
		Reference:   "wd-" + w.tx.ID.String(),
	}

	go func() {
		w.inbox <- paymentResult{result: w.deps.gateway.InitiateTransfer(ctx, req)}
	}()
}

// onPaymentResult applies one payout outcome and reports whether the saga is finished.
func (w *Withdrawal) onPaymentResult(ctx context.Context, result gateway.Result) bool {
	if result.Success {
		w.deps.log.WithFields(w.fields()).WithField("providerRef", result.ProviderRef).Info("WithdrawalSaga.paid")
		w.tx.Status = service.TransactionStatusSuccess
		w.tx.ProviderRef = result.ProviderRef
		w.persist(ctx)
		w.deps.notifier.Notify(ctx, w.tx.ContactRef, notify.WithdrawalSuccessful(w.tx.Amount, w.tx.Currency))
		w.state = StateSuccess
		return true
	}

	w.lastError = result.Error
	w.deps.log.WithFields(w.fields()).WithField("error", result.Error).Warn("WithdrawalSaga.paymentFailed")

	if w.attempts < w.deps.options.MaxAttempts {
		w.state = StateRetryScheduled
		time.AfterFunc(w.deps.options.Backoff(w.attempts), func() {
			w.inbox <- retryDue{}
		})
		return false
	}

	w.compensate(ctx)
	return true
}

func (w *Withdrawal) compensate(ctx context.Context) {
	w.state = StateCompensating
	w.tx.Status = service.TransactionStatusFailed

	if _, err := w.deps.ledger.Compensate(ctx, w.tx); err != nil {
		w.tx.Meta = ReconciliationRequired + ": " + w.lastError
		w.deps.log.WithError(err).WithFields(w.fields()).
			WithField("record", spew.Sdump(w.tx)).
			Error("WithdrawalSaga.compensate.reconciliationRequired")
		w.persist(ctx)
		w.state = StateFailed
		return
	}

	w.tx.Meta = w.lastError
	w.deps.log.WithFields(w.fields()).Info("WithdrawalSaga.compensated")
	w.persist(ctx)
	w.deps.notifier.Notify(ctx, w.tx.ContactRef, notify.WithdrawalRefunded(w.tx.Amount, w.tx.Currency))
	w.state = StateFailed
}

// persist failures are logged only; the outcome already happened at the provider and ledger.
func (w *Withdrawal) persist(ctx context.Context) {
	if _, err := w.deps.transactions.Record(ctx, w.tx); err != nil {
		w.deps.log.WithError(err).WithFields(w.fields()).Error("WithdrawalSaga.persist")
	}
}

func (w *Withdrawal) fields() logrus.Fields {
	return logrus.Fields{
		"transactionID": w.tx.ID.String(),
		"accountID":     w.tx.AccountID.String(),
		"attempt":       w.attempts,
		"state":         w.state,
	}
}
