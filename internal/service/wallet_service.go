package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/wallet-server/internal/bus"
	"github.com/carson-networks/wallet-server/internal/notify"
	"github.com/carson-networks/wallet-server/internal/storage/idempotency"
)

const (
	operationDeposit  = "deposit"
	operationWithdraw = "withdraw"
)

// FallbackDispatcher takes over delivery of a record that could not be published.
type FallbackDispatcher interface {
	Dispatch(ctx context.Context, msg bus.Message)
}

type IntakeRequest struct {
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	// ContactRef is the subscriber MSISDN used for SMS and as payout destination.
	ContactRef string
}

type IntakeResult struct {
	IdempotencyKey string
	TransactionID  uuid.UUID
	Status         TransactionStatus
	// Duplicate is set when the key was already claimed; nothing was done for this request.
	Duplicate bool
}

type WalletConfig struct {
	Logger         *logrus.Logger
	Accounts       *AccountService
	Transactions   *TransactionService
	Guard          idempotency.Guard
	Publisher      bus.Publisher
	Fallback       FallbackDispatcher
	Notifier       notify.Notifier
	IdempotencyTTL time.Duration
}

// WalletService is the idempotent intake for deposits and withdrawals.
type WalletService struct {
	log          *logrus.Logger
	accounts     *AccountService
	transactions *TransactionService
	guard        idempotency.Guard
	publisher    bus.Publisher
	fallback     FallbackDispatcher
	notifier     notify.Notifier
	ttl          time.Duration
}

func NewWalletService(cfg WalletConfig) *WalletService {
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &WalletService{
		log:          cfg.Logger,
		accounts:     cfg.Accounts,
		transactions: cfg.Transactions,
		guard:        cfg.Guard,
		publisher:    cfg.Publisher,
		fallback:     cfg.Fallback,
		notifier:     cfg.Notifier,
		ttl:          ttl,
	}
}

// Deposit credits the account and records a SUCCESS deposit.
func (s *WalletService) Deposit(ctx context.Context, req IntakeRequest) (IntakeResult, error) {
	return s.intake(ctx, operationDeposit, req)
}

// Withdraw debits the account and records a PENDING withdrawal for the saga to settle.
func (s *WalletService) Withdraw(ctx context.Context, req IntakeRequest) (IntakeResult, error) {
	return s.intake(ctx, operationWithdraw, req)
}

func (s *WalletService) intake(ctx context.Context, operation string, req IntakeRequest) (IntakeResult, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.Must(uuid.NewV4()).String()
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}
	result := IntakeResult{IdempotencyKey: req.IdempotencyKey}

	if !ValidAmount(req.Amount) {
		return result, ErrInvalidAmount
	}

	key := idempotency.Key(operation, req.IdempotencyKey)
	claimed, err := s.guard.Claim(ctx, key, s.ttl)
	if err != nil {
		return result, fmt.Errorf("%s: %w", operation, err)
	}
	if !claimed {
		s.log.WithFields(logrus.Fields{
			"operation":      operation,
			"idempotencyKey": req.IdempotencyKey,
		}).Info("WalletService.intake.duplicate")
		result.Duplicate = true
		return result, nil
	}

	tx := Transaction{
		ID:         uuid.Must(uuid.NewV4()),
		AccountID:  req.AccountID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		ContactRef: req.ContactRef,
		CreatedAt:  time.Now().UTC(),
	}

	switch operation {
	case operationDeposit:
		tx.Type = TransactionTypeDeposit
		tx.Status = TransactionStatusSuccess
		_, err = s.accounts.Credit(ctx, req.AccountID, req.Amount, req.Currency)
	default:
		tx.Type = TransactionTypeWithdraw
		tx.Status = TransactionStatusPending
		_, err = s.accounts.Debit(ctx, req.AccountID, req.Amount, req.Currency)
	}
	if err != nil {
		// Nothing was mutated, so a corrected retry with the same key must be allowed through.
		if releaseErr := s.guard.Release(ctx, key); releaseErr != nil {
			s.log.WithError(releaseErr).WithField("key", key).Warn("WalletService.intake.release")
		}
		return result, err
	}

	if _, err := s.transactions.Record(ctx, tx); err != nil {
		// The bus consumer records the transaction again, so this is not fatal.
		s.log.WithError(err).WithField("transactionID", tx.ID.String()).Error("WalletService.intake.record")
	}

	s.propagate(ctx, tx)

	message := notify.DepositSuccessful(tx.Amount, tx.Currency)
	if tx.Type == TransactionTypeWithdraw {
		message = notify.WithdrawalInitiated(tx.Amount, tx.Currency)
	}
	s.notifier.Notify(ctx, req.ContactRef, message)

	result.TransactionID = tx.ID
	result.Status = tx.Status
	return result, nil
}

// propagate publishes tx. When the bus refuses it the record goes to the fallback dispatcher,
// which delivers it to the same handler the bus consumer feeds.
func (s *WalletService) propagate(ctx context.Context, tx Transaction) {
	msg, err := EncodeTransaction(tx)
	if err != nil {
		s.log.WithError(err).Error("WalletService.propagate.encode")
		return
	}

	err = s.publisher.Publish(ctx, msg)
	if err == nil {
		return
	}

	s.log.WithError(err).WithFields(logrus.Fields{
		"transactionID": tx.ID.String(),
		"type":          tx.Type,
		"fallback":      s.fallback != nil,
	}).Error("WalletService.propagate.publishFailed")

	if s.fallback != nil {
		s.fallback.Dispatch(context.WithoutCancel(ctx), msg)
	}
}
