package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/wallet-server/internal/notify"
	"github.com/carson-networks/wallet-server/internal/storage"
	"github.com/carson-networks/wallet-server/internal/storage/sqlconfig"
)

const (
	defaultAccountLimit = 20

	// conflictRetries bounds how often a balance change is re-read and re-applied after losing
	// a version race.
	conflictRetries = 10
)

// AccountService owns the ledger: account balances change only through Debit and Credit.
type AccountService struct {
	storage  *storage.Storage
	notifier notify.Notifier
	newRetry func() backoff.BackOff
}

// NewAccountService creates a new AccountService.
func NewAccountService(store *storage.Storage, notifier notify.Notifier) *AccountService {
	return &AccountService{
		storage:  store,
		notifier: notifier,
		newRetry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Millisecond
			b.MaxInterval = 50 * time.Millisecond
			b.MaxElapsedTime = 0
			return backoff.WithMaxRetries(b, conflictRetries)
		},
	}
}

// CreateAccount opens an empty account and greets the owner.
func (s *AccountService) CreateAccount(ctx context.Context, account Account) (uuid.UUID, error) {
	currency := account.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	id, err := s.storage.Accounts.Insert(ctx, &sqlconfig.AccountCreate{
		OwnerID:  account.OwnerID,
		Currency: currency,
		Balance:  decimal.Zero,
	})
	if err != nil {
		return uuid.Nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, account.OwnerID, notify.AccountCreated)
	}
	return id, nil
}

// GetAccount retrieves an account by ID.
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	row, err := s.storage.Accounts.FindByID(ctx, id)
	if errors.Is(err, sqlconfig.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return accountFromStorage(row), nil
}

// ListAccounts returns a page of accounts using cursor pagination.
func (s *AccountService) ListAccounts(ctx context.Context, ownerID *string, cursor *AccountCursor) ([]Account, *AccountCursor, error) {
	limit := defaultAccountLimit
	offset := 0
	if cursor != nil {
		limit = cursor.Limit
		offset = cursor.Position
	}

	filter := &sqlconfig.AccountFilter{
		OwnerID: ownerID,
		Limit:   limit,
		Offset:  offset,
	}

	var nextCursor *AccountCursor
	accounts, err := s.storage.Accounts.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	if len(accounts) == 0 {
		return nil, nil, nil
	}

	if len(accounts) > limit {
		accounts = accounts[:limit]
		nextCursor = &AccountCursor{
			Position: offset + limit,
			Limit:    limit,
		}
	}

	convertedAccounts := make([]Account, len(accounts))
	for i, account := range accounts {
		convertedAccounts[i] = *accountFromStorage(account)
	}

	return convertedAccounts, nextCursor, nil
}

// Debit removes amount from the account. It fails with ErrInsufficientFunds, without writing,
// when the balance is smaller than amount.
func (s *AccountService) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, currency string) (*Account, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	return s.applyDelta(ctx, id, amount.Neg(), currency)
}

// Credit adds amount to the account.
func (s *AccountService) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, currency string) (*Account, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	return s.applyDelta(ctx, id, amount, currency)
}

// Compensate returns a withdrawal's debited amount to its account.
func (s *AccountService) Compensate(ctx context.Context, tx Transaction) (*Account, error) {
	return s.Credit(ctx, tx.AccountID, tx.Amount, tx.Currency)
}

// applyDelta is a read-check-write loop: read balance and version, validate, then write
// conditioned on the version that was read. A lost race starts over from the read.
func (s *AccountService) applyDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal, currency string) (*Account, error) {
	var updated *Account

	operation := func() error {
		row, err := s.storage.Accounts.FindByID(ctx, id)
		if errors.Is(err, sqlconfig.ErrNotFound) {
			return backoff.Permanent(ErrAccountNotFound)
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		if currency != "" && row.Currency != currency {
			return backoff.Permanent(ErrCurrencyMismatch)
		}

		newBalance := row.Balance.Add(delta)
		if newBalance.IsNegative() {
			return backoff.Permanent(ErrInsufficientFunds)
		}

		err = s.storage.Accounts.UpdateBalance(ctx, id, newBalance, row.Version)
		if errors.Is(err, sqlconfig.ErrVersionConflict) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		updated = accountFromStorage(row)
		updated.Balance = newBalance
		updated.Version = row.Version + 1
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(s.newRetry(), ctx))
	if errors.Is(err, sqlconfig.ErrVersionConflict) {
		return nil, ErrConcurrentUpdate
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}
