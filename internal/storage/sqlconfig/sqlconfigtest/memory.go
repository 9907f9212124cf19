// Package sqlconfigtest holds in-memory implementations of the sqlconfig tables with the same
// version and terminal-status rules as the Postgres ones.
package sqlconfigtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/wallet-server/internal/storage/sqlconfig"
)

type Accounts struct {
	mu   sync.Mutex
	rows map[uuid.UUID]sqlconfig.Account

	// UpdateHook, when set, runs before every balance write and aborts it on error.
	UpdateHook func(id uuid.UUID, balance decimal.Decimal) error
}

var _ sqlconfig.IAccountTable = (*Accounts)(nil)

func NewAccounts() *Accounts {
	return &Accounts{rows: make(map[uuid.UUID]sqlconfig.Account)}
}

// Seed stores an account with the given balance and returns its ID.
func (a *Accounts) Seed(currency string, balance decimal.Decimal) uuid.UUID {
	id, _ := a.Insert(context.Background(), &sqlconfig.AccountCreate{
		OwnerID:  "owner-" + currency,
		Currency: currency,
		Balance:  balance,
	})
	return id
}

// Balance returns the stored balance, or zero for an unknown account.
func (a *Accounts) Balance(id uuid.UUID) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rows[id].Balance
}

func (a *Accounts) FindByID(_ context.Context, id uuid.UUID) (*sqlconfig.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.rows[id]
	if !ok {
		return nil, sqlconfig.ErrNotFound
	}
	return &row, nil
}

func (a *Accounts) Insert(_ context.Context, create *sqlconfig.AccountCreate) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows[id] = sqlconfig.Account{
		ID:        id,
		OwnerID:   create.OwnerID,
		Currency:  create.Currency,
		Balance:   create.Balance,
		CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

func (a *Accounts) List(_ context.Context, filter *sqlconfig.AccountFilter) ([]*sqlconfig.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]*sqlconfig.Account, 0, len(a.rows))
	for _, row := range a.rows {
		if filter != nil && filter.OwnerID != nil && row.OwnerID != *filter.OwnerID {
			continue
		}
		result = append(result, &row)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if filter != nil {
		result = page(result, filter.Offset, filter.Limit)
	}
	return result, nil
}

func (a *Accounts) UpdateBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal, expectedVersion int64) error {
	if a.UpdateHook != nil {
		if err := a.UpdateHook(id, balance); err != nil {
			return err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	row, ok := a.rows[id]
	if !ok || row.Version != expectedVersion {
		return sqlconfig.ErrVersionConflict
	}
	row.Balance = balance
	row.Version++
	a.rows[id] = row
	return nil
}

type Transactions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]sqlconfig.Transaction
}

var _ sqlconfig.ITransactionTable = (*Transactions)(nil)

func NewTransactions() *Transactions {
	return &Transactions{rows: make(map[uuid.UUID]sqlconfig.Transaction)}
}

func (t *Transactions) FindByID(_ context.Context, id uuid.UUID) (*sqlconfig.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, sqlconfig.ErrNotFound
	}
	return &row, nil
}

func (t *Transactions) Upsert(_ context.Context, tx *sqlconfig.Transaction) (*sqlconfig.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().UTC()

	stored, ok := t.rows[tx.ID]
	switch {
	case !ok:
		stored = *tx
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
	case stored.Status == sqlconfig.StatusPending:
		stored.Status = tx.Status
		stored.ProviderRef = tx.ProviderRef
		stored.Meta = tx.Meta
		stored.UpdatedAt = now
	}
	t.rows[tx.ID] = stored
	return &stored, nil
}

func (t *Transactions) List(_ context.Context, filter *sqlconfig.TransactionFilter) ([]*sqlconfig.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]*sqlconfig.Transaction, 0, len(t.rows))
	for _, row := range t.rows {
		if filter != nil {
			if filter.AccountID != nil && row.AccountID != *filter.AccountID {
				continue
			}
			if filter.Status != nil && row.Status != *filter.Status {
				continue
			}
			if filter.MaxCreationTime != nil && row.CreatedAt.After(*filter.MaxCreationTime) {
				continue
			}
		}
		result = append(result, &row)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter != nil {
		result = page(result, filter.Offset, filter.Limit)
	}
	return result, nil
}

// page mirrors the SQL tables: offset rows skipped, limit+1 rows returned so callers can
// detect a following page.
func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit+1 {
		rows = rows[:limit+1]
	}
	return rows
}
