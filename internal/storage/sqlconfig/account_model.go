package sqlconfig

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Account represents an account record.
type Account struct {
	ID        uuid.UUID       `db:"id"`
	OwnerID   string          `db:"owner_id"`
	Currency  string          `db:"currency"`
	Balance   decimal.Decimal `db:"balance"`
	Version   int64           `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
}

// AccountCreate is the input for creating a new account.
type AccountCreate struct {
	OwnerID  string
	Currency string
	Balance  decimal.Decimal
}

// AccountFilter specifies filters for listing accounts.
type AccountFilter struct {
	OwnerID *string
	Limit   int
	Offset  int
}

// IAccountTable defines the interface for account storage operations.
// UpdateBalance is a compare-and-set on Version: it writes only when the stored version still
// equals expectedVersion and bumps it by one, returning ErrVersionConflict otherwise.
//
//go:generate mockery --name IAccountTable --output mock_IAccountTable.go
type IAccountTable interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	Insert(ctx context.Context, create *AccountCreate) (uuid.UUID, error)
	List(ctx context.Context, filter *AccountFilter) ([]*Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, expectedVersion int64) error
}
