package service

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/wallet-server/internal/storage/sqlconfig"
)

// DefaultCurrency is used when a request does not name one.
const DefaultCurrency = "NGN"

// AmountScale is the number of decimal places the ledger stores, matching NUMERIC(19,4).
const AmountScale = 4

// ValidAmount reports whether amount is positive and representable in the ledger without
// rounding.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(AmountScale))
}

// Account represents a wallet account in the service layer.
type Account struct {
	ID        uuid.UUID
	OwnerID   string
	Currency  string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
}

// AccountCursor identifies a position in a paginated result set.
type AccountCursor struct {
	Position int
	Limit    int
}

func accountFromStorage(row *sqlconfig.Account) *Account {
	return &Account{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Currency:  row.Currency,
		Balance:   row.Balance,
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
	}
}
