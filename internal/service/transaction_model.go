package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/wallet-server/internal/bus"
	"github.com/carson-networks/wallet-server/internal/storage/sqlconfig"
)

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = sqlconfig.StatusPending
	TransactionStatusSuccess TransactionStatus = sqlconfig.StatusSuccess
	TransactionStatusFailed  TransactionStatus = sqlconfig.StatusFailed
)

// IsTerminal reports whether the status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// Transaction is the record that travels over the bus and is kept in the transaction log.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	AccountID   uuid.UUID         `json:"accountId"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Status      TransactionStatus `json:"status"`
	ProviderRef string            `json:"providerRef,omitempty"`
	Meta        string            `json:"meta,omitempty"`
	ContactRef  string            `json:"contactRef,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// TransactionCursor identifies a position in a paginated result set
// and carries the limit and maxCreationTime so subsequent pages are consistent.
type TransactionCursor struct {
	Position        int
	Limit           int
	MaxCreationTime time.Time
}

// EncodeTransaction builds the bus message for tx, keyed by its id.
func EncodeTransaction(tx Transaction) (bus.Message, error) {
	value, err := json.Marshal(tx)
	if err != nil {
		return bus.Message{}, fmt.Errorf("encode transaction %s: %w", tx.ID, err)
	}
	return bus.Message{Key: []byte(tx.ID.String()), Value: value}, nil
}

// DecodeTransaction parses a bus message produced by EncodeTransaction.
func DecodeTransaction(msg bus.Message) (Transaction, error) {
	tx := Transaction{}
	if err := json.Unmarshal(msg.Value, &tx); err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	if tx.ID == uuid.Nil {
		return Transaction{}, fmt.Errorf("decode transaction: missing id")
	}
	return tx, nil
}

func transactionToStorage(tx Transaction) *sqlconfig.Transaction {
	return &sqlconfig.Transaction{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Status:      string(tx.Status),
		ProviderRef: tx.ProviderRef,
		Meta:        tx.Meta,
		ContactRef:  tx.ContactRef,
		CreatedAt:   tx.CreatedAt,
	}
}

func transactionFromStorage(row *sqlconfig.Transaction) Transaction {
	return Transaction{
		ID:          row.ID,
		AccountID:   row.AccountID,
		Type:        TransactionType(row.Type),
		Amount:      row.Amount,
		Currency:    row.Currency,
		Status:      TransactionStatus(row.Status),
		ProviderRef: row.ProviderRef,
		Meta:        row.Meta,
		ContactRef:  row.ContactRef,
		CreatedAt:   row.CreatedAt,
	}
}
