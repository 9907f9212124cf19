package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/carson-networks/wallet-server/internal/config"
	"github.com/carson-networks/wallet-server/internal/storage/sqlconfig"
)

// Storage holds the ledger and transaction log tables. They sit on separate handles so the
// transaction log can live on its own database.
type Storage struct {
	LedgerDB     *sql.DB
	LogDB        *sql.DB
	Accounts     sqlconfig.IAccountTable
	Transactions sqlconfig.ITransactionTable
}

func NewStorage(env *config.Config) (*Storage, error) {
	ledgerDB, err := sql.Open("postgres", env.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("storage: open ledger: %w", err)
	}

	logDB, err := sql.Open("postgres", env.TransactionLog.DSN())
	if err != nil {
		_ = ledgerDB.Close()
		return nil, fmt.Errorf("storage: open transaction log: %w", err)
	}

	return &Storage{
		LedgerDB:     ledgerDB,
		LogDB:        logDB,
		Accounts:     sqlconfig.NewAccountsTable(ledgerDB),
		Transactions: sqlconfig.NewTransactionsTable(logDB),
	}, nil
}

func (s *Storage) Close() error {
	var errs []error
	if s.LedgerDB != nil {
		errs = append(errs, s.LedgerDB.Close())
	}
	if s.LogDB != nil {
		errs = append(errs, s.LogDB.Close())
	}
	return errors.Join(errs...)
}
