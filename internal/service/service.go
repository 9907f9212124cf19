package service

import (
	"github.com/carson-networks/wallet-server/internal/notify"
	"github.com/carson-networks/wallet-server/internal/storage"
)

// Service holds all business logic services.
type Service struct {
	Transaction *TransactionService
	Account     *AccountService
	Wallet      *WalletService
}

// NewService creates the ledger and transaction log services. Wallet is attached once the
// saga coordinator and fallback dispatcher exist, since those depend on the other two.
func NewService(store *storage.Storage, notifier notify.Notifier) *Service {
	return &Service{
		Transaction: NewTransactionService(store),
		Account:     NewAccountService(store, notifier),
	}
}
