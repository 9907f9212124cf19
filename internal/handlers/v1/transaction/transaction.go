package transaction

import (
	"time"

	"github.com/carson-networks/wallet-server/internal/service"
)

// Transaction is the API response model for a transaction.
// It is used only for responses, not for request bodies.
type Transaction struct {
	ID          string `json:"id" doc:"Transaction UUID"`
	AccountID   string `json:"accountId" doc:"Account UUID"`
	Type        string `json:"type" enum:"DEPOSIT,WITHDRAW" doc:"Transaction type"`
	Amount      string `json:"amount" doc:"Decimal amount"`
	Currency    string `json:"currency" doc:"ISO 4217 currency code"`
	Status      string `json:"status" enum:"PENDING,SUCCESS,FAILED" doc:"Settlement status"`
	ProviderRef string `json:"providerRef,omitempty" doc:"Payment provider reference of a paid withdrawal"`
	Meta        string `json:"meta,omitempty" doc:"Failure reason of a failed withdrawal"`
	CreatedAt   string `json:"createdAt" doc:"RFC3339 creation time"`
}

func toResponse(tx service.Transaction) Transaction {
	return Transaction{
		ID:          tx.ID.String(),
		AccountID:   tx.AccountID.String(),
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		Currency:    tx.Currency,
		Status:      string(tx.Status),
		ProviderRef: tx.ProviderRef,
		Meta:        tx.Meta,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
}
