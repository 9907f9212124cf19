// Package notify sends best-effort SMS notifications to subscribers.
package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Notifier delivers a message to a destination. Failures are logged by the implementation and
// never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, destination, message string)
}

func DepositSuccessful(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("Deposit successful: %s %s", amount.String(), currency)
}

func WithdrawalInitiated(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("Withdrawal initiated: %s %s", amount.String(), currency)
}

func WithdrawalSuccessful(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("Withdrawal successful: %s %s", amount.String(), currency)
}

func WithdrawalRefunded(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("Withdrawal failed and funds have been returned: %s %s", amount.String(), currency)
}

const AccountCreated = "Welcome to USSD Wallet. Your account has been created."
