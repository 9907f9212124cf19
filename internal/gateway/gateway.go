// Package gateway initiates payouts with the external payment provider.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	Destination string
	BankCode    string
	Amount      decimal.Decimal
	Currency    string
	Narration   string
	// Reference is stable across retries of the same withdrawal so the provider can
	// deduplicate.
	Reference string
}

// Result is the normalized outcome of one transfer attempt. Error is empty on success.
type Result struct {
	Success     bool
	ProviderRef string
	Error       string
}

// Gateway performs one payout attempt. Implementations never return transport errors
// separately; every failure is folded into a non-successful Result.
type Gateway interface {
	InitiateTransfer(ctx context.Context, req TransferRequest) Result
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, req TransferRequest) Result

func (f GatewayFunc) InitiateTransfer(ctx context.Context, req TransferRequest) Result {
	return f(ctx, req)
}
