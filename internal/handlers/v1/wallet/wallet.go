package wallet

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/wallet-server/internal/logging"
	"github.com/carson-networks/wallet-server/internal/service"
)

// IntakeBody is the request body shared by deposits and withdrawals.
type IntakeBody struct {
	AccountID      string `json:"accountId" format:"uuid" doc:"Account UUID"`
	Amount         string `json:"amount" minLength:"1" doc:"Positive decimal amount with at most 4 decimal places, e.g. '2000' or '15.50'"`
	Currency       string `json:"currency,omitempty" pattern:"^[A-Z]{3}$" doc:"ISO 4217 currency code, defaults to NGN"`
	IdempotencyKey string `json:"idempotencyKey,omitempty" maxLength:"128" doc:"Client key making the request safe to repeat; generated when absent"`
	MSISDN         string `json:"msisdn,omitempty" doc:"Subscriber phone number for the SMS and the payout"`
}

type IntakeInput struct {
	Body IntakeBody
}

// IntakeResponse acknowledges a deposit or withdrawal. A withdrawal is PENDING until its
// payout settles; follow it with GET /v1/transaction/{transactionId}.
type IntakeResponse struct {
	Status         string `json:"status" doc:"'accepted', or 'duplicate' when the idempotency key was already used"`
	IdempotencyKey string `json:"idempotencyKey" doc:"Key the request was processed under"`
	TransactionID  string `json:"transactionId,omitempty" doc:"Transaction UUID, absent for duplicates"`
	State          string `json:"transactionStatus,omitempty" doc:"PENDING, SUCCESS or FAILED"`
	Duplicate      bool   `json:"duplicate" doc:"True when nothing was done because the key was already used"`
}

type IntakeOutput struct {
	Body IntakeResponse
}

type walletService interface {
	Deposit(ctx context.Context, req service.IntakeRequest) (service.IntakeResult, error)
	Withdraw(ctx context.Context, req service.IntakeRequest) (service.IntakeResult, error)
}

// Handler serves POST /v1/wallet/deposit and POST /v1/wallet/withdraw.
type Handler struct {
	WalletService walletService
}

func NewHandler(svc walletService) *Handler {
	return &Handler{WalletService: svc}
}

func (h *Handler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "deposit",
		Method:      http.MethodPost,
		Path:        "/v1/wallet/deposit",
		Summary:     "Deposit funds",
		Description: "Credits the account. Repeating a request with the same idempotency key has no further effect.",
		Tags:        []string{"Wallet"},
	}, func(ctx context.Context, input *IntakeInput) (*IntakeOutput, error) {
		return h.handle(ctx, input, "deposit", h.WalletService.Deposit)
	})

	huma.Register(api, huma.Operation{
		OperationID: "withdraw",
		Method:      http.MethodPost,
		Path:        "/v1/wallet/withdraw",
		Summary:     "Withdraw funds",
		Description: "Debits the account and starts the payout. The withdrawal stays PENDING until the payout succeeds, or fails and the funds are returned.",
		Tags:        []string{"Wallet"},
	}, func(ctx context.Context, input *IntakeInput) (*IntakeOutput, error) {
		return h.handle(ctx, input, "withdraw", h.WalletService.Withdraw)
	})
}

func parseIntakeInput(input *IntakeInput) (service.IntakeRequest, error) {
	accountID, err := uuid.FromString(input.Body.AccountID)
	if err != nil {
		return service.IntakeRequest{}, huma.NewError(http.StatusBadRequest, "invalid accountId", err)
	}

	amount, err := decimal.NewFromString(input.Body.Amount)
	if err != nil {
		return service.IntakeRequest{}, huma.NewError(http.StatusBadRequest, "invalid amount", err)
	}
	if !service.ValidAmount(amount) {
		return service.IntakeRequest{}, huma.NewError(http.StatusBadRequest, service.ErrInvalidAmount.Error())
	}

	return service.IntakeRequest{
		AccountID:      accountID,
		Amount:         amount,
		Currency:       input.Body.Currency,
		IdempotencyKey: input.Body.IdempotencyKey,
		ContactRef:     input.Body.MSISDN,
	}, nil
}

func (h *Handler) handle(
	ctx context.Context,
	input *IntakeInput,
	operation string,
	intake func(context.Context, service.IntakeRequest) (service.IntakeResult, error),
) (*IntakeOutput, error) {
	logData := logging.GetLogData(ctx)

	req, err := parseIntakeInput(input)
	if err != nil {
		return nil, err
	}

	var stopTimer func()
	if logData != nil {
		logData.AddData("accountID", req.AccountID.String())
		stopTimer = logData.AddTiming(operation + "Ms")
	}
	result, err := intake(ctx, req)
	if stopTimer != nil {
		stopTimer()
	}
	if err != nil {
		return nil, toHTTPError(operation, err)
	}

	if logData != nil {
		logData.AddData("idempotencyKey", result.IdempotencyKey)
		logData.AddData("duplicate", result.Duplicate)
	}

	resp := IntakeResponse{
		Status:         "accepted",
		IdempotencyKey: result.IdempotencyKey,
		Duplicate:      result.Duplicate,
	}
	if result.Duplicate {
		resp.Status = "duplicate"
	} else {
		resp.TransactionID = result.TransactionID.String()
		resp.State = string(result.Status)
	}
	return &IntakeOutput{Body: resp}, nil
}

func toHTTPError(operation string, err error) error {
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		return huma.NewError(http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, service.ErrAccountNotFound):
		return huma.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, service.ErrInvalidAmount):
		return huma.NewError(http.StatusBadRequest, service.ErrInvalidAmount.Error())
	case errors.Is(err, service.ErrCurrencyMismatch):
		return huma.NewError(http.StatusBadRequest, "currency does not match the account")
	case errors.Is(err, service.ErrConcurrentUpdate):
		return huma.NewError(http.StatusConflict, "account is busy, retry with the same idempotency key")
	default:
		return huma.NewError(http.StatusInternalServerError, operation+" failed", err)
	}
}
