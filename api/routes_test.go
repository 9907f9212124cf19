package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/wallet-server/internal/bus"
	"github.com/carson-networks/wallet-server/internal/gateway"
	"github.com/carson-networks/wallet-server/internal/notify/notifytest"
	"github.com/carson-networks/wallet-server/internal/operator"
	"github.com/carson-networks/wallet-server/internal/saga"
	"github.com/carson-networks/wallet-server/internal/service"
	"github.com/carson-networks/wallet-server/internal/storage"
	"github.com/carson-networks/wallet-server/internal/storage/idempotency"
	"github.com/carson-networks/wallet-server/internal/storage/sqlconfig/sqlconfigtest"
)

const msisdn = "+2348012345678"

type testServer struct {
	url         string
	notifier    *notifytest.Recorder
	coordinator *saga.Coordinator
}

// refusingPublisher stands in for a broker that is down.
type refusingPublisher struct{}

func (refusingPublisher) Publish(context.Context, bus.Message) error {
	return errors.New("broker unavailable")
}

func (refusingPublisher) Close() error { return nil }

// newTestServer wires the whole service on in-memory storage, bus and idempotency guard.
func newTestServer(t *testing.T, payout gateway.Gateway) *testServer {
	t.Helper()
	return newTestServerWithPublisher(t, payout, nil)
}

// newTestServerWithPublisher publishes intake records through publisher instead of the
// in-memory bus when it is not nil.
func newTestServerWithPublisher(t *testing.T, payout gateway.Gateway, publisher bus.Publisher) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.Out = io.Discard

	store := &storage.Storage{
		Accounts:     sqlconfigtest.NewAccounts(),
		Transactions: sqlconfigtest.NewTransactions(),
	}
	recorder := &notifytest.Recorder{}
	svc := service.NewService(store, recorder)

	coordinator := saga.NewCoordinator(saga.Config{
		Logger:       logger,
		Gateway:      payout,
		Ledger:       svc.Account,
		Transactions: svc.Transaction,
		Notifier:     recorder,
		Options:      saga.Options{Backoff: func(int) time.Duration { return time.Millisecond }},
	})

	delegator := operator.NewOperatorDelegator(logger, 2)
	delegator.Start()
	t.Cleanup(delegator.Stop)

	memoryBus := bus.NewMemoryBus(logger, 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = memoryBus.Run(ctx, coordinator) }()
	if publisher == nil {
		publisher = memoryBus
	}

	svc.Wallet = service.NewWalletService(service.WalletConfig{
		Logger:       logger,
		Accounts:     svc.Account,
		Transactions: svc.Transaction,
		Guard:        idempotency.NewMemoryGuard(),
		Publisher:    publisher,
		Fallback:     operator.NewDispatcher(ctx, logger, delegator, coordinator),
		Notifier:     recorder,
	})

	t.Cleanup(func() {
		waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer waitCancel()
		_ = coordinator.Wait(waitCtx)
	})

	rest := &Rest{Logger: logger, Service: svc, Operator: delegator}
	server := httptest.NewServer(rest.Handler())
	t.Cleanup(server.Close)

	return &testServer{url: server.URL, notifier: recorder, coordinator: coordinator}
}

func (s *testServer) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) fundedAccount(t *testing.T, amount string) string {
	t.Helper()
	var created struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/account", map[string]string{"ownerId": msisdn}, &created))
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/wallet/deposit", map[string]string{
		"accountId": created.ID,
		"amount":    amount,
	}, nil))
	return created.ID
}

func (s *testServer) balance(t *testing.T, accountID string) string {
	t.Helper()
	var acc struct {
		Balance string `json:"balance"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/account/"+accountID, nil, &acc))
	return acc.Balance
}

type intakeResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Duplicate     bool   `json:"duplicate"`
}

func (s *testServer) withdraw(t *testing.T, accountID, amount, key string) (int, intakeResponse) {
	t.Helper()
	var resp intakeResponse
	code := s.do(t, http.MethodPost, "/v1/wallet/withdraw", map[string]string{
		"accountId":      accountID,
		"amount":         amount,
		"idempotencyKey": key,
		"msisdn":         msisdn,
	}, &resp)
	return code, resp
}

// settled polls the transaction until it leaves PENDING.
func (s *testServer) settled(t *testing.T, transactionID string) map[string]any {
	t.Helper()
	var tx map[string]any
	require.Eventually(t, func() bool {
		resp, err := http.Get(s.url + "/v1/transaction/" + transactionID)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		current := map[string]any{}
		if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&current) != nil {
			return false
		}
		tx = current
		return tx["status"] != "PENDING"
	}, 5*time.Second, 5*time.Millisecond)
	return tx
}

func TestWithdrawal_PayoutFailsAndFundsReturn(t *testing.T) {
	s := newTestServer(t, gateway.GatewayFunc(func(context.Context, gateway.TransferRequest) gateway.Result {
		return gateway.Result{Error: "provider_error"}
	}))
	accountID := s.fundedAccount(t, "5000")

	code, resp := s.withdraw(t, accountID, "2000", "w-1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accepted", resp.Status)

	tx := s.settled(t, resp.TransactionID)
	assert.Equal(t, "FAILED", tx["status"])
	assert.Equal(t, "5000", s.balance(t, accountID))

	var sent []string
	for _, m := range s.notifier.Messages() {
		sent = append(sent, m.Message)
	}
	assert.Contains(t, sent, "Withdrawal initiated: 2000 NGN")
	assert.Contains(t, sent, "Withdrawal failed and funds have been returned: 2000 NGN")
}

func TestWithdrawal_PayoutSucceeds(t *testing.T) {
	s := newTestServer(t, gateway.GatewayFunc(func(context.Context, gateway.TransferRequest) gateway.Result {
		return gateway.Result{Success: true, ProviderRef: "FLW-7"}
	}))
	accountID := s.fundedAccount(t, "5000")

	_, resp := s.withdraw(t, accountID, "2000", "w-1")

	tx := s.settled(t, resp.TransactionID)
	assert.Equal(t, "SUCCESS", tx["status"])
	assert.Equal(t, "FLW-7", tx["providerRef"])
	assert.Equal(t, "3000", s.balance(t, accountID))
}

func TestWithdrawal_BrokerDownFallsBackToSaga(t *testing.T) {
	s := newTestServerWithPublisher(t, gateway.GatewayFunc(func(context.Context, gateway.TransferRequest) gateway.Result {
		return gateway.Result{Error: "provider_error"}
	}), refusingPublisher{})
	accountID := s.fundedAccount(t, "5000")

	code, resp := s.withdraw(t, accountID, "2000", "w-1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accepted", resp.Status)

	tx := s.settled(t, resp.TransactionID)
	assert.Equal(t, "FAILED", tx["status"])
	assert.Equal(t, "provider_error", tx["meta"])
	assert.Equal(t, "5000", s.balance(t, accountID))
}

func TestWithdrawal_BrokerDownPayoutSucceeds(t *testing.T) {
	s := newTestServerWithPublisher(t, gateway.GatewayFunc(func(context.Context, gateway.TransferRequest) gateway.Result {
		return gateway.Result{Success: true, ProviderRef: "FLW-9"}
	}), refusingPublisher{})
	accountID := s.fundedAccount(t, "5000")

	_, resp := s.withdraw(t, accountID, "2000", "w-1")

	tx := s.settled(t, resp.TransactionID)
	assert.Equal(t, "SUCCESS", tx["status"])
	assert.Equal(t, "FLW-9", tx["providerRef"])
	assert.Equal(t, "3000", s.balance(t, accountID))
}

func TestWithdrawal_RepeatedKeyIsDuplicate(t *testing.T) {
	s := newTestServer(t, gateway.GatewayFunc(func(context.Context, gateway.TransferRequest) gateway.Result {
		return gateway.Result{Success: true, ProviderRef: "FLW-7"}
	}))
	accountID := s.fundedAccount(t, "5000")

	_, first := s.withdraw(t, accountID, "2000", "w-1")
	code, second := s.withdraw(t, accountID, "2000", "w-1")

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, second.Duplicate)
	s.settled(t, first.TransactionID)
	assert.Equal(t, "3000", s.balance(t, accountID))
}

func TestWithdrawal_InsufficientFunds(t *testing.T) {
	s := newTestServer(t, gateway.GatewayFunc(func(context.Context, gateway.TransferRequest) gateway.Result {
		t.Error("no payout expected")
		return gateway.Result{}
	}))
	accountID := s.fundedAccount(t, "1000")

	code, _ := s.withdraw(t, accountID, "2000", "w-1")

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "1000", s.balance(t, accountID))
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, gateway.GatewayFunc(func(context.Context, gateway.TransferRequest) gateway.Result {
		return gateway.Result{}
	}))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/status", nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/status", nil, nil))
}
