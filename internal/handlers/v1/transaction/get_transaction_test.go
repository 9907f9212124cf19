package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/carson-networks/wallet-server/internal/service"
)

type mockTransactionGetter struct {
	mock.Mock
}

func (m *mockTransactionGetter) GetTransaction(ctx context.Context, id uuid.UUID) (service.Transaction, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.Transaction), args.Error(1)
}

func newGetTestAPI(t *testing.T, svc transactionGetter) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	NewGetTransactionHandler(svc).Register(api)
	return api
}

func TestHTTP_GetTransaction_FailedWithdrawal(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	mockSvc := new(mockTransactionGetter)
	mockSvc.On("GetTransaction", mock.Anything, id).Return(service.Transaction{
		ID:        id,
		AccountID: uuid.Must(uuid.NewV4()),
		Type:      service.TransactionTypeWithdraw,
		Amount:    decimal.RequireFromString("2000"),
		Currency:  "NGN",
		Status:    service.TransactionStatusFailed,
		Meta:      "provider_error",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}, nil)

	resp := newGetTestAPI(t, mockSvc).Get("/v1/transaction/" + id.String())

	assert.Equal(t, http.StatusOK, resp.Code)
	var body Transaction
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "FAILED", body.Status)
	assert.Equal(t, "WITHDRAW", body.Type)
	assert.Equal(t, "2000", body.Amount)
	assert.Equal(t, "provider_error", body.Meta)
	assert.Equal(t, "2025-06-01T12:00:00Z", body.CreatedAt)
	mockSvc.AssertExpectations(t)
}

func TestHTTP_GetTransaction_NotFound(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	mockSvc := new(mockTransactionGetter)
	mockSvc.On("GetTransaction", mock.Anything, id).Return(service.Transaction{}, service.ErrTransactionNotFound)

	resp := newGetTestAPI(t, mockSvc).Get("/v1/transaction/" + id.String())

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHTTP_GetTransaction_ServiceError(t *testing.T) {
	mockSvc := new(mockTransactionGetter)
	mockSvc.On("GetTransaction", mock.Anything, mock.Anything).Return(service.Transaction{}, errors.New("database unavailable"))

	resp := newGetTestAPI(t, mockSvc).Get("/v1/transaction/" + uuid.Must(uuid.NewV4()).String())

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestHTTP_GetTransaction_InvalidID(t *testing.T) {
	mockSvc := new(mockTransactionGetter)

	resp := newGetTestAPI(t, mockSvc).Get("/v1/transaction/123")

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	mockSvc.AssertNotCalled(t, "GetTransaction")
}
