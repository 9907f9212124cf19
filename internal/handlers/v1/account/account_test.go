package account

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

	"github.com/carson-networks/wallet-server/internal/operator/actions"
	"github.com/carson-networks/wallet-server/internal/service"
)

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) CreateAccount(ctx context.Context, account service.Account) (uuid.UUID, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockAccountService) GetAccount(ctx context.Context, id uuid.UUID) (*service.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*service.Account)
	return acc, args.Error(1)
}

func (m *mockAccountService) ListAccounts(ctx context.Context, ownerID *string, cursor *service.AccountCursor) ([]service.Account, *service.AccountCursor, error) {
	args := m.Called(ctx, ownerID, cursor)
	accounts, _ := args.Get(0).([]service.Account)
	next, _ := args.Get(1).(*service.AccountCursor)
	return accounts, next, args.Error(2)
}

// inlineOperator performs actions on the calling goroutine.
type inlineOperator struct{}

func (inlineOperator) Process(ctx context.Context, action actions.IAction) error {
	return action.Perform(ctx)
}

func newTestAPI(t *testing.T, svc *mockAccountService) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	NewCreateAccountHandler(svc, inlineOperator{}).Register(api)
	NewGetAccountHandler(svc).Register(api)
	NewListAccountsHandler(svc).Register(api)
	return api
}

// -- create --

func TestHTTP_CreateAccount_Success(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	mockSvc := new(mockAccountService)
	mockSvc.On("CreateAccount", mock.Anything, service.Account{OwnerID: "+2348000000000", Currency: "NGN"}).
		Return(id, nil)

	resp := newTestAPI(t, mockSvc).Post("/v1/account", CreateAccountBody{OwnerID: "+2348000000000", Currency: "NGN"})

	assert.Equal(t, http.StatusCreated, resp.Code)
	var body CreateAccountResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, id.String(), body.ID)
	mockSvc.AssertExpectations(t)
}

func TestHTTP_CreateAccount_MissingOwner(t *testing.T) {
	mockSvc := new(mockAccountService)

	resp := newTestAPI(t, mockSvc).Post("/v1/account", CreateAccountBody{})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	mockSvc.AssertNotCalled(t, "CreateAccount")
}

func TestHTTP_CreateAccount_BadCurrency(t *testing.T) {
	mockSvc := new(mockAccountService)

	resp := newTestAPI(t, mockSvc).Post("/v1/account", CreateAccountBody{OwnerID: "o", Currency: "naira"})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	mockSvc.AssertNotCalled(t, "CreateAccount")
}

func TestHTTP_CreateAccount_ServiceError(t *testing.T) {
	mockSvc := new(mockAccountService)
	mockSvc.On("CreateAccount", mock.Anything, mock.Anything).Return(uuid.Nil, errors.New("database unavailable"))

	resp := newTestAPI(t, mockSvc).Post("/v1/account", CreateAccountBody{OwnerID: "o"})

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

// -- get --

func TestHTTP_GetAccount_Success(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mockSvc := new(mockAccountService)
	mockSvc.On("GetAccount", mock.Anything, id).Return(&service.Account{
		ID:        id,
		OwnerID:   "+2348000000000",
		Currency:  "NGN",
		Balance:   decimal.RequireFromString("3000.50"),
		CreatedAt: created,
	}, nil)

	resp := newTestAPI(t, mockSvc).Get("/v1/account/" + id.String())

	assert.Equal(t, http.StatusOK, resp.Code)
	var body Account
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, id.String(), body.ID)
	assert.Equal(t, "3000.5", body.Balance)
	assert.Equal(t, "NGN", body.Currency)
	assert.Equal(t, created.Format(time.RFC3339), body.CreatedAt)
}

func TestHTTP_GetAccount_NotFound(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	mockSvc := new(mockAccountService)
	mockSvc.On("GetAccount", mock.Anything, id).Return(nil, service.ErrAccountNotFound)

	resp := newTestAPI(t, mockSvc).Get("/v1/account/" + id.String())

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHTTP_GetAccount_InvalidID(t *testing.T) {
	mockSvc := new(mockAccountService)

	resp := newTestAPI(t, mockSvc).Get("/v1/account/not-a-uuid")

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	mockSvc.AssertNotCalled(t, "GetAccount")
}

// -- list --

func TestHTTP_ListAccounts_ByOwner(t *testing.T) {
	owner := "+2348000000000"
	mockSvc := new(mockAccountService)
	mockSvc.On("ListAccounts", mock.Anything, mock.MatchedBy(func(o *string) bool {
		return o != nil && *o == owner
	}), (*service.AccountCursor)(nil)).Return([]service.Account{
		{ID: uuid.Must(uuid.NewV4()), OwnerID: owner, Currency: "NGN", Balance: decimal.Zero},
	}, (*service.AccountCursor)(nil), nil)

	resp := newTestAPI(t, mockSvc).Get("/v1/accounts?ownerId=%2B2348000000000")

	assert.Equal(t, http.StatusOK, resp.Code)
	var body ListAccountsResponseBody
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Accounts, 1)
	assert.Equal(t, "0", body.Accounts[0].Balance)
	assert.Nil(t, body.NextCursor)
	mockSvc.AssertExpectations(t)
}

func TestHTTP_ListAccounts_NextPage(t *testing.T) {
	mockSvc := new(mockAccountService)
	mockSvc.On("ListAccounts", mock.Anything, (*string)(nil), &service.AccountCursor{Position: 0, Limit: 1}).
		Return([]service.Account{{ID: uuid.Must(uuid.NewV4())}}, &service.AccountCursor{Position: 1, Limit: 1}, nil)

	resp := newTestAPI(t, mockSvc).Get("/v1/accounts?limit=1")

	assert.Equal(t, http.StatusOK, resp.Code)
	var body ListAccountsResponseBody
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, &ListAccountsCursor{Position: 1, Limit: 1}, body.NextCursor)
	mockSvc.AssertExpectations(t)
}

func TestHTTP_ListAccounts_ServiceError(t *testing.T) {
	mockSvc := new(mockAccountService)
	mockSvc.On("ListAccounts", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil, errors.New("database unavailable"))

	resp := newTestAPI(t, mockSvc).Get("/v1/accounts")

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
