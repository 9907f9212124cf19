package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}

func testRequest() TransferRequest {
	return TransferRequest{
		Destination: "+2348012345678",
		BankCode:    "MPS",
		Amount:      decimal.RequireFromString("2000"),
		Currency:    "NGN",
		Narration:   "USSD withdrawal 1",
		Reference:   "wd-1",
	}
}

func newGateway(t *testing.T, handler http.HandlerFunc) *FlutterwaveGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewFlutterwaveGateway(quietLogger(), server.URL+"/", "FLWSECK-test", 2*time.Second)
}

func TestFlutterwave_Success(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfers", r.URL.Path)
		assert.Equal(t, "Bearer FLWSECK-test", r.Header.Get("Authorization"))

		body := map[string]string{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MPS", body["account_bank"])
		assert.Equal(t, "+2348012345678", body["account_number"])
		assert.Equal(t, "2000", body["amount"])
		assert.Equal(t, "NGN", body["currency"])
		assert.Equal(t, "USSD withdrawal 1", body["narration"])
		assert.Equal(t, "wd-1", body["reference"])

		_, _ = w.Write([]byte(`{"status":"success","message":"Transfer Queued Successfully","data":{"id":190626,"reference":"FLW-wd-1"}}`))
	})

	result := g.InitiateTransfer(context.Background(), testRequest())
	assert.True(t, result.Success)
	assert.Equal(t, "FLW-wd-1", result.ProviderRef)
	assert.Empty(t, result.Error)
}

func TestFlutterwave_FallsBackToID(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":190626}}`))
	})

	result := g.InitiateTransfer(context.Background(), testRequest())
	assert.True(t, result.Success)
	assert.Equal(t, "190626", result.ProviderRef)
}

func TestFlutterwave_ErrorStatus(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Insufficient balance in wallet"}`))
	})

	result := g.InitiateTransfer(context.Background(), testRequest())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "Insufficient balance in wallet")
}

func TestFlutterwave_OKButNotSuccess(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"pending"}`))
	})

	result := g.InitiateTransfer(context.Background(), testRequest())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "pending")
}

func TestFlutterwave_GarbageBody(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	result := g.InitiateTransfer(context.Background(), testRequest())
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestFlutterwave_Unreachable(t *testing.T) {
	g := NewFlutterwaveGateway(quietLogger(), "http://127.0.0.1:1", "", 200*time.Millisecond)

	result := g.InitiateTransfer(context.Background(), testRequest())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "transport")
}
