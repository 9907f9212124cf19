package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const flutterwaveSuccess = "success"

type FlutterwaveGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
	log       *logrus.Logger
}

var _ Gateway = (*FlutterwaveGateway)(nil)

func NewFlutterwaveGateway(log *logrus.Logger, baseURL, secretKey string, timeout time.Duration) *FlutterwaveGateway {
	return &FlutterwaveGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}
}

type flutterwaveTransferBody struct {
	AccountBank   string `json:"account_bank"`
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Narration     string `json:"narration"`
	Reference     string `json:"reference"`
}

type flutterwaveResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
	} `json:"data"`
}

func (g *FlutterwaveGateway) InitiateTransfer(ctx context.Context, req TransferRequest) Result {
	payload, err := json.Marshal(flutterwaveTransferBody{
		AccountBank:   req.BankCode,
		AccountNumber: req.Destination,
		Amount:        req.Amount.String(),
		Currency:      req.Currency,
		Narration:     req.Narration,
		Reference:     req.Reference,
	})
	if err != nil {
		return failure(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transfers", bytes.NewReader(payload))
	if err != nil {
		return failure(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.secretKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.log.WithError(err).WithField("reference", req.Reference).Warn("FlutterwaveGateway.InitiateTransfer.transport")
		return failure(fmt.Errorf("transport: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failure(fmt.Errorf("read response: %w", err))
	}

	g.log.WithFields(logrus.Fields{
		"reference":  req.Reference,
		"httpStatus": resp.StatusCode,
	}).Info("FlutterwaveGateway.InitiateTransfer.response")

	parsed := flutterwaveResponse{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return failure(fmt.Errorf("http %d: decode response: %w", resp.StatusCode, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || parsed.Status != flutterwaveSuccess {
		message := parsed.Message
		if message == "" {
			message = "status " + parsed.Status
		}
		return Result{Error: fmt.Sprintf("http %d: %s", resp.StatusCode, message)}
	}

	providerRef := ""
	if parsed.Data != nil {
		providerRef = parsed.Data.Reference
		if providerRef == "" {
			providerRef = parsed.Data.ID.String()
		}
	}
	return Result{Success: true, ProviderRef: providerRef}
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}
