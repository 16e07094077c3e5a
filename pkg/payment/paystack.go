package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medreza/bookstore-voucher-service/pkg/retry"
)

const DefaultPaystackURL = "https://api.paystack.co"

type Paystack struct {
	secretKey   string
	callbackURL string
	baseURL     string
	client      *http.Client
}

func NewPaystack(secretKey, callbackURL, baseURL string) *Paystack {
	if baseURL == "" {
		baseURL = DefaultPaystackURL
	}
	return &Paystack{
		secretKey:   secretKey,
		callbackURL: callbackURL,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Paystack) Name() string { return "paystack" }

type paystackInitRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (p *Paystack) CreateCheckoutSession(ctx context.Context, sess Session) (string, error) {
	if p.secretKey == "" {
		return "", retry.Permanent(ErrNotConfigured)
	}
	if sess.Email == "" {
		return "", retry.Permanent(ErrEmailRequired)
	}

	body, err := json.Marshal(paystackInitRequest{
		Email:       sess.Email,
		Amount:      sess.MinorAmount,
		Currency:    strings.ToUpper(sess.Currency),
		CallbackURL: p.callbackURL,
	})
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("paystack error (%d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", err
		}
		return "", retry.Permanent(err)
	}

	var out paystackInitResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return "", retry.Permanent(fmt.Errorf("paystack declined transaction: %s", out.Message))
	}
	return out.Data.AuthorizationURL, nil
}
