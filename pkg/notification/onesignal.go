package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medreza/bookstore-voucher-service/pkg/retry"
)

const DefaultOneSignalURL = "https://onesignal.com"

var ErrNotConfigured = errors.New("push provider is not configured")

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("onesignal error (%d): %s", e.StatusCode, e.Body)
}

// OneSignal sends broadcast pushes through the OneSignal REST API.
type OneSignal struct {
	appID   string
	restKey string
	baseURL string
	client  *http.Client
}

func NewOneSignal(appID, restKey, baseURL string) *OneSignal {
	if baseURL == "" {
		baseURL = DefaultOneSignalURL
	}
	return &OneSignal{
		appID:   appID,
		restKey: restKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type oneSignalRequest struct {
	AppID            string            `json:"app_id"`
	IncludedSegments []string          `json:"included_segments"`
	Headings         map[string]string `json:"headings"`
	Contents         map[string]string `json:"contents"`
}

// Send delivers one push. Client errors other than 429 are wrapped with
// retry.Permanent.
func (o *OneSignal) Send(ctx context.Context, title, message string) error {
	if o.appID == "" || o.restKey == "" {
		return retry.Permanent(ErrNotConfigured)
	}

	body, err := json.Marshal(oneSignalRequest{
		AppID:            o.appID,
		IncludedSegments: []string{"All"},
		Headings:         map[string]string{"en": title},
		Contents:         map[string]string{"en": message},
	})
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Basic "+o.restKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return apiErr
	}
	return retry.Permanent(apiErr)
}
