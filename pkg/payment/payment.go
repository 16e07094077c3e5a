// Package payment creates hosted checkout sessions with third-party payment
// providers and hands back the redirect URL.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/pricing"
	"github.com/medreza/bookstore-voucher-service/pkg/repository"
	"github.com/medreza/bookstore-voucher-service/pkg/retry"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownProvider = errors.New("unknown payment provider")
	ErrGatewayDisabled = errors.New("payment gateway is disabled")
	ErrNotConfigured   = errors.New("payment provider is not configured")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrEmailRequired   = errors.New("email is required for this provider")
	ErrInvalidCurrency = errors.New("currency must be a three-letter ISO code")
)

type Session struct {
	Amount         decimal.Decimal
	MinorAmount    int64
	Currency       string
	Email          string
	IdempotencyKey string // shared by every attempt for one checkout request
}

type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, s Session) (string, error)
}

type GatewayStore interface {
	GetGateway(ctx context.Context, provider string) (*models.PaymentGateway, error)
	UpsertGateway(ctx context.Context, g *models.PaymentGateway) error
}

type Checkout struct {
	providers       map[string]Provider
	gateways        GatewayStore
	defaultCurrency string
	retryOpts       []retry.Option
}

func NewCheckout(gateways GatewayStore, defaultCurrency string, providers []Provider, retryOpts ...retry.Option) *Checkout {
	c := &Checkout{
		providers:       make(map[string]Provider, len(providers)),
		gateways:        gateways,
		defaultCurrency: strings.ToLower(defaultCurrency),
		retryOpts:       retryOpts,
	}
	for _, p := range providers {
		c.providers[p.Name()] = p
	}
	return c
}

// CreateSession validates the request against the gateway settings and asks
// the provider for a checkout URL.
func (c *Checkout) CreateSession(ctx context.Context, provider string, req models.CheckoutRequest) (string, error) {
	p, ok := c.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}

	currency := c.defaultCurrency
	gw, err := c.gateways.GetGateway(ctx, provider)
	switch {
	case err == nil:
		if !gw.Enabled {
			return "", ErrGatewayDisabled
		}
		if gw.DefaultCurrency != "" {
			currency = strings.ToLower(gw.DefaultCurrency)
		}
	case errors.Is(err, repository.ErrGatewayNotFound):
	default:
		return "", fmt.Errorf("failed to load gateway settings: %w", err)
	}

	if req.Currency != "" {
		currency = strings.ToLower(strings.TrimSpace(req.Currency))
	}
	if len(currency) != 3 {
		return "", ErrInvalidCurrency
	}
	if !req.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	minor, err := pricing.MinorUnits(req.Amount, currency)
	if err != nil || minor < 1 {
		return "", ErrInvalidAmount
	}
	s := Session{
		Amount:         req.Amount,
		MinorAmount:    minor,
		Currency:       currency,
		Email:          strings.TrimSpace(req.Email),
		IdempotencyKey: uuid.NewString(),
	}

	url, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
		return p.CreateCheckoutSession(ctx, s)
	}, c.retryOpts...)
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"provider": provider,
		"currency": currency,
		"amount":   s.MinorAmount,
	}).Info("Checkout: Session created")
	return url, nil
}

// ConfigureGateway stores the operator settings for a registered provider.
func (c *Checkout) ConfigureGateway(ctx context.Context, provider string, req models.UpdateGatewayRequest) (*models.PaymentGateway, error) {
	if _, ok := c.providers[provider]; !ok {
		return nil, ErrUnknownProvider
	}
	currency := strings.ToLower(strings.TrimSpace(req.DefaultCurrency))
	if currency != "" && len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}

	g := &models.PaymentGateway{
		Provider:        provider,
		Enabled:         *req.Enabled,
		DefaultCurrency: currency,
	}
	if err := c.gateways.UpsertGateway(ctx, g); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"provider": provider,
		"enabled":  g.Enabled,
	}).Info("Checkout: Gateway settings updated")
	return g, nil
}
