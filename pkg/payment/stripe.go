package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/medreza/bookstore-voucher-service/pkg/retry"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Stripe struct {
	sessions   sessionCreator
	configured bool
	successURL string
	cancelURL  string
}

func NewStripe(secretKey, successURL, cancelURL string) *Stripe {
	// Checkout owns retries; SDK network retries stay off.
	backend := func(t stripe.SupportedBackend) stripe.Backend {
		return stripe.GetBackendWithConfig(t, &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(0)})
	}
	sc := &client.API{}
	sc.Init(secretKey, &stripe.Backends{
		API:     backend(stripe.APIBackend),
		Connect: backend(stripe.ConnectBackend),
		Uploads: backend(stripe.UploadsBackend),
	})
	return &Stripe{
		sessions:   sc.CheckoutSessions,
		configured: secretKey != "",
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) CreateCheckoutSession(ctx context.Context, sess Session) (string, error) {
	if !s.configured {
		return "", retry.Permanent(ErrNotConfigured)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(sess.Currency),
					UnitAmount: stripe.Int64(sess.MinorAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Bookstore purchase"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if sess.Email != "" {
		params.CustomerEmail = stripe.String(sess.Email)
	}
	if sess.IdempotencyKey != "" {
		params.SetIdempotencyKey(sess.IdempotencyKey)
	}
	params.Context = ctx

	cs, err := s.sessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
			stripeErr.HTTPStatusCode != http.StatusTooManyRequests {
			return "", retry.Permanent(fmt.Errorf("stripe rejected checkout session: %w", err))
		}
		return "", fmt.Errorf("stripe checkout session failed: %w", err)
	}
	return cs.URL, nil
}
