package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
)

var ErrGatewayNotFound = errors.New("payment gateway not configured")

type PaymentGatewayRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentGatewayRepository(pool *pgxpool.Pool) *PaymentGatewayRepository {
	return &PaymentGatewayRepository{pool: pool}
}

func (r *PaymentGatewayRepository) GetGateway(ctx context.Context, provider string) (*models.PaymentGateway, error) {
	var g models.PaymentGateway
	err := r.pool.QueryRow(ctx,
		`SELECT provider, enabled, default_currency, updated_at FROM payment_gateways WHERE provider = $1`,
		provider,
	).Scan(&g.Provider, &g.Enabled, &g.DefaultCurrency, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGatewayNotFound
		}
		return nil, fmt.Errorf("failed to get payment gateway: %w", err)
	}
	return &g, nil
}

func (r *PaymentGatewayRepository) UpsertGateway(ctx context.Context, g *models.PaymentGateway) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payment_gateways (provider, enabled, default_currency, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (provider) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			default_currency = EXCLUDED.default_currency,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`,
		g.Provider, g.Enabled, g.DefaultCurrency,
	).Scan(&g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save payment gateway: %w", err)
	}
	return nil
}
