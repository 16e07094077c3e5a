package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/shopspring/decimal"
)

type SalesAgentRepository struct {
	pool *pgxpool.Pool
}

func NewSalesAgentRepository(pool *pgxpool.Pool) *SalesAgentRepository {
	return &SalesAgentRepository{pool: pool}
}

func (r *SalesAgentRepository) CreateSalesAgent(ctx context.Context, a *models.SalesAgent) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sales_agents (id, name, commission_rate) VALUES ($1, $2, $3) RETURNING created_at`,
		a.ID, a.Name, a.CommissionRate.String(),
	).Scan(&a.CreatedAt)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolationCode {
			return ErrSalesAgentExists
		}
		return fmt.Errorf("failed to create sales agent: %w", err)
	}
	a.TotalSales = decimal.Zero
	a.TotalCommission = decimal.Zero
	return nil
}

func (r *SalesAgentRepository) GetSalesAgent(ctx context.Context, id string) (*models.SalesAgent, error) {
	var (
		a                       models.SalesAgent
		rate, sales, commission string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, commission_rate::text, total_sales::text, total_commission::text, created_at
		FROM sales_agents WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Name, &rate, &sales, &commission, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSalesAgentNotFound
		}
		return nil, fmt.Errorf("failed to get sales agent: %w", err)
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&a.CommissionRate, rate}, {&a.TotalSales, sales}, {&a.TotalCommission, commission}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("failed to parse sales agent amounts: %w", err)
		}
	}
	return &a, nil
}
