package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/pricing"
	"github.com/shopspring/decimal"
)

var (
	ErrVoucherNotFound    = errors.New("voucher not found")
	ErrCodeExists         = errors.New("voucher code already exists")
	ErrAlreadyRedeemed    = errors.New("voucher has already been redeemed")
	ErrVoucherInactive    = errors.New("voucher is inactive")
	ErrCommissionNotDue   = errors.New("voucher has no commission due")
	ErrSalesAgentNotFound = errors.New("sales agent not found")
	ErrSalesAgentExists   = errors.New("sales agent already exists")
)

const (
	pgUniqueViolationCode     = "23505"
	pgForeignKeyViolationCode = "23503"
)

// Numeric columns are read as text so decimal precision survives the trip.
const voucherColumns = `id, code, type, book_id, book_ids, series_id, tag, created_by, client_id,
	payment_received, redeemed, redeemed_at, redeemed_by, commission_rate::text, commission_paid,
	total_amount::text, number_of_downloads, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type VoucherRepository struct {
	pool *pgxpool.Pool
}

func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func scanVoucher(row rowScanner) (*models.Voucher, error) {
	var (
		v                          models.Voucher
		bookID, seriesID, tag      *string
		commissionRate             *string
		totalAmount                string
		voucherType, voucherStatus string
	)
	err := row.Scan(
		&v.ID, &v.Code, &voucherType, &bookID, &v.Scope.BookIDs, &seriesID, &tag, &v.CreatedBy, &v.ClientID,
		&v.PaymentReceived, &v.Redeemed, &v.RedeemedAt, &v.RedeemedBy, &commissionRate, &v.CommissionPaid,
		&totalAmount, &v.NumberOfDownloads, &voucherStatus, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Type = models.VoucherType(voucherType)
	v.Status = models.VoucherStatus(voucherStatus)
	v.Scope.BookID = deref(bookID)
	v.Scope.SeriesID = deref(seriesID)
	v.Scope.Tag = deref(tag)

	if v.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("failed to parse total_amount: %w", err)
	}
	if commissionRate != nil {
		rate, err := decimal.NewFromString(*commissionRate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse commission_rate: %w", err)
		}
		v.CommissionRate = &rate
	}
	return &v, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func bookIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (r *VoucherRepository) CreateVoucher(ctx context.Context, v *models.Voucher) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO vouchers (id, code, type, book_id, book_ids, series_id, tag, created_by, client_id,
			payment_received, redeemed, total_amount, number_of_downloads, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12, $13)
		RETURNING created_at`,
		v.ID, v.Code, string(v.Type), nullable(v.Scope.BookID), bookIDs(v.Scope.BookIDs),
		nullable(v.Scope.SeriesID), nullable(v.Scope.Tag), v.CreatedBy, v.ClientID,
		v.PaymentReceived, v.TotalAmount.String(), v.NumberOfDownloads, string(v.Status),
	).Scan(&v.CreatedAt)
	if err != nil {
		switch pgErrCode(err) {
		case pgUniqueViolationCode:
			return ErrCodeExists
		case pgForeignKeyViolationCode:
			return ErrSalesAgentNotFound
		}
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

func (r *VoucherRepository) GetVoucherByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return v, nil
}

func (r *VoucherRepository) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return v, nil
}

func (r *VoucherRepository) ListVouchersByAgent(ctx context.Context, agentID string) ([]models.Voucher, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE created_by = $1 ORDER BY created_at`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []models.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vouchers: %w", err)
	}

	return vouchers, nil
}

func (r *VoucherRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.VoucherStatus) (*models.Voucher, error) {
	return r.updateReturning(ctx, `UPDATE vouchers SET status = $2 WHERE id = $1 RETURNING `+voucherColumns, id, string(status))
}

func (r *VoucherRepository) MarkPaymentReceived(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	return r.updateReturning(ctx, `UPDATE vouchers SET payment_received = TRUE WHERE id = $1 RETURNING `+voucherColumns, id)
}

// MarkCommissionPaid only applies to redeemed vouchers issued by an agent.
func (r *VoucherRepository) MarkCommissionPaid(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	v, err := r.updateReturning(ctx,
		`UPDATE vouchers SET commission_paid = TRUE
		WHERE id = $1 AND redeemed = TRUE AND created_by IS NOT NULL
		RETURNING `+voucherColumns,
		id,
	)
	if errors.Is(err, ErrVoucherNotFound) {
		if _, getErr := r.GetVoucherByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrCommissionNotDue
	}
	return v, err
}

func (r *VoucherRepository) updateReturning(ctx context.Context, sql string, args ...any) (*models.Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to update voucher: %w", err)
	}
	return v, nil
}

// RedeemVoucher flips the redeemed flag, credits the issuing agent and grants
// the download entitlement in a single transaction.
func (r *VoucherRepository) RedeemVoucher(ctx context.Context, id uuid.UUID, userID string, now time.Time) (*models.Redemption, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// lock the voucher row so concurrent redemptions of the same id serialize here
	v, err := scanVoucher(tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to lock voucher: %w", err)
	}

	if v.Redeemed {
		return nil, ErrAlreadyRedeemed
	}
	if v.Status != models.VoucherStatusActive {
		return nil, ErrVoucherInactive
	}

	var credit *models.CommissionCredit
	var rateParam *string
	if v.CreatedBy != nil {
		var rateText string
		err = tx.QueryRow(ctx,
			`SELECT commission_rate::text FROM sales_agents WHERE id = $1 FOR UPDATE`,
			*v.CreatedBy,
		).Scan(&rateText)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrSalesAgentNotFound
			}
			return nil, fmt.Errorf("failed to lock sales agent: %w", err)
		}

		rate, err := decimal.NewFromString(rateText)
		if err != nil {
			return nil, fmt.Errorf("failed to parse commission_rate: %w", err)
		}
		commission := pricing.Commission(v.TotalAmount, rate)

		_, err = tx.Exec(ctx,
			`UPDATE sales_agents
			SET total_sales = total_sales + $2, total_commission = total_commission + $3
			WHERE id = $1`,
			*v.CreatedBy, v.TotalAmount.String(), commission.String(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to credit commission: %w", err)
		}

		credit = &models.CommissionCredit{AgentID: *v.CreatedBy, Rate: rate, Sale: v.TotalAmount, Commission: commission}
		rateParam = &rateText
		v.CommissionRate = &rate
	}

	tag, err := tx.Exec(ctx,
		`UPDATE vouchers SET redeemed = TRUE, redeemed_at = $2, redeemed_by = $3, commission_rate = $4
		WHERE id = $1 AND redeemed = FALSE`,
		id, now, userID, rateParam,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark voucher redeemed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyRedeemed
	}
	v.Redeemed = true
	v.RedeemedAt = &now
	v.RedeemedBy = &userID

	ent := models.Entitlement{
		ID:                 uuid.New(),
		UserID:             userID,
		VoucherID:          v.ID,
		Type:               v.Type,
		Scope:              v.Scope,
		DownloadsRemaining: v.NumberOfDownloads,
		GrantedAt:          now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO download_entitlements (id, user_id, voucher_id, type, book_id, book_ids, series_id, tag,
			downloads_remaining, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ent.ID, ent.UserID, ent.VoucherID, string(ent.Type), nullable(ent.Scope.BookID), bookIDs(ent.Scope.BookIDs),
		nullable(ent.Scope.SeriesID), nullable(ent.Scope.Tag), ent.DownloadsRemaining, ent.GrantedAt,
	)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolationCode {
			return nil, ErrAlreadyRedeemed
		}
		return nil, fmt.Errorf("failed to grant entitlement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.Redemption{Voucher: *v, Entitlement: ent, Commission: credit}, nil
}

func (r *VoucherRepository) ListEntitlements(ctx context.Context, userID string) ([]models.Entitlement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, voucher_id, type, book_id, book_ids, series_id, tag, downloads_remaining, granted_at
		FROM download_entitlements WHERE user_id = $1 ORDER BY granted_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}
	defer rows.Close()

	var out []models.Entitlement
	for rows.Next() {
		var (
			e                     models.Entitlement
			entType               string
			bookID, seriesID, tag *string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.VoucherID, &entType, &bookID, &e.Scope.BookIDs,
			&seriesID, &tag, &e.DownloadsRemaining, &e.GrantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		e.Type = models.VoucherType(entType)
		e.Scope.BookID = deref(bookID)
		e.Scope.SeriesID = deref(seriesID)
		e.Scope.Tag = deref(tag)
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entitlements: %w", err)
	}

	return out, nil
}
