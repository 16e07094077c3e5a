// Package voucher implements issuance and one-time redemption of catalog
// vouchers, including commission accrual for issuing sales agents.
package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medreza/bookstore-voucher-service/pkg/cache"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	ActionRedeem = "voucher_redeem"
	ActionCreate = "voucher_create"

	maxCodeAttempts = 5
)

var ErrRateLimited = errors.New("too many requests, please try again later")

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type Store interface {
	CreateVoucher(ctx context.Context, v *models.Voucher) error
	GetVoucherByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	ListVouchersByAgent(ctx context.Context, agentID string) ([]models.Voucher, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.VoucherStatus) (*models.Voucher, error)
	MarkPaymentReceived(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	MarkCommissionPaid(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	RedeemVoucher(ctx context.Context, id uuid.UUID, userID string, now time.Time) (*models.Redemption, error)
	ListEntitlements(ctx context.Context, userID string) ([]models.Entitlement, error)
}

type AgentStore interface {
	CreateSalesAgent(ctx context.Context, a *models.SalesAgent) error
	GetSalesAgent(ctx context.Context, id string) (*models.SalesAgent, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, userID, action string) bool
}

type Service struct {
	vouchers Store
	agents   AgentStore
	limiter  RateLimiter
	cache    *cache.Cache[models.Voucher]
	codes    CodeGenerator
	now      func() time.Time
}

type Option func(*Service)

func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *Service) { s.codes = gen }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCache(c *cache.Cache[models.Voucher]) Option {
	return func(s *Service) { s.cache = c }
}

func NewService(vouchers Store, agents AgentStore, limiter RateLimiter, opts ...Option) *Service {
	s := &Service{
		vouchers: vouchers,
		agents:   agents,
		limiter:  limiter,
		cache:    cache.New[models.Voucher](0),
		codes:    GenerateCode,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateScope(t models.VoucherType, scope models.Scope) (models.Scope, error) {
	switch t {
	case models.VoucherTypeSingleBook:
		if scope.BookID == "" {
			return models.Scope{}, ValidationError{"scope.book_id", "required for single_book vouchers"}
		}
		return models.Scope{BookID: scope.BookID}, nil
	case models.VoucherTypeMultipleBooks:
		seen := make(map[string]bool, len(scope.BookIDs))
		var ids []string
		for _, id := range scope.BookIDs {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return models.Scope{}, ValidationError{"scope.book_ids", "at least one book is required for multiple_books vouchers"}
		}
		return models.Scope{BookIDs: ids}, nil
	case models.VoucherTypeSeries:
		if scope.SeriesID == "" {
			return models.Scope{}, ValidationError{"scope.series_id", "required for series vouchers"}
		}
		return models.Scope{SeriesID: scope.SeriesID}, nil
	case models.VoucherTypeBookTag:
		if scope.Tag == "" {
			return models.Scope{}, ValidationError{"scope.tag", "required for book_tag vouchers"}
		}
		return models.Scope{Tag: scope.Tag}, nil
	case models.VoucherTypeAllBooks:
		return models.Scope{}, nil
	}
	return models.Scope{}, ValidationError{"type", fmt.Sprintf("unknown voucher type %q", t)}
}

// IssueVoucher creates an active, unredeemed voucher with a fresh code.
func (s *Service) IssueVoucher(ctx context.Context, req models.CreateVoucherRequest) (*models.Voucher, error) {
	scope, err := validateScope(req.Type, req.Scope)
	if err != nil {
		return nil, err
	}
	if req.ClientID == "" {
		return nil, ValidationError{"client_id", "is required"}
	}
	if req.TotalAmount.IsNegative() {
		return nil, ValidationError{"total_amount", "must not be negative"}
	}
	if req.NumberOfDownloads < 1 {
		return nil, ValidationError{"number_of_downloads", "must be at least 1"}
	}

	var createdBy *string
	if req.CreatedBy != nil && *req.CreatedBy != "" {
		agentID := *req.CreatedBy
		if !s.limiter.Allow(ctx, agentID, ActionCreate) {
			return nil, ErrRateLimited
		}
		if _, err := s.agents.GetSalesAgent(ctx, agentID); err != nil {
			return nil, err
		}
		createdBy = &agentID
	}

	v := &models.Voucher{
		ID:                uuid.New(),
		Type:              req.Type,
		Scope:             scope,
		CreatedBy:         createdBy,
		ClientID:          req.ClientID,
		TotalAmount:       req.TotalAmount.Round(2),
		NumberOfDownloads: req.NumberOfDownloads,
		Status:            models.VoucherStatusActive,
	}

	for attempt := 1; ; attempt++ {
		if v.Code, err = s.codes(); err != nil {
			return nil, err
		}
		err = s.vouchers.CreateVoucher(ctx, v)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrCodeExists) || attempt >= maxCodeAttempts {
			return nil, err
		}
		logrus.WithField("attempt", attempt).Warn("IssueVoucher: Code collision, regenerating")
	}

	logrus.WithFields(logrus.Fields{
		"voucher_id": v.ID,
		"type":       v.Type,
		"client_id":  v.ClientID,
	}).Info("IssueVoucher: Voucher issued")
	return v, nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ValidationError{field, "must be a valid UUID"}
	}
	return id, nil
}

// RedeemVoucher consumes the voucher for userID. A voucher can be redeemed
// once; later attempts fail with repository.ErrAlreadyRedeemed.
func (s *Service) RedeemVoucher(ctx context.Context, voucherID, userID string) (*models.Redemption, error) {
	id, err := parseID("voucherId", voucherID)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ValidationError{"userId", "is required"}
	}

	if !s.limiter.Allow(ctx, userID, ActionRedeem) {
		return nil, ErrRateLimited
	}

	redemption, err := s.vouchers.RedeemVoucher(ctx, id, userID, s.now().UTC())
	s.cache.Invalidate(id.String())
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"voucher_id": id,
		"user_id":    userID,
		"downloads":  redemption.Entitlement.DownloadsRemaining,
	})
	if c := redemption.Commission; c != nil {
		log = log.WithFields(logrus.Fields{"agent_id": c.AgentID, "commission": c.Commission.String()})
	}
	log.Info("RedeemVoucher: Voucher redeemed")

	return redemption, nil
}

func (s *Service) GetVoucher(ctx context.Context, voucherID string) (*models.Voucher, error) {
	id, err := parseID("id", voucherID)
	if err != nil {
		return nil, err
	}
	key := id.String()
	if v, ok := s.cache.Get(key); ok {
		return &v, nil
	}
	gen := s.cache.Generation(key)
	v, err := s.vouchers.GetVoucherByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetIfUnchanged(key, gen, *v)
	return v, nil
}

func (s *Service) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ValidationError{"code", "is required"}
	}
	return s.vouchers.GetVoucherByCode(ctx, code)
}

func (s *Service) SetStatus(ctx context.Context, voucherID string, status models.VoucherStatus) (*models.Voucher, error) {
	if !status.Valid() {
		return nil, ValidationError{"status", "must be active or inactive"}
	}
	return s.mutate(ctx, voucherID, func(id uuid.UUID) (*models.Voucher, error) {
		return s.vouchers.UpdateStatus(ctx, id, status)
	})
}

func (s *Service) MarkPaymentReceived(ctx context.Context, voucherID string) (*models.Voucher, error) {
	return s.mutate(ctx, voucherID, func(id uuid.UUID) (*models.Voucher, error) {
		return s.vouchers.MarkPaymentReceived(ctx, id)
	})
}

func (s *Service) MarkCommissionPaid(ctx context.Context, voucherID string) (*models.Voucher, error) {
	return s.mutate(ctx, voucherID, func(id uuid.UUID) (*models.Voucher, error) {
		return s.vouchers.MarkCommissionPaid(ctx, id)
	})
}

func (s *Service) mutate(_ context.Context, voucherID string, fn func(uuid.UUID) (*models.Voucher, error)) (*models.Voucher, error) {
	id, err := parseID("id", voucherID)
	if err != nil {
		return nil, err
	}
	v, err := fn(id)
	s.cache.Invalidate(id.String())
	return v, err
}

func (s *Service) ListAgentVouchers(ctx context.Context, agentID string) ([]models.Voucher, error) {
	if _, err := s.agents.GetSalesAgent(ctx, agentID); err != nil {
		return nil, err
	}
	return s.vouchers.ListVouchersByAgent(ctx, agentID)
}

func (s *Service) ListEntitlements(ctx context.Context, userID string) ([]models.Entitlement, error) {
	if userID == "" {
		return nil, ValidationError{"user_id", "is required"}
	}
	return s.vouchers.ListEntitlements(ctx, userID)
}

var hundred = decimal.NewFromInt(100)

func (s *Service) CreateSalesAgent(ctx context.Context, req models.CreateSalesAgentRequest) (*models.SalesAgent, error) {
	if req.Name == "" {
		return nil, ValidationError{"name", "is required"}
	}
	if req.CommissionRate.IsNegative() || req.CommissionRate.GreaterThan(hundred) {
		return nil, ValidationError{"commission_rate", "must be between 0 and 100"}
	}
	a := &models.SalesAgent{
		ID:             req.ID,
		Name:           req.Name,
		CommissionRate: req.CommissionRate.Round(2),
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := s.agents.CreateSalesAgent(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetSalesAgent(ctx context.Context, id string) (*models.SalesAgent, error) {
	return s.agents.GetSalesAgent(ctx, id)
}
