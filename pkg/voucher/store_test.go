package voucher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/pricing"
	"github.com/medreza/bookstore-voucher-service/pkg/repository"
)

// memStore mirrors the transactional behaviour of the Postgres repositories.
type memStore struct {
	mu           sync.Mutex
	vouchers     map[uuid.UUID]*models.Voucher
	agents       map[string]*models.SalesAgent
	entitlements []models.Entitlement
	getCalls     int
}

func newMemStore() *memStore {
	return &memStore{
		vouchers: make(map[uuid.UUID]*models.Voucher),
		agents:   make(map[string]*models.SalesAgent),
	}
}

func (m *memStore) CreateVoucher(_ context.Context, v *models.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.vouchers {
		if existing.Code == v.Code {
			return repository.ErrCodeExists
		}
	}
	if v.CreatedBy != nil {
		if _, ok := m.agents[*v.CreatedBy]; !ok {
			return repository.ErrSalesAgentNotFound
		}
	}
	v.CreatedAt = time.Now()
	cp := *v
	m.vouchers[v.ID] = &cp
	return nil
}

func (m *memStore) GetVoucherByID(_ context.Context, id uuid.UUID) (*models.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	v, ok := m.vouchers[id]
	if !ok {
		return nil, repository.ErrVoucherNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) GetVoucherByCode(_ context.Context, code string) (*models.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers {
		if v.Code == code {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repository.ErrVoucherNotFound
}

func (m *memStore) ListVouchersByAgent(_ context.Context, agentID string) ([]models.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Voucher
	for _, v := range m.vouchers {
		if v.CreatedBy != nil && *v.CreatedBy == agentID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memStore) update(id uuid.UUID, fn func(v *models.Voucher) error) (*models.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok {
		return nil, repository.ErrVoucherNotFound
	}
	if err := fn(v); err != nil {
		return nil, err
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.VoucherStatus) (*models.Voucher, error) {
	return m.update(id, func(v *models.Voucher) error { v.Status = status; return nil })
}

func (m *memStore) MarkPaymentReceived(_ context.Context, id uuid.UUID) (*models.Voucher, error) {
	return m.update(id, func(v *models.Voucher) error { v.PaymentReceived = true; return nil })
}

func (m *memStore) MarkCommissionPaid(_ context.Context, id uuid.UUID) (*models.Voucher, error) {
	return m.update(id, func(v *models.Voucher) error {
		if !v.Redeemed || v.CreatedBy == nil {
			return repository.ErrCommissionNotDue
		}
		v.CommissionPaid = true
		return nil
	})
}

func (m *memStore) RedeemVoucher(_ context.Context, id uuid.UUID, userID string, now time.Time) (*models.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vouchers[id]
	if !ok {
		return nil, repository.ErrVoucherNotFound
	}
	if v.Redeemed {
		return nil, repository.ErrAlreadyRedeemed
	}
	if v.Status != models.VoucherStatusActive {
		return nil, repository.ErrVoucherInactive
	}

	var credit *models.CommissionCredit
	if v.CreatedBy != nil {
		a, ok := m.agents[*v.CreatedBy]
		if !ok {
			return nil, repository.ErrSalesAgentNotFound
		}
		commission := pricing.Commission(v.TotalAmount, a.CommissionRate)
		a.TotalSales = a.TotalSales.Add(v.TotalAmount)
		a.TotalCommission = a.TotalCommission.Add(commission)
		rate := a.CommissionRate
		v.CommissionRate = &rate
		credit = &models.CommissionCredit{AgentID: a.ID, Rate: rate, Sale: v.TotalAmount, Commission: commission}
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
	m.entitlements = append(m.entitlements, ent)

	return &models.Redemption{Voucher: *v, Entitlement: ent, Commission: credit}, nil
}

func (m *memStore) ListEntitlements(_ context.Context, userID string) ([]models.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Entitlement
	for _, e := range m.entitlements {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) CreateSalesAgent(_ context.Context, a *models.SalesAgent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[a.ID]; ok {
		return repository.ErrSalesAgentExists
	}
	cp := *a
	m.agents[a.ID] = &cp
	return nil
}

func (m *memStore) GetSalesAgent(_ context.Context, id string) (*models.SalesAgent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, repository.ErrSalesAgentNotFound
	}
	cp := *a
	return &cp, nil
}

type allowAll struct{}

func (allowAll) Allow(context.Context, string, string) bool { return true }

type denyAll struct{}

func (denyAll) Allow(context.Context, string, string) bool { return false }
