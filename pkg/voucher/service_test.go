package voucher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medreza/bookstore-voucher-service/pkg/cache"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/ratelimit"
	"github.com/medreza/bookstore-voucher-service/pkg/repository"
	"github.com/shopspring/decimal"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewService(store, store, allowAll{}, opts...), store
}

func issue(t *testing.T, svc *Service, req models.CreateVoucherRequest) *models.Voucher {
	t.Helper()
	v, err := svc.IssueVoucher(context.Background(), req)
	if err != nil {
		t.Fatalf("IssueVoucher: %v", err)
	}
	return v
}

func allBooks(amount string) models.CreateVoucherRequest {
	return models.CreateVoucherRequest{
		Type:              models.VoucherTypeAllBooks,
		ClientID:          "client-1",
		TotalAmount:       decimal.RequireFromString(amount),
		NumberOfDownloads: 3,
	}
}

func TestRedeemAtMostOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	v := issue(t, svc, allBooks("25"))

	redemption, err := svc.RedeemVoucher(ctx, v.ID.String(), "user-1")
	if err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	if !redemption.Voucher.Redeemed || redemption.Voucher.RedeemedAt == nil {
		t.Error("voucher should be marked redeemed with a timestamp")
	}
	if redemption.Entitlement.DownloadsRemaining != 3 {
		t.Errorf("expected 3 downloads, got %d", redemption.Entitlement.DownloadsRemaining)
	}

	_, err = svc.RedeemVoucher(ctx, v.ID.String(), "user-2")
	if !errors.Is(err, repository.ErrAlreadyRedeemed) {
		t.Errorf("second redemption: expected ErrAlreadyRedeemed, got %v", err)
	}
}

func TestRedeemConcurrentAttempts(t *testing.T) {
	svc, store := newTestService(t)
	v := issue(t, svc, allBooks("10"))

	const requests = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.RedeemVoucher(context.Background(), v.ID.String(), fmt.Sprintf("user_%d", n))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, repository.ErrAlreadyRedeemed):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != requests-1 {
		t.Errorf("expected 1 success and %d conflicts, got %d and %d", requests-1, successes, conflicts)
	}
	if len(store.entitlements) != 1 {
		t.Errorf("expected a single entitlement, got %d", len(store.entitlements))
	}
}

func TestRedeemAccruesCommission(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	agent, err := svc.CreateSalesAgent(ctx, models.CreateSalesAgentRequest{
		ID:             "agent-a",
		Name:           "Agent A",
		CommissionRate: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CreateSalesAgent: %v", err)
	}

	req := allBooks("100")
	req.CreatedBy = &agent.ID
	v := issue(t, svc, req)

	redemption, err := svc.RedeemVoucher(ctx, v.ID.String(), "user-1")
	if err != nil {
		t.Fatalf("RedeemVoucher: %v", err)
	}
	if redemption.Commission == nil || !redemption.Commission.Commission.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected commission credit of 10, got %+v", redemption.Commission)
	}

	got := store.agents["agent-a"]
	if !got.TotalCommission.Equal(decimal.NewFromInt(10)) {
		t.Errorf("total_commission: got %s, want 10", got.TotalCommission)
	}
	if !got.TotalSales.Equal(decimal.NewFromInt(100)) {
		t.Errorf("total_sales: got %s, want 100", got.TotalSales)
	}
}

func TestRedeemFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inactive := issue(t, svc, allBooks("5"))
	if _, err := svc.SetStatus(ctx, inactive.ID.String(), models.VoucherStatusInactive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	var validation ValidationError
	tests := []struct {
		name      string
		voucherID string
		userID    string
		check     func(error) bool
	}{
		{"unknown voucher", "7d1b7c38-0d7b-4f0b-8a41-5f2f6f0a3c11", "user-1", func(err error) bool { return errors.Is(err, repository.ErrVoucherNotFound) }},
		{"malformed id", "not-a-uuid", "user-1", func(err error) bool { return errors.As(err, &validation) }},
		{"missing user", inactive.ID.String(), "", func(err error) bool { return errors.As(err, &validation) }},
		{"inactive voucher", inactive.ID.String(), "user-1", func(err error) bool { return errors.Is(err, repository.ErrVoucherInactive) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RedeemVoucher(ctx, tt.voucherID, tt.userID)
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRedeemRateLimited(t *testing.T) {
	store := newMemStore()
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.WithLimit(2, 15*time.Minute))
	svc := NewService(store, store, limiter)
	ctx := context.Background()

	missing := "7d1b7c38-0d7b-4f0b-8a41-5f2f6f0a3c11"
	for i := 0; i < 2; i++ {
		if _, err := svc.RedeemVoucher(ctx, missing, "user-1"); !errors.Is(err, repository.ErrVoucherNotFound) {
			t.Fatalf("attempt %d: expected ErrVoucherNotFound, got %v", i+1, err)
		}
	}
	if _, err := svc.RedeemVoucher(ctx, missing, "user-1"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	denied := NewService(store, store, denyAll{})
	if _, err := denied.RedeemVoucher(ctx, missing, "user-1"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestIssueVoucherValidation(t *testing.T) {
	svc, _ := newTestService(t)
	unknownAgent := "ghost"

	tests := []struct {
		name    string
		mutate  func(r *models.CreateVoucherRequest)
		field   string
		wantErr error
	}{
		{"single book without book", func(r *models.CreateVoucherRequest) { r.Type = models.VoucherTypeSingleBook }, "scope.book_id", nil},
		{"multiple books empty", func(r *models.CreateVoucherRequest) {
			r.Type = models.VoucherTypeMultipleBooks
			r.Scope.BookIDs = []string{""}
		}, "scope.book_ids", nil},
		{"series without id", func(r *models.CreateVoucherRequest) { r.Type = models.VoucherTypeSeries }, "scope.series_id", nil},
		{"tag without tag", func(r *models.CreateVoucherRequest) { r.Type = models.VoucherTypeBookTag }, "scope.tag", nil},
		{"unknown type", func(r *models.CreateVoucherRequest) { r.Type = "bundle" }, "type", nil},
		{"missing client", func(r *models.CreateVoucherRequest) { r.ClientID = "" }, "client_id", nil},
		{"negative amount", func(r *models.CreateVoucherRequest) { r.TotalAmount = decimal.NewFromInt(-1) }, "total_amount", nil},
		{"zero downloads", func(r *models.CreateVoucherRequest) { r.NumberOfDownloads = 0 }, "number_of_downloads", nil},
		{"unknown agent", func(r *models.CreateVoucherRequest) { r.CreatedBy = &unknownAgent }, "", repository.ErrSalesAgentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := allBooks("10")
			tt.mutate(&req)
			_, err := svc.IssueVoucher(context.Background(), req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			var ve ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestIssueVoucherNormalizesScope(t *testing.T) {
	svc, _ := newTestService(t)
	req := allBooks("10")
	req.Type = models.VoucherTypeMultipleBooks
	req.Scope = models.Scope{BookID: "ignored", BookIDs: []string{"b1", "b2", "b1"}, Tag: "ignored"}

	v := issue(t, svc, req)
	if v.Scope.BookID != "" || v.Scope.Tag != "" || len(v.Scope.BookIDs) != 2 {
		t.Errorf("unexpected scope %+v", v.Scope)
	}
	if v.Status != models.VoucherStatusActive || v.Redeemed || v.PaymentReceived {
		t.Errorf("new vouchers must be active, unredeemed and unpaid: %+v", v)
	}
}

func TestIssueVoucherRegeneratesOnCollision(t *testing.T) {
	codes := []string{"AAAA-AAAA-AAAA", "AAAA-AAAA-AAAA", "BBBB-BBBB-BBBB"}
	next := 0
	gen := func() (string, error) {
		c := codes[next]
		next++
		return c, nil
	}
	svc, _ := newTestService(t, WithCodeGenerator(gen))

	first := issue(t, svc, allBooks("1"))
	second := issue(t, svc, allBooks("1"))
	if first.Code != "AAAA-AAAA-AAAA" || second.Code != "BBBB-BBBB-BBBB" {
		t.Errorf("unexpected codes %s and %s", first.Code, second.Code)
	}

	stuck, _ := newTestService(t, WithCodeGenerator(func() (string, error) { return "SAME-SAME-SAME", nil }))
	issue(t, stuck, allBooks("1"))
	if _, err := stuck.IssueVoucher(context.Background(), allBooks("1")); !errors.Is(err, repository.ErrCodeExists) {
		t.Errorf("expected ErrCodeExists after exhausting attempts, got %v", err)
	}
}

func TestGetVoucherUsesCacheAndInvalidates(t *testing.T) {
	svc, store := newTestService(t, WithCache(cache.New[models.Voucher](time.Minute)))
	ctx := context.Background()
	v := issue(t, svc, allBooks("10"))

	for i := 0; i < 3; i++ {
		if _, err := svc.GetVoucher(ctx, v.ID.String()); err != nil {
			t.Fatalf("GetVoucher: %v", err)
		}
	}
	if store.getCalls != 1 {
		t.Errorf("expected 1 store read, got %d", store.getCalls)
	}

	if _, err := svc.RedeemVoucher(ctx, v.ID.String(), "user-1"); err != nil {
		t.Fatalf("RedeemVoucher: %v", err)
	}
	got, err := svc.GetVoucher(ctx, v.ID.String())
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if !got.Redeemed {
		t.Error("cache should have been invalidated by redemption")
	}
}

func TestMarkCommissionPaid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateSalesAgent(ctx, models.CreateSalesAgentRequest{ID: "agent", Name: "A", CommissionRate: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("CreateSalesAgent: %v", err)
	}
	agentID := "agent"
	req := allBooks("40")
	req.CreatedBy = &agentID
	v := issue(t, svc, req)

	if _, err := svc.MarkCommissionPaid(ctx, v.ID.String()); !errors.Is(err, repository.ErrCommissionNotDue) {
		t.Errorf("expected ErrCommissionNotDue before redemption, got %v", err)
	}
	if _, err := svc.RedeemVoucher(ctx, v.ID.String(), "user-1"); err != nil {
		t.Fatalf("RedeemVoucher: %v", err)
	}
	paid, err := svc.MarkCommissionPaid(ctx, v.ID.String())
	if err != nil || !paid.CommissionPaid {
		t.Errorf("expected commission paid, got %+v, %v", paid, err)
	}

	list, err := svc.ListAgentVouchers(ctx, agentID)
	if err != nil || len(list) != 1 {
		t.Errorf("expected one agent voucher, got %d, %v", len(list), err)
	}
}

func TestCreateSalesAgentValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateSalesAgent(ctx, models.CreateSalesAgentRequest{Name: "A", CommissionRate: decimal.NewFromInt(101)}); err == nil {
		t.Error("expected validation error for rate above 100")
	}
	a, err := svc.CreateSalesAgent(ctx, models.CreateSalesAgentRequest{Name: "A", CommissionRate: decimal.NewFromInt(15)})
	if err != nil {
		t.Fatalf("CreateSalesAgent: %v", err)
	}
	if a.ID == "" {
		t.Error("expected generated id")
	}
}

// interleavingStore runs a read through the service in the middle of a write,
// the way a concurrent request would.
type interleavingStore struct {
	*memStore
	duringWrite func()
}

func (s *interleavingStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.VoucherStatus) (*models.Voucher, error) {
	s.duringWrite()
	return s.memStore.UpdateStatus(ctx, id, status)
}

func (s *interleavingStore) RedeemVoucher(ctx context.Context, id uuid.UUID, userID string, now time.Time) (*models.Redemption, error) {
	s.duringWrite()
	return s.memStore.RedeemVoucher(ctx, id, userID, now)
}

func TestCacheNotStaleAfterConcurrentRead(t *testing.T) {
	mem := newMemStore()
	store := &interleavingStore{memStore: mem}
	svc := NewService(store, mem, allowAll{}, WithCache(cache.New[models.Voucher](time.Minute)))
	ctx := context.Background()
	v := issue(t, svc, allBooks("10"))

	store.duringWrite = func() {
		if _, err := svc.GetVoucher(ctx, v.ID.String()); err != nil {
			t.Errorf("GetVoucher during write: %v", err)
		}
	}

	if _, err := svc.SetStatus(ctx, v.ID.String(), models.VoucherStatusInactive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err := svc.GetVoucher(ctx, v.ID.String())
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if got.Status != models.VoucherStatusInactive {
		t.Errorf("expected inactive after SetStatus, got %s", got.Status)
	}

	if _, err := svc.SetStatus(ctx, v.ID.String(), models.VoucherStatusActive); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := svc.RedeemVoucher(ctx, v.ID.String(), "user-1"); err != nil {
		t.Fatalf("RedeemVoucher: %v", err)
	}
	got, err = svc.GetVoucher(ctx, v.ID.String())
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if !got.Redeemed {
		t.Error("expected redeemed voucher after redemption")
	}
}
