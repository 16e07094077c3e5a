package handlers

import (
	"context"
	"errors"

	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/notification"
)

var errMockNotImplemented = errors.New("not implemented")

type MockVoucherService struct {
	IssueVoucherFunc        func(ctx context.Context, req models.CreateVoucherRequest) (*models.Voucher, error)
	RedeemVoucherFunc       func(ctx context.Context, voucherID, userID string) (*models.Redemption, error)
	GetVoucherFunc          func(ctx context.Context, voucherID string) (*models.Voucher, error)
	GetVoucherByCodeFunc    func(ctx context.Context, code string) (*models.Voucher, error)
	SetStatusFunc           func(ctx context.Context, voucherID string, status models.VoucherStatus) (*models.Voucher, error)
	MarkPaymentReceivedFunc func(ctx context.Context, voucherID string) (*models.Voucher, error)
	MarkCommissionPaidFunc  func(ctx context.Context, voucherID string) (*models.Voucher, error)
	ListAgentVouchersFunc   func(ctx context.Context, agentID string) ([]models.Voucher, error)
	ListEntitlementsFunc    func(ctx context.Context, userID string) ([]models.Entitlement, error)
	CreateSalesAgentFunc    func(ctx context.Context, req models.CreateSalesAgentRequest) (*models.SalesAgent, error)
	GetSalesAgentFunc       func(ctx context.Context, id string) (*models.SalesAgent, error)
}

func (m *MockVoucherService) IssueVoucher(ctx context.Context, req models.CreateVoucherRequest) (*models.Voucher, error) {
	if m.IssueVoucherFunc != nil {
		return m.IssueVoucherFunc(ctx, req)
	}
	return nil, errMockNotImplemented
}

func (m *MockVoucherService) RedeemVoucher(ctx context.Context, voucherID, userID string) (*models.Redemption, error) {
	if m.RedeemVoucherFunc != nil {
		return m.RedeemVoucherFunc(ctx, voucherID, userID)
	}
	return nil, errMockNotImplemented
}

func (m *MockVoucherService) GetVoucher(ctx context.Context, voucherID string) (*models.Voucher, error) {
	if m.GetVoucherFunc != nil {
		return m.GetVoucherFunc(ctx, voucherID)
	}
	return nil, errMockNotImplemented
}

func (m *MockVoucherService) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	if m.GetVoucherByCodeFunc != nil {
		return m.GetVoucherByCodeFunc(ctx, code)
	}
	return nil, errMockNotImplemented
}

func (m *MockVoucherService) SetStatus(ctx context.Context, voucherID string, status models.VoucherStatus) (*models.Voucher, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, voucherID, status)
	}
	return nil, errMockNotImplemented
}

func (m *MockVoucherService) MarkPaymentReceived(ctx context.Context, voucherID string) (*models.Voucher, error) {
	if m.MarkPaymentReceivedFunc != nil {
		return m.MarkPaymentReceivedFunc(ctx, voucherID)
	}
	return nil, errMockNotImplemented
}

func (m *MockVoucherService) MarkCommissionPaid(ctx context.Context, voucherID string) (*models.Voucher, error) {
	if m.MarkCommissionPaidFunc != nil {
		return m.MarkCommissionPaidFunc(ctx, voucherID)
	}
	return nil, errMockNotImplemented
}

func (m *MockVoucherService) ListAgentVouchers(ctx context.Context, agentID string) ([]models.Voucher, error) {
	if m.ListAgentVouchersFunc != nil {
		return m.ListAgentVouchersFunc(ctx, agentID)
	}
	return nil, nil
}

func (m *MockVoucherService) ListEntitlements(ctx context.Context, userID string) ([]models.Entitlement, error) {
	if m.ListEntitlementsFunc != nil {
		return m.ListEntitlementsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockVoucherService) CreateSalesAgent(ctx context.Context, req models.CreateSalesAgentRequest) (*models.SalesAgent, error) {
	if m.CreateSalesAgentFunc != nil {
		return m.CreateSalesAgentFunc(ctx, req)
	}
	return nil, errMockNotImplemented
}

func (m *MockVoucherService) GetSalesAgent(ctx context.Context, id string) (*models.SalesAgent, error) {
	if m.GetSalesAgentFunc != nil {
		return m.GetSalesAgentFunc(ctx, id)
	}
	return nil, errMockNotImplemented
}

type MockNotificationService struct {
	DispatchFunc func(ctx context.Context, m notification.Message) (*models.Notification, error)
	HistoryFunc  func(ctx context.Context, limit int) ([]models.Notification, error)
}

func (m *MockNotificationService) Dispatch(ctx context.Context, msg notification.Message) (*models.Notification, error) {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, msg)
	}
	return &models.Notification{}, nil
}

func (m *MockNotificationService) History(ctx context.Context, limit int) ([]models.Notification, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, limit)
	}
	return nil, nil
}

type MockCheckoutService struct {
	CreateSessionFunc    func(ctx context.Context, provider string, req models.CheckoutRequest) (string, error)
	ConfigureGatewayFunc func(ctx context.Context, provider string, req models.UpdateGatewayRequest) (*models.PaymentGateway, error)
}

func (m *MockCheckoutService) CreateSession(ctx context.Context, provider string, req models.CheckoutRequest) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, provider, req)
	}
	return "", errMockNotImplemented
}

func (m *MockCheckoutService) ConfigureGateway(ctx context.Context, provider string, req models.UpdateGatewayRequest) (*models.PaymentGateway, error) {
	if m.ConfigureGatewayFunc != nil {
		return m.ConfigureGatewayFunc(ctx, provider, req)
	}
	return nil, errMockNotImplemented
}
