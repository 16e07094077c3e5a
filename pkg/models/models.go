package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VoucherType string

const (
	VoucherTypeSingleBook    VoucherType = "single_book"
	VoucherTypeMultipleBooks VoucherType = "multiple_books"
	VoucherTypeSeries        VoucherType = "series"
	VoucherTypeBookTag       VoucherType = "book_tag"
	VoucherTypeAllBooks      VoucherType = "all_books"
)

func (t VoucherType) Valid() bool {
	switch t {
	case VoucherTypeSingleBook, VoucherTypeMultipleBooks, VoucherTypeSeries, VoucherTypeBookTag, VoucherTypeAllBooks:
		return true
	}
	return false
}

type VoucherStatus string

const (
	VoucherStatusActive   VoucherStatus = "active"
	VoucherStatusInactive VoucherStatus = "inactive"
)

func (s VoucherStatus) Valid() bool {
	return s == VoucherStatusActive || s == VoucherStatusInactive
}

// Scope names the catalog content a voucher unlocks. Which field is
// meaningful depends on the voucher type.
type Scope struct {
	BookID   string   `json:"book_id,omitempty"`
	BookIDs  []string `json:"book_ids,omitempty"`
	SeriesID string   `json:"series_id,omitempty"`
	Tag      string   `json:"tag,omitempty"`
}

type Voucher struct {
	ID                uuid.UUID        `json:"id"`
	Code              string           `json:"code"`
	Type              VoucherType      `json:"type"`
	Scope             Scope            `json:"scope"`
	CreatedBy         *string          `json:"created_by,omitempty"`
	ClientID          string           `json:"client_id"`
	PaymentReceived   bool             `json:"payment_received"`
	Redeemed          bool             `json:"redeemed"`
	RedeemedAt        *time.Time       `json:"redeemed_at,omitempty"`
	RedeemedBy        *string          `json:"redeemed_by,omitempty"`
	CommissionRate    *decimal.Decimal `json:"commission_rate,omitempty"`
	CommissionPaid    bool             `json:"commission_paid"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	NumberOfDownloads int              `json:"number_of_downloads"`
	Status            VoucherStatus    `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
}

type SalesAgent struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	CommissionRate  decimal.Decimal `json:"commission_rate"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Entitlement is the download allowance granted when a voucher is redeemed.
type Entitlement struct {
	ID                 uuid.UUID   `json:"id"`
	UserID             string      `json:"user_id"`
	VoucherID          uuid.UUID   `json:"voucher_id"`
	Type               VoucherType `json:"type"`
	Scope              Scope       `json:"scope"`
	DownloadsRemaining int         `json:"downloads_remaining"`
	GrantedAt          time.Time   `json:"granted_at"`
}

type CommissionCredit struct {
	AgentID    string          `json:"agent_id"`
	Rate       decimal.Decimal `json:"rate"`
	Sale       decimal.Decimal `json:"sale"`
	Commission decimal.Decimal `json:"commission"`
}

type Redemption struct {
	Voucher     Voucher           `json:"voucher"`
	Entitlement Entitlement       `json:"entitlement"`
	Commission  *CommissionCredit `json:"commission,omitempty"`
}

type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

type Notification struct {
	ID        uuid.UUID          `json:"id"`
	Type      string             `json:"type"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Status    NotificationStatus `json:"status"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	SentAt    *time.Time         `json:"sent_at,omitempty"`
}

// PaymentGateway is the operator-managed switch for a checkout provider.
type PaymentGateway struct {
	Provider        string    `json:"provider"`
	Enabled         bool      `json:"enabled"`
	DefaultCurrency string    `json:"default_currency"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateVoucherRequest struct {
	Type              VoucherType     `json:"type" binding:"required"`
	Scope             Scope           `json:"scope"`
	ClientID          string          `json:"client_id" binding:"required"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	NumberOfDownloads int             `json:"number_of_downloads"`
	CreatedBy         *string         `json:"created_by"`
}

type RedeemVoucherRequest struct {
	VoucherID string `json:"voucherId" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
}

type RedeemVoucherResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
	Error       string       `json:"error,omitempty"`
	Entitlement *Entitlement `json:"entitlement,omitempty"`
}

type UpdateVoucherStatusRequest struct {
	Status VoucherStatus `json:"status" binding:"required"`
}

type CreateSalesAgentRequest struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" binding:"required"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

type SendNotificationRequest struct {
	Type      string            `json:"type" binding:"required"`
	Variables map[string]string `json:"variables"`
}

type CheckoutRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Email    string          `json:"email"`
	Currency string          `json:"currency"`
}

type UpdateGatewayRequest struct {
	Enabled         *bool  `json:"enabled" binding:"required"`
	DefaultCurrency string `json:"default_currency"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}
