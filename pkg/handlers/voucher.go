package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/repository"
	"github.com/medreza/bookstore-voucher-service/pkg/voucher"
	"github.com/sirupsen/logrus"
)

type VoucherService interface {
	IssueVoucher(ctx context.Context, req models.CreateVoucherRequest) (*models.Voucher, error)
	RedeemVoucher(ctx context.Context, voucherID, userID string) (*models.Redemption, error)
	GetVoucher(ctx context.Context, voucherID string) (*models.Voucher, error)
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	SetStatus(ctx context.Context, voucherID string, status models.VoucherStatus) (*models.Voucher, error)
	MarkPaymentReceived(ctx context.Context, voucherID string) (*models.Voucher, error)
	MarkCommissionPaid(ctx context.Context, voucherID string) (*models.Voucher, error)
	ListAgentVouchers(ctx context.Context, agentID string) ([]models.Voucher, error)
	ListEntitlements(ctx context.Context, userID string) ([]models.Entitlement, error)
	CreateSalesAgent(ctx context.Context, req models.CreateSalesAgentRequest) (*models.SalesAgent, error)
	GetSalesAgent(ctx context.Context, id string) (*models.SalesAgent, error)
}

type VoucherHandler struct {
	vouchers VoucherService
}

func NewVoucherHandler(vouchers VoucherService) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers}
}

// errorStatus maps domain errors onto HTTP status codes. The second return
// is false for errors that are not part of the domain contract.
func errorStatus(err error) (int, bool) {
	var verr voucher.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, true
	case errors.Is(err, voucher.ErrRateLimited):
		return http.StatusTooManyRequests, true
	case errors.Is(err, repository.ErrVoucherNotFound), errors.Is(err, repository.ErrSalesAgentNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, repository.ErrAlreadyRedeemed),
		errors.Is(err, repository.ErrVoucherInactive),
		errors.Is(err, repository.ErrCodeExists),
		errors.Is(err, repository.ErrSalesAgentExists),
		errors.Is(err, repository.ErrCommissionNotDue):
		return http.StatusConflict, true
	}
	return http.StatusInternalServerError, false
}

func respondError(c *gin.Context, log *logrus.Entry, op string, err error) {
	status, known := errorStatus(err)
	if !known {
		log.WithError(err).Error(op + ": Failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	log.WithError(err).Warn(op + ": Request rejected")
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	var req models.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("CreateVoucher: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	v, err := h.vouchers.IssueVoucher(c.Request.Context(), req)
	if err != nil {
		respondError(c, logrus.WithFields(logrus.Fields{"type": req.Type, "client_id": req.ClientID}), "CreateVoucher", err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

// RedeemVoucher answers with the {success, message|error} envelope used by
// the storefront. Domain failures are all 400 except rate limiting.
func (h *VoucherHandler) RedeemVoucher(c *gin.Context) {
	var req models.RedeemVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("RedeemVoucher: Invalid request body")
		c.JSON(http.StatusBadRequest, models.RedeemVoucherResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	redemption, err := h.vouchers.RedeemVoucher(c.Request.Context(), req.VoucherID, req.UserID)
	if err != nil {
		log := logrus.WithFields(logrus.Fields{
			"voucher_id": req.VoucherID,
			"user_id":    req.UserID,
		})

		status, known := errorStatus(err)
		switch {
		case status == http.StatusTooManyRequests:
			log.Warn("RedeemVoucher: Rate limit exceeded")
			c.JSON(status, models.RedeemVoucherResponse{Error: err.Error()})
		case known:
			log.WithError(err).Warn("RedeemVoucher: Redemption rejected")
			c.JSON(http.StatusBadRequest, models.RedeemVoucherResponse{Error: err.Error()})
		default:
			log.WithError(err).Error("RedeemVoucher: Failed to redeem voucher")
			c.JSON(http.StatusInternalServerError, models.RedeemVoucherResponse{Error: "Failed to redeem voucher"})
		}
		return
	}

	c.JSON(http.StatusOK, models.RedeemVoucherResponse{
		Success:     true,
		Message:     "Voucher redeemed successfully",
		Entitlement: &redemption.Entitlement,
	})
}

func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	id := c.Param("id")
	v, err := h.vouchers.GetVoucher(c.Request.Context(), id)
	if err != nil {
		respondError(c, logrus.WithField("voucher_id", id), "GetVoucher", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *VoucherHandler) GetVoucherByCode(c *gin.Context) {
	code := c.Param("code")
	v, err := h.vouchers.GetVoucherByCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, logrus.WithField("code", code), "GetVoucherByCode", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *VoucherHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	var req models.UpdateVoucherStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("UpdateStatus: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	v, err := h.vouchers.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, logrus.WithFields(logrus.Fields{"voucher_id": id, "status": req.Status}), "UpdateStatus", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *VoucherHandler) MarkPaymentReceived(c *gin.Context) {
	id := c.Param("id")
	v, err := h.vouchers.MarkPaymentReceived(c.Request.Context(), id)
	if err != nil {
		respondError(c, logrus.WithField("voucher_id", id), "MarkPaymentReceived", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *VoucherHandler) MarkCommissionPaid(c *gin.Context) {
	id := c.Param("id")
	v, err := h.vouchers.MarkCommissionPaid(c.Request.Context(), id)
	if err != nil {
		respondError(c, logrus.WithField("voucher_id", id), "MarkCommissionPaid", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *VoucherHandler) ListEntitlements(c *gin.Context) {
	userID := c.Param("id")
	entitlements, err := h.vouchers.ListEntitlements(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logrus.WithField("user_id", userID), "ListEntitlements", err)
		return
	}
	if entitlements == nil {
		entitlements = make([]models.Entitlement, 0)
	}
	c.JSON(http.StatusOK, entitlements)
}

func (h *VoucherHandler) CreateSalesAgent(c *gin.Context) {
	var req models.CreateSalesAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("CreateSalesAgent: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	a, err := h.vouchers.CreateSalesAgent(c.Request.Context(), req)
	if err != nil {
		respondError(c, logrus.WithField("agent_id", req.ID), "CreateSalesAgent", err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *VoucherHandler) GetSalesAgent(c *gin.Context) {
	id := c.Param("id")
	a, err := h.vouchers.GetSalesAgent(c.Request.Context(), id)
	if err != nil {
		respondError(c, logrus.WithField("agent_id", id), "GetSalesAgent", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *VoucherHandler) ListAgentVouchers(c *gin.Context) {
	id := c.Param("id")
	vouchers, err := h.vouchers.ListAgentVouchers(c.Request.Context(), id)
	if err != nil {
		respondError(c, logrus.WithField("agent_id", id), "ListAgentVouchers", err)
		return
	}
	if vouchers == nil {
		vouchers = make([]models.Voucher, 0)
	}
	c.JSON(http.StatusOK, vouchers)
}
