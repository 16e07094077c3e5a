package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/payment"
	"github.com/sirupsen/logrus"
)

type CheckoutService interface {
	CreateSession(ctx context.Context, provider string, req models.CheckoutRequest) (string, error)
	ConfigureGateway(ctx context.Context, provider string, req models.UpdateGatewayRequest) (*models.PaymentGateway, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
}

func NewCheckoutHandler(checkout CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

func checkoutStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, payment.ErrUnknownProvider):
		return http.StatusNotFound, true
	case errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrInvalidCurrency),
		errors.Is(err, payment.ErrEmailRequired):
		return http.StatusBadRequest, true
	case errors.Is(err, payment.ErrGatewayDisabled), errors.Is(err, payment.ErrNotConfigured):
		return http.StatusServiceUnavailable, true
	}
	return http.StatusBadGateway, false
}

func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	provider := c.Param("provider")
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("CreateSession: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	url, err := h.checkout.CreateSession(c.Request.Context(), provider, req)
	if err != nil {
		log := logrus.WithFields(logrus.Fields{"provider": provider, "currency": req.Currency})
		status, known := checkoutStatus(err)
		if known {
			log.WithError(err).Warn("CreateSession: Checkout rejected")
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("CreateSession: Failed to create checkout session")
		c.JSON(status, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, models.CheckoutResponse{URL: url})
}

func (h *CheckoutHandler) UpdateGateway(c *gin.Context) {
	provider := c.Param("provider")
	var req models.UpdateGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("UpdateGateway: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	g, err := h.checkout.ConfigureGateway(c.Request.Context(), provider, req)
	if err != nil {
		status, known := checkoutStatus(err)
		if !known {
			logrus.WithField("provider", provider).WithError(err).Error("UpdateGateway: Failed to save gateway")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save gateway settings"})
			return
		}
		logrus.WithField("provider", provider).WithError(err).Warn("UpdateGateway: Request rejected")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, g)
}
