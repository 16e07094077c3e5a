package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP router for the voucher service.
func NewRouter(vouchers *VoucherHandler, notifications *NotificationHandler, checkout *CheckoutHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), CORS())

	api := router.Group("/api")
	{
		api.POST("/vouchers", vouchers.CreateVoucher)
		api.POST("/vouchers/redeem", vouchers.RedeemVoucher)
		api.GET("/vouchers/:id", vouchers.GetVoucher)
		api.GET("/vouchers/code/:code", vouchers.GetVoucherByCode)
		api.PATCH("/vouchers/:id/status", vouchers.UpdateStatus)
		api.POST("/vouchers/:id/payment-received", vouchers.MarkPaymentReceived)
		api.POST("/vouchers/:id/commission-paid", vouchers.MarkCommissionPaid)

		api.POST("/agents", vouchers.CreateSalesAgent)
		api.GET("/agents/:id", vouchers.GetSalesAgent)
		api.GET("/agents/:id/vouchers", vouchers.ListAgentVouchers)

		api.GET("/users/:id/entitlements", vouchers.ListEntitlements)

		api.POST("/notifications/send", notifications.SendNotification)
		api.GET("/notifications", notifications.ListNotifications)

		api.POST("/checkout/:provider", checkout.CreateSession)
		api.PUT("/gateways/:provider", checkout.UpdateGateway)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
