package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/medreza/bookstore-voucher-service/pkg/models"
	"github.com/medreza/bookstore-voucher-service/pkg/notification"
	"github.com/sirupsen/logrus"
)

type NotificationService interface {
	Dispatch(ctx context.Context, m notification.Message) (*models.Notification, error)
	History(ctx context.Context, limit int) ([]models.Notification, error)
}

type NotificationHandler struct {
	notifications NotificationService
}

func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) SendNotification(c *gin.Context) {
	var req models.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithField("error", err).Warn("SendNotification: Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	msg, err := notification.Parse(req.Type, req.Variables)
	if err != nil {
		var ferr notification.FieldError
		if errors.As(err, &ferr) {
			logrus.WithFields(logrus.Fields{"type": req.Type, "field": ferr.Field}).Warn("SendNotification: Missing variables")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logrus.WithError(err).Error("SendNotification: Failed to build message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build notification"})
		return
	}

	if _, err := h.notifications.Dispatch(c.Request.Context(), msg); err != nil {
		logrus.WithField("type", req.Type).WithError(err).Error("SendNotification: Failed to send notification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			logrus.WithField("limit", raw).Warn("ListNotifications: Invalid limit")
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	history, err := h.notifications.History(c.Request.Context(), limit)
	if err != nil {
		logrus.WithError(err).Error("ListNotifications: Failed to list notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	if history == nil {
		history = make([]models.Notification, 0)
	}
	c.JSON(http.StatusOK, history)
}
