package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"shiftmarket/internal/services"
	"shiftmarket/pkg/logger"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	log           logger.Logger
}

type NotificationResponse struct {
	NotificationID string `json:"notification_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Read           bool   `json:"read"`
}

func NewNotificationHandler(notifications *services.NotificationService, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		log:           log,
	}
}

func (h *NotificationHandler) ListForUser(c echo.Context) error {
	userID := c.Param("userID")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	notifications, err := h.notifications.GetNotifications(c.Request().Context(), userID, limit)
	if err != nil {
		h.log.Error("Failed to list notifications", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list notifications"})
	}

	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NotificationResponse{
			NotificationID: notification.ID,
			Title:          notification.Title,
			Body:           notification.Body,
			Read:           notification.Read,
		})
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	notificationID := c.Param("id")

	if err := h.notifications.MarkRead(c.Request().Context(), notificationID); err != nil {
		h.log.Error("Failed to mark notification read", "notification_id", notificationID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to mark read"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked read"})
}
