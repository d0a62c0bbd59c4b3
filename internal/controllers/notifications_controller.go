package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/invoflow/invoflow/internal/engine"
)

// NotificationsController exposes the in-app notification feed.
type NotificationsController struct {
	NotificationRepo engine.NotificationRepo
}

func NewNotificationsController(notificationRepo engine.NotificationRepo) *NotificationsController {
	return &NotificationsController{NotificationRepo: notificationRepo}
}

func (c *NotificationsController) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	notifications, err := c.NotificationRepo.FindRecent(limit)
	if err != nil {
		slog.Error("Failed to load notifications", "error", err)
		http.Error(w, "failed to load notifications", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(notifications)
}
