package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/greygj/Calendrax1.3-sub000/services/notification-service/internal/storage"
)

type NotificationsHandler struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func NewNotificationsHandler(repo *storage.Repository, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{repo: repo, logger: logger}
}

type notificationItem struct {
	NotificationID string `json:"notification_id"`
	AppointmentID  string `json:"appointment_id"`
	BusinessID     string `json:"business_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"created_at"`
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	notifications, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}

	items := make([]notificationItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, notificationItem{
			NotificationID: n.ID,
			AppointmentID:  n.AppointmentID,
			BusinessID:     n.BusinessID,
			Type:           n.Type,
			Title:          n.Title,
			Message:        n.Message,
			Read:           n.Read,
			CreatedAt:      n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	body, err := json.Marshal(items)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type markReadRequest struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
}

func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.NotificationID = strings.TrimSpace(req.NotificationID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.NotificationID == "" || req.UserID == "" {
		http.Error(w, "notification_id and user_id required", http.StatusBadRequest)
		return
	}

	ok, err := h.repo.MarkRead(r.Context(), req.NotificationID, req.UserID)
	if err != nil {
		http.Error(w, "failed to mark notification read", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type markAllReadRequest struct {
	UserID string `json:"user_id"`
}

func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req markAllReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	if err := h.repo.MarkAllRead(r.Context(), req.UserID); err != nil {
		http.Error(w, "failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
