/**
 * @description
 * Notification dispatcher for price-drop alerts.
 * The default implementation stores notification rows for in-app delivery;
 * push transport lives behind the same interface elsewhere.
 *
 * @dependencies
 * - backend/internal/store
 * - github.com/google/uuid
 */

package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fuelwatch-project/backend/internal/logger"
	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/store"
	"github.com/google/uuid"
)

// Dispatcher delivers an alert to a user. Implementations must only return nil
// once the notification is durably handed off, because the alert engine
// records trigger state strictly after a successful dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID uuid.UUID, title, message string, data map[string]interface{}) error
}

// NotificationService is the DB-backed Dispatcher
type NotificationService struct {
	notifications store.NotificationStore
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications store.NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// Dispatch persists one notification row for the user.
func (s *NotificationService) Dispatch(ctx context.Context, userID uuid.UUID, title, message string, data map[string]interface{}) error {
	payload := ""
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		payload = string(raw)
	}

	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Data:      payload,
		Read:      false,
		CreatedAt: time.Now(),
	}

	if err := s.notifications.InsertNotification(ctx, n); err != nil {
		logger.Error("NotificationService: failed to create notification for %s: %v", userID, err)
		return err
	}
	return nil
}
