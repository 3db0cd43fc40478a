/**
 * @description
 * Alert rule and notification database models.
 * Maps to the 'alert_rules' and 'notifications' tables in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertRule is a user's standing price-drop alert.
// Exactly one of Postcode or (Latitude, Longitude) identifies the search origin.
// LastNotifiedPPL is the baseline the next drop is measured against; nil means
// no baseline has been established yet.
type AlertRule struct {
	ID              uuid.UUID  `gorm:"primaryKey;column:id;type:uuid" json:"id"`
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Postcode        *string    `gorm:"column:postcode" json:"postcode"`
	Latitude        *float64   `gorm:"column:latitude" json:"latitude"`
	Longitude       *float64   `gorm:"column:longitude" json:"longitude"`
	RadiusMiles     float64    `gorm:"column:radius_miles" json:"radius_miles"`
	FuelType        string     `gorm:"column:fuel_type" json:"fuel_type"` // "petrol" or "diesel"
	ThresholdPPL    int        `gorm:"column:threshold_ppl" json:"threshold_ppl"`
	Enabled         bool       `gorm:"column:enabled;default:true" json:"enabled"`
	LastTriggeredAt *time.Time `gorm:"column:last_triggered_at" json:"last_triggered_at"`
	LastNotifiedPPL *int       `gorm:"column:last_notified_ppl" json:"last_notified_ppl"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by AlertRule to `alert_rules`
func (AlertRule) TableName() string {
	return "alert_rules"
}

// HasCoordinates reports whether the rule carries an explicit origin.
func (r *AlertRule) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Notification is a dispatched price-drop alert, stored for in-app delivery.
type Notification struct {
	ID        uuid.UUID `gorm:"primaryKey;column:id;type:uuid" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	Title     string    `gorm:"column:title" json:"title"`
	Message   string    `gorm:"column:message" json:"message"`
	Data      string    `gorm:"column:data" json:"data"` // JSON payload for the client
	Read      bool      `gorm:"column:read;default:false" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name used by Notification to `notifications`
func (Notification) TableName() string {
	return "notifications"
}
