/**
 * @description
 * Geocode cache database model.
 * Maps to the 'geocode_cache' table in PostgreSQL.
 * Keyed by the canonical normalized postcode; entries never expire (postcodes do
 * not move), last_accessed_at exists for eviction analytics only.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// GeocodeCache stores resolved coordinates for a normalized postcode
type GeocodeCache struct {
	Postcode       string    `gorm:"primaryKey;column:postcode" json:"postcode"`
	Latitude       float64   `gorm:"column:latitude" json:"latitude"`
	Longitude      float64   `gorm:"column:longitude" json:"longitude"`
	LastAccessedAt time.Time `gorm:"column:last_accessed_at" json:"last_accessed_at"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by GeocodeCache to `geocode_cache`
func (GeocodeCache) TableName() string {
	return "geocode_cache"
}
