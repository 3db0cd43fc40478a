/**
 * @description
 * Station, latest price and price history database models.
 * Maps to the 'stations', 'station_prices' and 'price_history' tables in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Fuel type identifiers used across search and alert rules
const (
	FuelPetrol = "petrol"
	FuelDiesel = "diesel"
)

// Station represents a forecourt reported by the upstream pricing provider.
// The provider's site identifier is the immutable primary key.
type Station struct {
	ExternalID      string     `gorm:"primaryKey;column:external_id" json:"external_id"`
	Brand           string     `gorm:"column:brand" json:"brand"`
	Name            string     `gorm:"column:name" json:"name"`
	Address         string     `gorm:"column:address" json:"address"`
	Postcode        string     `gorm:"column:postcode;index" json:"postcode"`
	Latitude        float64    `gorm:"column:latitude" json:"latitude"`
	Longitude       float64    `gorm:"column:longitude" json:"longitude"`
	Amenities       string     `gorm:"column:amenities" json:"amenities"`           // free-form JSON payload from the provider
	OpeningHours    string     `gorm:"column:opening_hours" json:"opening_hours"`   // free-form JSON payload from the provider
	SourceUpdatedAt *time.Time `gorm:"column:source_updated_at" json:"source_updated_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by Station to `stations`
func (Station) TableName() string {
	return "stations"
}

// StationPrice is the single "latest price" record owned 1:1 by a Station.
// Prices are integer pence-per-litre; nil means the station does not sell that fuel.
type StationPrice struct {
	StationID       string    `gorm:"primaryKey;column:station_id" json:"station_id"`
	PetrolPPL       *int      `gorm:"column:petrol_ppl" json:"petrol_ppl"`
	DieselPPL       *int      `gorm:"column:diesel_ppl" json:"diesel_ppl"`
	SourceTimestamp time.Time `gorm:"column:source_timestamp" json:"source_timestamp"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by StationPrice to `station_prices`
func (StationPrice) TableName() string {
	return "station_prices"
}

// PriceHistory is an append-only price point for a station.
// The (station_id, source_timestamp) unique index is what makes re-ingesting
// the same upstream snapshot a no-op.
type PriceHistory struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	StationID       string    `gorm:"column:station_id;uniqueIndex:idx_price_history_station_ts" json:"station_id"`
	SourceTimestamp time.Time `gorm:"column:source_timestamp;uniqueIndex:idx_price_history_station_ts" json:"source_timestamp"`
	PetrolPPL       *int      `gorm:"column:petrol_ppl" json:"petrol_ppl"`
	DieselPPL       *int      `gorm:"column:diesel_ppl" json:"diesel_ppl"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by PriceHistory to `price_history`
func (PriceHistory) TableName() string {
	return "price_history"
}
