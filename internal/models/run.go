/**
 * @description
 * Audit row models for ingestion and alert batch runs.
 * Maps to the 'sync_runs' and 'alert_runs' tables in PostgreSQL.
 * Rows are append-only and never mutated after creation.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Run statuses shared by sync and alert audit rows
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// SyncRun records one execution of the ingestion pipeline
type SyncRun struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	StartedAt         time.Time `gorm:"column:started_at" json:"started_at"`
	FinishedAt        time.Time `gorm:"column:finished_at" json:"finished_at"`
	Status            string    `gorm:"column:status" json:"status"`
	StationsProcessed int       `gorm:"column:stations_processed" json:"stations_processed"`
	PricesUpdated     int       `gorm:"column:prices_updated" json:"prices_updated"`
	ErrorSummary      string    `gorm:"column:error_summary" json:"error_summary"`
}

// TableName overrides the table name used by SyncRun to `sync_runs`
func (SyncRun) TableName() string {
	return "sync_runs"
}

// AlertRun records one execution of the alert evaluation batch
type AlertRun struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	StartedAt      time.Time `gorm:"column:started_at" json:"started_at"`
	FinishedAt     time.Time `gorm:"column:finished_at" json:"finished_at"`
	Status         string    `gorm:"column:status" json:"status"`
	RulesEvaluated int       `gorm:"column:rules_evaluated" json:"rules_evaluated"`
	Triggered      int       `gorm:"column:triggered" json:"triggered"`
	ErrorSummary   string    `gorm:"column:error_summary" json:"error_summary"`
}

// TableName overrides the table name used by AlertRun to `alert_runs`
func (AlertRun) TableName() string {
	return "alert_runs"
}
