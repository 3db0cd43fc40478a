/**
 * @description
 * Ingestion pipeline: pulls the full station listing from the fuel pricing
 * provider and idempotently persists station, latest price and price history
 * state. Per-station failures are collected without aborting the run; every
 * run leaves an audit row.
 *
 * @dependencies
 * - backend/internal/fuelapi
 * - backend/internal/store
 */

package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fuelwatch-project/backend/internal/fuelapi"
	"github.com/fuelwatch-project/backend/internal/logger"
	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/postcodes"
	"github.com/fuelwatch-project/backend/internal/store"
)

// StationLister is the upstream fetch, satisfied by fuelapi.Client.
type StationLister interface {
	ListAllStations(ctx context.Context) ([]fuelapi.StationRecord, error)
}

// SyncResult summarizes one ingestion run.
type SyncResult struct {
	Status            string   `json:"status"`
	StationsProcessed int      `json:"stations_processed"`
	PricesUpdated     int      `json:"prices_updated"`
	Errors            []string `json:"errors"`
}

// SyncService runs the station ingestion pipeline
type SyncService struct {
	stations store.StationStore
	runs     store.RunStore
	fuel     StationLister
}

// NewSyncService creates a new SyncService
func NewSyncService(stations store.StationStore, runs store.RunStore, fuel StationLister) *SyncService {
	return &SyncService{
		stations: stations,
		runs:     runs,
		fuel:     fuel,
	}
}

// RunSync fetches every station from the provider and applies each one as an
// atomic upsert. Replaying an identical payload yields the same final state
// and never duplicates history.
func (s *SyncService) RunSync(ctx context.Context) (*SyncResult, error) {
	started := time.Now()
	result := &SyncResult{}

	records, err := s.fuel.ListAllStations(ctx)
	if err != nil {
		// Nothing processed: token failure, exhausted retries or a malformed payload
		result.Status = models.RunStatusFailed
		result.Errors = append(result.Errors, err.Error())
		s.recordRun(ctx, started, result)
		return result, err
	}

	if len(records) == 0 {
		logger.Info("SyncService: provider returned zero stations")
		result.Status = models.RunStatusPartial
		s.recordRun(ctx, started, result)
		return result, nil
	}

	for i := range records {
		record := &records[i]
		inserted, err := s.stations.ApplyStationSnapshot(ctx, toSnapshot(record))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("station %s: %v", record.SiteID, err))
			continue
		}
		result.StationsProcessed++
		if inserted {
			result.PricesUpdated++
		}
	}

	switch {
	case result.StationsProcessed == 0:
		result.Status = models.RunStatusFailed
	case len(result.Errors) > 0:
		result.Status = models.RunStatusPartial
	default:
		result.Status = models.RunStatusSuccess
	}

	logger.Info("SyncService: %s: %d stations, %d price updates, %d errors",
		result.Status, result.StationsProcessed, result.PricesUpdated, len(result.Errors))

	s.recordRun(ctx, started, result)
	return result, nil
}

// recordRun appends the audit row. A failure here must never mask the run's
// own outcome, so it is only logged.
func (s *SyncService) recordRun(ctx context.Context, started time.Time, result *SyncResult) {
	run := &models.SyncRun{
		StartedAt:         started,
		FinishedAt:        time.Now(),
		Status:            result.Status,
		StationsProcessed: result.StationsProcessed,
		PricesUpdated:     result.PricesUpdated,
		ErrorSummary:      summarizeErrors(result.Errors),
	}
	if err := s.runs.InsertSyncRun(ctx, run); err != nil {
		logger.Error("SyncService: failed to record sync run: %v", err)
	}
}

func toSnapshot(record *fuelapi.StationRecord) store.StationSnapshot {
	sourceTS := record.LastUpdated.UTC()
	return store.StationSnapshot{
		Station: models.Station{
			ExternalID:      record.SiteID,
			Brand:           record.Brand,
			Name:            record.Name,
			Address:         record.Address,
			Postcode:        postcodes.Normalize(record.Postcode),
			Latitude:        *record.Latitude,
			Longitude:       *record.Longitude,
			Amenities:       record.Amenities,
			OpeningHours:    record.OpeningHours,
			SourceUpdatedAt: &sourceTS,
		},
		PetrolPPL:       roundPPL(record.Prices.PetrolPPL),
		DieselPPL:       roundPPL(record.Prices.DieselPPL),
		SourceTimestamp: sourceTS,
	}
}

// roundPPL converts the provider's fractional pence to whole pence-per-litre.
func roundPPL(v *float64) *int {
	if v == nil {
		return nil
	}
	p := int(math.Round(*v))
	return &p
}

func summarizeErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	const maxLen = 2000
	joined := strings.Join(errs, "; ")
	if len(joined) > maxLen {
		joined = joined[:maxLen] + "..."
	}
	return joined
}
