/**
 * @description
 * GORM-backed implementation of the persistence collaborator interfaces.
 * Upserts use ON CONFLICT clauses; the three-step station write runs inside one
 * transaction and is retried on Postgres deadlock/serialization failures.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgconn (Postgres error codes)
 * - backend/internal/models
 */

package store

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertMaxRetries = 5

// GormStore implements every store interface on a single gorm.DB.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the core tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Station{},
		&models.StationPrice{},
		&models.PriceHistory{},
		&models.GeocodeCache{},
		&models.AlertRule{},
		&models.Notification{},
		&models.SyncRun{},
		&models.AlertRun{},
	)
}

// ApplyStationSnapshot writes station, latest price and history as one
// transaction. The latest price only moves forward: it is overwritten when the
// incoming source timestamp is newer or equal, never rolled back. The history
// insert is keyed on (station, source timestamp) so replays are no-ops.
func (s *GormStore) ApplyStationSnapshot(ctx context.Context, snap StationSnapshot) (bool, error) {
	var inserted bool

	var err error
	for attempt := 1; attempt <= upsertMaxRetries; attempt++ {
		inserted = false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			station := snap.Station
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "external_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"brand",
					"name",
					"address",
					"postcode",
					"latitude",
					"longitude",
					"amenities",
					"opening_hours",
					"source_updated_at",
					"updated_at",
				}),
			}).Create(&station).Error; err != nil {
				return err
			}

			price := models.StationPrice{
				StationID:       snap.Station.ExternalID,
				PetrolPPL:       snap.PetrolPPL,
				DieselPPL:       snap.DieselPPL,
				SourceTimestamp: snap.SourceTimestamp,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "station_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"petrol_ppl":       snap.PetrolPPL,
					"diesel_ppl":       snap.DieselPPL,
					"source_timestamp": snap.SourceTimestamp,
					"updated_at":       time.Now(),
				}),
				Where: clause.Where{Exprs: []clause.Expression{
					gorm.Expr("station_prices.source_timestamp <= excluded.source_timestamp"),
				}},
			}).Create(&price).Error; err != nil {
				return err
			}

			history := models.PriceHistory{
				StationID:       snap.Station.ExternalID,
				SourceTimestamp: snap.SourceTimestamp,
				PetrolPPL:       snap.PetrolPPL,
				DieselPPL:       snap.DieselPPL,
			}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "station_id"}, {Name: "source_timestamp"}},
				DoNothing: true,
			}).Create(&history)
			if result.Error != nil {
				// A unique violation that slipped past ON CONFLICT means the
				// snapshot is already applied, which is fine.
				if isUniqueViolation(result.Error) {
					return nil
				}
				return result.Error
			}
			inserted = result.RowsAffected > 0
			return nil
		})
		if err == nil {
			return inserted, nil
		}
		if !isRetryablePgError(err) {
			break
		}
		backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
		time.Sleep(backoff)
	}

	return false, err
}

// ListStationsWithPrices loads every station and joins its latest price in memory.
func (s *GormStore) ListStationsWithPrices(ctx context.Context) ([]StationWithPrice, error) {
	var stations []models.Station
	if err := s.db.WithContext(ctx).Find(&stations).Error; err != nil {
		return nil, err
	}

	var prices []models.StationPrice
	if err := s.db.WithContext(ctx).Find(&prices).Error; err != nil {
		return nil, err
	}

	byStation := make(map[string]models.StationPrice, len(prices))
	for _, p := range prices {
		byStation[p.StationID] = p
	}

	out := make([]StationWithPrice, 0, len(stations))
	for _, st := range stations {
		item := StationWithPrice{Station: st}
		if p, ok := byStation[st.ExternalID]; ok {
			item.PetrolPPL = p.PetrolPPL
			item.DieselPPL = p.DieselPPL
			ts := p.SourceTimestamp
			item.PriceTimestamp = &ts
		}
		out = append(out, item)
	}
	return out, nil
}

// GetStationWithPrice loads one station by external id.
func (s *GormStore) GetStationWithPrice(ctx context.Context, externalID string) (*StationWithPrice, error) {
	var station models.Station
	if err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&station).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	item := &StationWithPrice{Station: station}

	var price models.StationPrice
	err := s.db.WithContext(ctx).Where("station_id = ?", externalID).First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item, nil
		}
		return nil, err
	}
	item.PetrolPPL = price.PetrolPPL
	item.DieselPPL = price.DieselPPL
	ts := price.SourceTimestamp
	item.PriceTimestamp = &ts
	return item, nil
}

// GetGeocode returns the cached entry for a normalized postcode, or ErrNotFound.
func (s *GormStore) GetGeocode(ctx context.Context, postcode string) (*models.GeocodeCache, error) {
	var entry models.GeocodeCache
	if err := s.db.WithContext(ctx).Where("postcode = ?", postcode).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// PutGeocode stores or refreshes a geocode cache entry.
func (s *GormStore) PutGeocode(ctx context.Context, entry *models.GeocodeCache) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "postcode"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"latitude",
			"longitude",
			"last_accessed_at",
		}),
	}).Create(entry).Error
}

// TouchGeocode refreshes the last-access marker.
func (s *GormStore) TouchGeocode(ctx context.Context, postcode string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.GeocodeCache{}).
		Where("postcode = ?", postcode).
		Update("last_accessed_at", at).Error
}

// ListEnabledRules returns enabled rules ordered by user then creation time so
// the per-user daily cap is applied deterministically.
func (s *GormStore) ListEnabledRules(ctx context.Context) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	if err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("user_id, created_at, id").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// CountTriggersSince counts the user's rules triggered inside the rolling window.
func (s *GormStore) CountTriggersSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.AlertRule{}).
		Where("user_id = ? AND last_triggered_at >= ?", userID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRuleTriggered records a successful notification on the rule.
func (s *GormStore) MarkRuleTriggered(ctx context.Context, ruleID uuid.UUID, at time.Time, notifiedPPL int) error {
	return s.db.WithContext(ctx).
		Model(&models.AlertRule{}).
		Where("id = ?", ruleID).
		Updates(map[string]interface{}{
			"last_triggered_at": at,
			"last_notified_ppl": notifiedPPL,
		}).Error
}

// SeedRuleBaseline sets the first observed price without touching cooldown state.
func (s *GormStore) SeedRuleBaseline(ctx context.Context, ruleID uuid.UUID, baselinePPL int) error {
	return s.db.WithContext(ctx).
		Model(&models.AlertRule{}).
		Where("id = ? AND last_notified_ppl IS NULL", ruleID).
		Update("last_notified_ppl", baselinePPL).Error
}

// InsertNotification appends one notification row.
func (s *GormStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

// InsertSyncRun appends an ingestion audit row.
func (s *GormStore) InsertSyncRun(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

// InsertAlertRun appends an alert batch audit row.
func (s *GormStore) InsertAlertRun(ctx context.Context, run *models.AlertRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func isRetryablePgError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40P01" || pgErr.Code == "40001"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
