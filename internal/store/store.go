/**
 * @description
 * Persistence collaborator interfaces for the FuelWatch core.
 * Services depend on these small interfaces rather than on gorm directly so the
 * pipeline, search and alert engine can be exercised against in-memory fakes.
 *
 * @dependencies
 * - backend/internal/models
 * - github.com/google/uuid
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// StationSnapshot is one validated upstream record ready to persist.
type StationSnapshot struct {
	Station         models.Station
	PetrolPPL       *int
	DieselPPL       *int
	SourceTimestamp time.Time
}

// StationWithPrice is a station joined with its latest price record.
// The price fields are nil when no price has been ingested yet.
type StationWithPrice struct {
	models.Station
	PetrolPPL      *int
	DieselPPL      *int
	PriceTimestamp *time.Time
}

// StationStore covers ingestion writes and the read side of proximity search.
type StationStore interface {
	// ApplyStationSnapshot persists one snapshot as a single atomic unit:
	// station upsert, latest-price upsert, history insert-if-absent.
	// The returned flag reports whether a new history entry was written;
	// replaying an identical snapshot returns false and changes nothing.
	ApplyStationSnapshot(ctx context.Context, snap StationSnapshot) (bool, error)
	ListStationsWithPrices(ctx context.Context) ([]StationWithPrice, error)
	GetStationWithPrice(ctx context.Context, externalID string) (*StationWithPrice, error)
}

// GeocodeStore is the durable postcode-to-coordinates cache.
type GeocodeStore interface {
	GetGeocode(ctx context.Context, postcode string) (*models.GeocodeCache, error)
	PutGeocode(ctx context.Context, entry *models.GeocodeCache) error
	// TouchGeocode refreshes the last-access marker on a cache hit.
	TouchGeocode(ctx context.Context, postcode string, at time.Time) error
}

// AlertStore covers alert rule reads and the post-notification state updates.
type AlertStore interface {
	// ListEnabledRules returns enabled rules in stable (user, creation) order.
	ListEnabledRules(ctx context.Context) ([]models.AlertRule, error)
	// CountTriggersSince counts the user's rules whose last trigger falls inside
	// the rolling window starting at since.
	CountTriggersSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	// MarkRuleTriggered advances cooldown state after a successful dispatch.
	MarkRuleTriggered(ctx context.Context, ruleID uuid.UUID, at time.Time, notifiedPPL int) error
	// SeedRuleBaseline records a first observed price without starting a cooldown.
	SeedRuleBaseline(ctx context.Context, ruleID uuid.UUID, baselinePPL int) error
}

// NotificationStore persists dispatched notifications for in-app delivery.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// RunStore appends audit rows. Rows are never mutated after insert.
type RunStore interface {
	InsertSyncRun(ctx context.Context, run *models.SyncRun) error
	InsertAlertRun(ctx context.Context, run *models.AlertRun) error
}
