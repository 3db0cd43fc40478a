package services

import (
	"context"
	"sort"
	"time"

	"github.com/fuelwatch-project/backend/internal/fuelapi"
	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/postcodes"
	"github.com/fuelwatch-project/backend/internal/store"
	"github.com/google/uuid"
)

// memStationStore is an in-memory store.StationStore
type memStationStore struct {
	stations map[string]models.Station
	prices   map[string]models.StationPrice
	history  map[string]map[time.Time]models.PriceHistory
	applyErr map[string]error // per-station injected failures
}

func newMemStationStore() *memStationStore {
	return &memStationStore{
		stations: make(map[string]models.Station),
		prices:   make(map[string]models.StationPrice),
		history:  make(map[string]map[time.Time]models.PriceHistory),
		applyErr: make(map[string]error),
	}
}

func (m *memStationStore) ApplyStationSnapshot(ctx context.Context, snap store.StationSnapshot) (bool, error) {
	id := snap.Station.ExternalID
	if err := m.applyErr[id]; err != nil {
		return false, err
	}

	m.stations[id] = snap.Station

	if existing, ok := m.prices[id]; !ok || !existing.SourceTimestamp.After(snap.SourceTimestamp) {
		m.prices[id] = models.StationPrice{
			StationID:       id,
			PetrolPPL:       snap.PetrolPPL,
			DieselPPL:       snap.DieselPPL,
			SourceTimestamp: snap.SourceTimestamp,
		}
	}

	if m.history[id] == nil {
		m.history[id] = make(map[time.Time]models.PriceHistory)
	}
	key := snap.SourceTimestamp.UTC()
	if _, ok := m.history[id][key]; ok {
		return false, nil
	}
	m.history[id][key] = models.PriceHistory{
		StationID:       id,
		SourceTimestamp: key,
		PetrolPPL:       snap.PetrolPPL,
		DieselPPL:       snap.DieselPPL,
	}
	return true, nil
}

func (m *memStationStore) ListStationsWithPrices(ctx context.Context) ([]store.StationWithPrice, error) {
	ids := make([]string, 0, len(m.stations))
	for id := range m.stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]store.StationWithPrice, 0, len(ids))
	for _, id := range ids {
		item := store.StationWithPrice{Station: m.stations[id]}
		if p, ok := m.prices[id]; ok {
			item.PetrolPPL = p.PetrolPPL
			item.DieselPPL = p.DieselPPL
			ts := p.SourceTimestamp
			item.PriceTimestamp = &ts
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *memStationStore) GetStationWithPrice(ctx context.Context, externalID string) (*store.StationWithPrice, error) {
	st, ok := m.stations[externalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	item := &store.StationWithPrice{Station: st}
	if p, ok := m.prices[externalID]; ok {
		item.PetrolPPL = p.PetrolPPL
		item.DieselPPL = p.DieselPPL
		ts := p.SourceTimestamp
		item.PriceTimestamp = &ts
	}
	return item, nil
}

// addStation seeds a station with a latest petrol/diesel price.
func (m *memStationStore) addStation(id string, lat, lng float64, petrol, diesel *int) {
	m.stations[id] = models.Station{
		ExternalID: id,
		Name:       "Station " + id,
		Postcode:   "SW1A 1AA",
		Latitude:   lat,
		Longitude:  lng,
	}
	m.prices[id] = models.StationPrice{
		StationID:       id,
		PetrolPPL:       petrol,
		DieselPPL:       diesel,
		SourceTimestamp: time.Now(),
	}
}

// memGeocodeStore is an in-memory store.GeocodeStore
type memGeocodeStore struct {
	entries map[string]models.GeocodeCache
	touches int
}

func newMemGeocodeStore() *memGeocodeStore {
	return &memGeocodeStore{entries: make(map[string]models.GeocodeCache)}
}

func (m *memGeocodeStore) GetGeocode(ctx context.Context, postcode string) (*models.GeocodeCache, error) {
	entry, ok := m.entries[postcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &entry, nil
}

func (m *memGeocodeStore) PutGeocode(ctx context.Context, entry *models.GeocodeCache) error {
	m.entries[entry.Postcode] = *entry
	return nil
}

func (m *memGeocodeStore) TouchGeocode(ctx context.Context, postcode string, at time.Time) error {
	if entry, ok := m.entries[postcode]; ok {
		entry.LastAccessedAt = at
		m.entries[postcode] = entry
	}
	m.touches++
	return nil
}

// memAlertStore is an in-memory store.AlertStore
type memAlertStore struct {
	rules    []models.AlertRule
	seeded   map[uuid.UUID]int
	seedErr  error
	markErr  error
	countErr error
}

func newMemAlertStore(rules ...models.AlertRule) *memAlertStore {
	return &memAlertStore{rules: rules, seeded: make(map[uuid.UUID]int)}
}

func (m *memAlertStore) ListEnabledRules(ctx context.Context) ([]models.AlertRule, error) {
	var out []models.AlertRule
	for _, r := range m.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID.String() < out[j].UserID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memAlertStore) CountTriggersSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	var count int64
	for _, r := range m.rules {
		if r.UserID == userID && r.LastTriggeredAt != nil && !r.LastTriggeredAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memAlertStore) MarkRuleTriggered(ctx context.Context, ruleID uuid.UUID, at time.Time, notifiedPPL int) error {
	if m.markErr != nil {
		return m.markErr
	}
	for i := range m.rules {
		if m.rules[i].ID == ruleID {
			t := at
			m.rules[i].LastTriggeredAt = &t
			p := notifiedPPL
			m.rules[i].LastNotifiedPPL = &p
		}
	}
	return nil
}

func (m *memAlertStore) SeedRuleBaseline(ctx context.Context, ruleID uuid.UUID, baselinePPL int) error {
	if m.seedErr != nil {
		return m.seedErr
	}
	m.seeded[ruleID] = baselinePPL
	for i := range m.rules {
		if m.rules[i].ID == ruleID && m.rules[i].LastNotifiedPPL == nil {
			p := baselinePPL
			m.rules[i].LastNotifiedPPL = &p
		}
	}
	return nil
}

// memRunStore is an in-memory store.RunStore
type memRunStore struct {
	syncRuns  []models.SyncRun
	alertRuns []models.AlertRun
	insertErr error
}

func (m *memRunStore) InsertSyncRun(ctx context.Context, run *models.SyncRun) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.syncRuns = append(m.syncRuns, *run)
	return nil
}

func (m *memRunStore) InsertAlertRun(ctx context.Context, run *models.AlertRun) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.alertRuns = append(m.alertRuns, *run)
	return nil
}

// memNotificationStore is an in-memory store.NotificationStore
type memNotificationStore struct {
	notifications []models.Notification
}

func (m *memNotificationStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	m.notifications = append(m.notifications, *n)
	return nil
}

// fakeLookup is a canned PostcodeLookup
type fakeLookup struct {
	coords postcodes.Coordinates
	err    error
	calls  int
}

func (f *fakeLookup) Lookup(ctx context.Context, postcode string) (postcodes.Coordinates, error) {
	f.calls++
	if f.err != nil {
		return postcodes.Coordinates{}, f.err
	}
	return f.coords, nil
}

// fakeLister is a canned StationLister
type fakeLister struct {
	records []fuelapi.StationRecord
	err     error
}

func (f *fakeLister) ListAllStations(ctx context.Context) ([]fuelapi.StationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

// fakeDispatcher records dispatched notifications
type fakeDispatcher struct {
	dispatched []uuid.UUID
	err        error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, userID uuid.UUID, title, message string, data map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.dispatched = append(f.dispatched, userID)
	return nil
}
