/**
 * @description
 * Alert Evaluation Engine.
 * Decides, per alert rule, whether a price-drop notification should fire.
 * Non-triggering is a normal outcome and is reported as a tagged result with a
 * reason, never as an error. The batch entry point enforces a per-user cap of
 * triggers inside a rolling 24-hour window.
 *
 * Trigger state is recorded strictly after a successful dispatch so a crash
 * between decision and notification never advances the cooldown
 * (at-least-once delivery, never record-before-send).
 *
 * @dependencies
 * - backend/internal/store
 * - backend/internal/models
 */

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fuelwatch-project/backend/internal/config"
	"github.com/fuelwatch-project/backend/internal/logger"
	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/store"
	"github.com/google/uuid"
)

// Skip reasons reported on non-triggering evaluations
const (
	ReasonDisabled       = "disabled"
	ReasonCooldown       = "cooldown"
	ReasonNoStations     = "no stations in radius"
	ReasonNoBaseline     = "no baseline"
	ReasonBelowThreshold = "below threshold"
	ReasonDailyCap       = "daily cap reached"
)

// StationSearcher is the proximity search dependency, satisfied by SearchService.
type StationSearcher interface {
	SearchByCoordinates(ctx context.Context, lat, lng, radiusMiles float64, fuelType string) ([]SearchResult, error)
	SearchByPostcode(ctx context.Context, postcode string, radiusMiles float64, fuelType string) ([]SearchResult, error)
}

// RuleEvaluation is the tagged outcome for one rule.
type RuleEvaluation struct {
	RuleID        uuid.UUID     `json:"rule_id"`
	UserID        uuid.UUID     `json:"user_id"`
	ShouldTrigger bool          `json:"should_trigger"`
	Reason        string        `json:"reason,omitempty"`
	Station       *SearchResult `json:"station,omitempty"`
	CurrentPPL    int           `json:"current_ppl,omitempty"`
	PriceDrop     int           `json:"price_drop,omitempty"`
}

// AlertRunSummary summarizes one batch evaluation.
type AlertRunSummary struct {
	Status         string           `json:"status"`
	RulesEvaluated int              `json:"rules_evaluated"`
	Triggered      int              `json:"triggered"`
	Errors         []string         `json:"errors"`
	Evaluations    []RuleEvaluation `json:"evaluations"`
}

// AlertService evaluates alert rules against current prices
type AlertService struct {
	rules      store.AlertStore
	runs       store.RunStore
	search     StationSearcher
	dispatcher Dispatcher
	cooldown   time.Duration
	dailyCap   int
	now        func() time.Time
}

// NewAlertService creates a new AlertService
func NewAlertService(rules store.AlertStore, runs store.RunStore, search StationSearcher, dispatcher Dispatcher, cfg *config.Config) *AlertService {
	cooldown := 24 * time.Hour
	dailyCap := 2
	if cfg != nil {
		if cfg.Alerts.CooldownHours > 0 {
			cooldown = time.Duration(cfg.Alerts.CooldownHours) * time.Hour
		}
		if cfg.Alerts.DailyCap > 0 {
			dailyCap = cfg.Alerts.DailyCap
		}
	}
	return &AlertService{
		rules:      rules,
		runs:       runs,
		search:     search,
		dispatcher: dispatcher,
		cooldown:   cooldown,
		dailyCap:   dailyCap,
		now:        time.Now,
	}
}

// EvaluateRule decides whether a single rule should trigger. It is read-only:
// baseline seeding and trigger marking belong to the batch caller.
func (s *AlertService) EvaluateRule(ctx context.Context, rule *models.AlertRule) (*RuleEvaluation, error) {
	eval := &RuleEvaluation{RuleID: rule.ID, UserID: rule.UserID}

	if !rule.Enabled {
		eval.Reason = ReasonDisabled
		return eval, nil
	}

	now := s.now()
	if rule.LastTriggeredAt != nil && now.Sub(*rule.LastTriggeredAt) < s.cooldown {
		eval.Reason = ReasonCooldown
		return eval, nil
	}

	results, err := s.searchOrigin(ctx, rule)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		eval.Reason = ReasonNoStations
		return eval, nil
	}

	// Best-ranked result: cheapest, nearest on ties
	best := results[0]
	eval.CurrentPPL = best.PricePPL

	if rule.LastNotifiedPPL == nil {
		eval.Reason = ReasonNoBaseline
		return eval, nil
	}

	drop := *rule.LastNotifiedPPL - best.PricePPL
	if drop < rule.ThresholdPPL {
		eval.Reason = ReasonBelowThreshold
		return eval, nil
	}

	eval.ShouldTrigger = true
	eval.Station = &best
	eval.PriceDrop = drop
	return eval, nil
}

// EvaluateAll evaluates every enabled rule in stable (user, creation) order,
// dispatches notifications for triggering rules, and enforces the per-user
// rolling-window cap across both persisted history and this batch's decisions.
func (s *AlertService) EvaluateAll(ctx context.Context) (*AlertRunSummary, error) {
	started := s.now()
	summary := &AlertRunSummary{}

	rules, err := s.rules.ListEnabledRules(ctx)
	if err != nil {
		summary.Status = models.RunStatusFailed
		summary.Errors = append(summary.Errors, err.Error())
		s.recordRun(ctx, started, summary)
		return summary, err
	}

	windowStart := started.Add(-24 * time.Hour)
	triggersByUser := make(map[uuid.UUID]int)

	for i := range rules {
		rule := &rules[i]

		eval, err := s.EvaluateRule(ctx, rule)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("rule %s: %v", rule.ID, err))
			continue
		}
		summary.RulesEvaluated++

		if eval.Reason == ReasonNoBaseline {
			// First observation seeds the baseline so future runs have
			// something to compare against; cooldown state is untouched.
			if err := s.rules.SeedRuleBaseline(ctx, rule.ID, eval.CurrentPPL); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("rule %s: baseline seed: %v", rule.ID, err))
			}
		}

		if eval.ShouldTrigger {
			used, err := s.userTriggerCount(ctx, triggersByUser, rule.UserID, windowStart)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("rule %s: cap check: %v", rule.ID, err))
				continue
			}
			if used >= s.dailyCap {
				// Forced non-trigger; stored rule state stays untouched
				eval.ShouldTrigger = false
				eval.Station = nil
				eval.PriceDrop = 0
				eval.Reason = ReasonDailyCap
			} else if err := s.fireTrigger(ctx, rule, eval); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("rule %s: %v", rule.ID, err))
				eval.ShouldTrigger = false
				eval.Reason = "dispatch failed"
			} else {
				triggersByUser[rule.UserID]++
				summary.Triggered++
			}
		}

		summary.Evaluations = append(summary.Evaluations, *eval)
	}

	if len(summary.Errors) > 0 {
		summary.Status = models.RunStatusPartial
	} else {
		summary.Status = models.RunStatusSuccess
	}

	logger.Info("AlertService: %s: %d rules evaluated, %d triggered, %d errors",
		summary.Status, summary.RulesEvaluated, summary.Triggered, len(summary.Errors))

	s.recordRun(ctx, started, summary)
	return summary, nil
}

// fireTrigger dispatches the notification and only then records trigger state.
func (s *AlertService) fireTrigger(ctx context.Context, rule *models.AlertRule, eval *RuleEvaluation) error {
	station := eval.Station
	title := "Fuel price drop near you"
	message := fmt.Sprintf("%s at %s (%s) is down %dp to %dp per litre",
		fuelLabel(rule.FuelType), station.Name, station.Postcode, eval.PriceDrop, station.PricePPL)
	data := map[string]interface{}{
		"rule_id":    rule.ID.String(),
		"station_id": station.StationID,
		"fuel_type":  rule.FuelType,
		"price_ppl":  station.PricePPL,
		"price_drop": eval.PriceDrop,
	}

	if err := s.dispatcher.Dispatch(ctx, rule.UserID, title, message, data); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	if err := s.rules.MarkRuleTriggered(ctx, rule.ID, s.now(), station.PricePPL); err != nil {
		// The user was notified; the worst case of a failed mark is one
		// duplicate alert next run, which at-least-once allows
		return fmt.Errorf("mark triggered: %w", err)
	}
	return nil
}

// userTriggerCount lazily seeds the in-batch counter from persisted trigger
// history. Rules arrive grouped by user, so the first encounter happens before
// any of that user's in-batch marks.
func (s *AlertService) userTriggerCount(ctx context.Context, counts map[uuid.UUID]int, userID uuid.UUID, since time.Time) (int, error) {
	if used, ok := counts[userID]; ok {
		return used, nil
	}
	prior, err := s.rules.CountTriggersSince(ctx, userID, since)
	if err != nil {
		return 0, err
	}
	counts[userID] = int(prior)
	return int(prior), nil
}

func (s *AlertService) searchOrigin(ctx context.Context, rule *models.AlertRule) ([]SearchResult, error) {
	if rule.HasCoordinates() {
		return s.search.SearchByCoordinates(ctx, *rule.Latitude, *rule.Longitude, rule.RadiusMiles, rule.FuelType)
	}
	if rule.Postcode != nil && *rule.Postcode != "" {
		return s.search.SearchByPostcode(ctx, *rule.Postcode, rule.RadiusMiles, rule.FuelType)
	}
	return nil, fmt.Errorf("rule has no search origin")
}

// recordRun appends the audit row, best-effort.
func (s *AlertService) recordRun(ctx context.Context, started time.Time, summary *AlertRunSummary) {
	run := &models.AlertRun{
		StartedAt:      started,
		FinishedAt:     s.now(),
		Status:         summary.Status,
		RulesEvaluated: summary.RulesEvaluated,
		Triggered:      summary.Triggered,
		ErrorSummary:   summarizeErrors(summary.Errors),
	}
	if err := s.runs.InsertAlertRun(ctx, run); err != nil {
		logger.Error("AlertService: failed to record alert run: %v", err)
	}
}

func fuelLabel(fuelType string) string {
	if fuelType == models.FuelDiesel {
		return "Diesel"
	}
	return "Petrol"
}
