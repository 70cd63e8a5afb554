package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/clusterquest/rfidgame"

// Skip reasons reported in TapResult.Reason.
const (
	skipDisabled        = "disabled"
	skipNotEligible     = "not-eligible"
	skipRFIDNotInTeam   = "rfid-not-in-team"
	skipMemberNotFound  = "member-not-found"
	redeemedByAutomatic = "auto"
)

type TapResult struct {
	Skipped    bool              `json:"skipped"`
	Reason     string            `json:"reason,omitempty"`
	Awarded    bool              `json:"awarded"`
	Points     int64             `json:"points"`
	FirstTime  bool              `json:"firstTime"`
	TeamID     int64             `json:"teamId,omitempty"`
	Redemption *RedemptionResult `json:"redemption,omitempty"`
}

func skipped(reason string) TapResult {
	return TapResult{Skipped: true, Reason: reason}
}

type EngineOptions struct {
	ExitMarker     string
	ExitRevalidate bool
}

// Engine turns persisted taps into scores, handles exit cleanup and
// redemptions. It holds no per-team state; all coordination happens in the
// store's transactions.
type Engine struct {
	store          Store
	rules          *RuleConfig
	bus            *LiveEventBus
	logger         *slog.Logger
	tracer         trace.Tracer
	exitMarker     string
	exitRevalidate bool
	now            func() time.Time
}

func NewEngine(store Store, rules *RuleConfig, bus *LiveEventBus, logger *slog.Logger, opts EngineOptions) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	marker := NormalizeLabel(opts.ExitMarker)
	if marker == "" {
		marker = defaultExitMarker
	}
	return &Engine{
		store:          store,
		rules:          rules,
		bus:            bus,
		logger:         logger,
		tracer:         otel.Tracer(tracerName),
		exitMarker:     marker,
		exitRevalidate: opts.ExitRevalidate,
		now:            time.Now,
	}
}

// OnTapPersisted scores a tap that has already been written to the log.
// Skips are results, not errors; an error means the award transaction
// failed and was rolled back.
func (e *Engine) OnTapPersisted(ctx context.Context, tap Tap) (TapResult, error) {
	ctx, span := e.tracer.Start(ctx, "scoring.on_tap")
	defer span.End()

	snapshot := e.rules.Get()
	if !snapshot.Enabled {
		return e.finish(span, skipped(skipDisabled)), nil
	}

	label := NormalizeLabel(tap.Label)
	span.SetAttributes(
		attribute.String("cluster.label", label),
		attribute.Int64("tap.id", tap.ID),
	)

	if label == e.exitMarker {
		if _, err := e.OnExitTap(ctx, tap.RFIDCardID); err != nil {
			e.logger.Error("exit cleanup failed", "rfid", tap.RFIDCardID, "error", err)
		}
		return e.finish(span, skipped(skipNotEligible)), nil
	}

	prefix := NormalizeLabel(snapshot.Rules.EligibleLabelPrefix)
	if label == "" || !strings.HasPrefix(label, prefix) {
		return e.finish(span, skipped(skipNotEligible)), nil
	}

	result, err := e.award(ctx, snapshot.Rules, tap, label)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "award failed")
		return TapResult{}, err
	}

	// Kiosks show every eligible tap, scored or not.
	if e.bus != nil {
		e.bus.Publish(LiveEvent{Topic: label, Tap: tap})
	}

	if result.Awarded && snapshot.Rules.AutoRedeemOnTap {
		result.Redemption = e.autoRedeem(ctx, result.TeamID, label)
	}
	return e.finish(span, result), nil
}

func (e *Engine) award(ctx context.Context, rules GameRules, tap Tap, label string) (TapResult, error) {
	teamID, ok, err := e.store.TeamForCard(ctx, tap.RFIDCardID)
	if err != nil {
		return TapResult{}, err
	}
	if !ok {
		return skipped(skipRFIDNotInTeam), nil
	}

	memberID, ok, err := e.store.MemberForCard(ctx, teamID, tap.RFIDCardID)
	if err != nil {
		return TapResult{}, err
	}
	if !ok {
		result := skipped(skipMemberNotFound)
		result.TeamID = teamID
		return result, nil
	}

	override := rules.ClusterRules[label]
	visitedAt := tap.LogTime
	if visitedAt.IsZero() {
		visitedAt = e.now()
	}
	outcome, err := e.store.AwardVisit(ctx, teamID, memberID, label, visitedAt, func(firstTime bool) int64 {
		return awardPoints(rules, override, firstTime)
	})
	if err != nil {
		return TapResult{}, err
	}

	if outcome.Points > 0 {
		e.logger.Info("points awarded",
			"team_id", teamID,
			"member_id", memberID,
			"cluster", label,
			"points", outcome.Points,
			"first_time", outcome.FirstTime,
		)
	}
	return TapResult{
		Awarded:   outcome.Points > 0,
		Points:    outcome.Points,
		FirstTime: outcome.FirstTime,
		TeamID:    teamID,
	}, nil
}

// awardPoints applies the cluster override, then the global defaults.
func awardPoints(rules GameRules, cluster ClusterRule, firstTime bool) int64 {
	if firstTime {
		if cluster.AwardPoints != nil {
			return wholePoints(*cluster.AwardPoints)
		}
		return wholePoints(rules.PointsPerMemberFirstVisit)
	}
	if rules.AwardOnlyFirstVisit {
		return 0
	}
	return wholePoints(rules.PointsPerMemberRepeatVisit)
}

func (e *Engine) autoRedeem(ctx context.Context, teamID int64, label string) *RedemptionResult {
	rule, ok := e.rules.GetClusterRule(label)
	if !ok || !rule.Redeemable {
		return nil
	}
	result, err := e.Redeem(ctx, teamID, label, redeemedByAutomatic)
	if err != nil {
		if !isRedemptionError(err) {
			e.logger.Error("auto redemption failed", "team_id", teamID, "cluster", label, "error", err)
		}
		return &RedemptionResult{OK: false, Cluster: label}
	}
	return &result
}

func (e *Engine) finish(span trace.Span, result TapResult) TapResult {
	span.SetAttributes(
		attribute.Bool("tap.skipped", result.Skipped),
		attribute.Int64("tap.points", result.Points),
	)
	if result.Reason != "" {
		span.SetAttributes(attribute.String("tap.skip_reason", result.Reason))
	}
	return result
}
