package main

import (
	"context"
	"errors"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Redemption failures surfaced to clients verbatim.
var (
	ErrInvalidRedemption    = errors.New("Invalid redemption")
	ErrClusterNotRedeemable = errors.New("Cluster not redeemable")
	ErrInvalidRedeemPoints  = errors.New("Invalid redeem points")
	ErrInsufficientPoints   = errors.New("Insufficient points")
)

type RedemptionResult struct {
	OK          bool   `json:"ok"`
	Cluster     string `json:"cluster"`
	PointsSpent int64  `json:"pointsSpent"`
	Remaining   int64  `json:"remaining"`
}

// isRedemptionError reports whether err is a client-facing redemption error.
func isRedemptionError(err error) bool {
	return errors.Is(err, ErrInvalidRedemption) ||
		errors.Is(err, ErrClusterNotRedeemable) ||
		errors.Is(err, ErrInvalidRedeemPoints) ||
		errors.Is(err, ErrInsufficientPoints)
}

// redeemCost rounds a configured price up to whole points.
func redeemCost(points float64) (int64, bool) {
	if math.IsNaN(points) || math.IsInf(points, 0) || points < 0 || points >= math.MaxInt64 {
		return 0, false
	}
	return int64(math.Ceil(points)), true
}

// Redeem spends a cluster's redeemPoints from the team balance. Concurrent
// redemptions for one team are serialized by the store's row lock, so a
// balance that covers one redemption never pays for two.
func (e *Engine) Redeem(ctx context.Context, registrationID int64, clusterLabel, redeemedBy string) (RedemptionResult, error) {
	ctx, span := e.tracer.Start(ctx, "redemption.redeem")
	defer span.End()

	label := NormalizeLabel(clusterLabel)
	span.SetAttributes(
		attribute.Int64("team.id", registrationID),
		attribute.String("cluster.label", label),
	)
	if registrationID <= 0 || label == "" {
		return RedemptionResult{}, ErrInvalidRedemption
	}

	rule, ok := e.rules.GetClusterRule(label)
	if !ok || !rule.Redeemable {
		return RedemptionResult{}, ErrClusterNotRedeemable
	}
	cost, ok := redeemCost(rule.RedeemPoints)
	if !ok {
		return RedemptionResult{}, ErrInvalidRedeemPoints
	}

	remaining, err := e.store.Redeem(ctx, registrationID, label, cost, redeemedBy, e.now())
	if err != nil {
		if !errors.Is(err, ErrInsufficientPoints) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "redeem failed")
		}
		return RedemptionResult{}, err
	}

	e.logger.Info("points redeemed",
		"team_id", registrationID,
		"cluster", label,
		"points", cost,
		"remaining", remaining,
		"redeemed_by", redeemedBy,
	)
	return RedemptionResult{OK: true, Cluster: label, PointsSpent: cost, Remaining: remaining}, nil
}
