package main

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OnExitTap resets a team's session once every member's latest tap is the
// exit marker. Members that never tapped keep the session alive.
//
// The latest-label read and the purge are separate steps unless exit
// revalidation is enabled, in which case the check is repeated inside the
// purge transaction.
func (e *Engine) OnExitTap(ctx context.Context, rfid string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "scoring.exit_tap")
	defer span.End()

	teamID, ok, err := e.store.TeamForCard(ctx, rfid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "team lookup failed")
		return false, err
	}
	if !ok {
		return false, nil
	}
	span.SetAttributes(attribute.Int64("team.id", teamID))

	labels, err := e.store.LatestMemberLabels(ctx, teamID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "latest labels failed")
		return false, err
	}
	if !e.allExited(labels) {
		return false, nil
	}

	var guard func([]MemberLabel) bool
	if e.exitRevalidate {
		guard = e.allExited
	}
	cleaned, err := e.store.PurgeTeamSession(ctx, teamID, guard)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "purge failed")
		return false, err
	}
	if cleaned {
		e.logger.Info("team session reset on exit", "team_id", teamID, "members", len(labels))
	} else {
		e.logger.Info("team session reset aborted; member re-entered", "team_id", teamID)
	}
	span.SetAttributes(attribute.Bool("exit.cleaned", cleaned))
	return cleaned, nil
}

func (e *Engine) allExited(labels []MemberLabel) bool {
	if len(labels) == 0 {
		return false
	}
	for _, ml := range labels {
		if NormalizeLabel(ml.Label) != e.exitMarker {
			return false
		}
	}
	return true
}
