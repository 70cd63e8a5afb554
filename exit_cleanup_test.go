package main

import (
	"context"
	"testing"
	"time"
)

func scoreTeam(t *testing.T, store Store, teamID int64, card string, points int64) {
	t.Helper()

	if _, err := store.AwardVisit(context.Background(), teamID, memberID(t, store, teamID, card), "CLUSTER1", time.Now(), fixedPoints(points)); err != nil {
		t.Fatalf("award: %v", err)
	}
}

func TestExitCleanupWaitsForLastMember(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	engine, _, _ := newTestEngine(t, store, nil)
	teamID := createTestTeam(t, store, "M1", "M2", "M3")
	ctx := context.Background()

	for _, card := range []string{"M1", "M2", "M3"} {
		tapAndScore(t, engine, store, card, "CLUSTER1")
	}
	if _, err := store.Redeem(ctx, teamID, "CLUSTER1", 1, "desk", time.Now()); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	for _, card := range []string{"M1", "M2"} {
		result := tapAndScore(t, engine, store, card, "exitout")
		if result.Reason != skipNotEligible {
			t.Fatalf("exit tap result = %+v, want not-eligible", result)
		}
	}
	if got := teamScore(t, store, teamID); got != 2 {
		t.Fatalf("score with one member inside = %d, want 2", got)
	}
	visits, _, err := store.MemberVisits(ctx, "M1")
	if err != nil {
		t.Fatalf("member visits: %v", err)
	}
	if len(visits.Clusters) != 1 {
		t.Fatalf("visits with one member inside = %v, want kept", visits.Clusters)
	}

	tapAndScore(t, engine, store, "M3", "EXITOUT")
	if got := teamScore(t, store, teamID); got != 0 {
		t.Fatalf("score after last exit = %d, want 0", got)
	}
	for _, card := range []string{"M1", "M2", "M3"} {
		visits, _, err := store.MemberVisits(ctx, card)
		if err != nil {
			t.Fatalf("member visits: %v", err)
		}
		if len(visits.Clusters) != 0 {
			t.Fatalf("visits for %s after last exit = %v, want none", card, visits.Clusters)
		}
	}
	records, err := store.Redemptions(ctx, teamID)
	if err != nil {
		t.Fatalf("redemptions: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("redemptions after last exit = %d, want 0", len(records))
	}
}

func TestExitCleanupMemberWithoutTapsBlocks(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	engine, _, _ := newTestEngine(t, store, nil)
	teamID := createTestTeam(t, store, "M1", "M2")
	scoreTeam(t, store, teamID, "M1", 3)

	recordTap(t, store, "M1", "EXITOUT", time.Now())
	cleaned, err := engine.OnExitTap(context.Background(), "M1")
	if err != nil {
		t.Fatalf("exit tap: %v", err)
	}
	if cleaned {
		t.Fatal("member without taps must keep the session alive")
	}
	if got := teamScore(t, store, teamID); got != 3 {
		t.Fatalf("score = %d, want 3", got)
	}
}

func TestExitCleanupUnknownCard(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	engine, _, _ := newTestEngine(t, store, nil)

	cleaned, err := engine.OnExitTap(context.Background(), "NOBODY")
	if err != nil || cleaned {
		t.Fatalf("unknown card exit: cleaned=%v err=%v", cleaned, err)
	}
}

func TestExitCleanupCustomMarker(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	rules := NewRuleConfig(nil, discardLogger())
	engine := NewEngine(store, rules, nil, discardLogger(), EngineOptions{ExitMarker: " gate-out "})
	teamID := createTestTeam(t, store, "M1")
	scoreTeam(t, store, teamID, "M1", 2)

	tapAndScore(t, engine, store, "M1", "EXITOUT")
	if got := teamScore(t, store, teamID); got != 2 {
		t.Fatalf("default marker reset a team using a custom marker: score %d", got)
	}
	tapAndScore(t, engine, store, "M1", "Gate-Out")
	if got := teamScore(t, store, teamID); got != 0 {
		t.Fatalf("score after custom marker = %d, want 0", got)
	}
}

// reentryStore records a fresh cluster tap for one member between the
// latest-label read and the purge.
type reentryStore struct {
	Store
	card string
}

func (s reentryStore) PurgeTeamSession(ctx context.Context, teamID int64, guard func([]MemberLabel) bool) (bool, error) {
	if _, err := s.Store.RecordTap(ctx, s.card, "reader1", "CLUSTER5", time.Now().Add(time.Second)); err != nil {
		return false, err
	}
	return s.Store.PurgeTeamSession(ctx, teamID, guard)
}

func TestExitCleanupRevalidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		revalidate  bool
		wantCleaned bool
	}{
		{name: "single check purges despite reentry", revalidate: false, wantCleaned: true},
		{name: "revalidation sees reentry", revalidate: true, wantCleaned: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := openTempStore(t)
			teamID := createTestTeam(t, store, "M1", "M2")
			scoreTeam(t, store, teamID, "M1", 4)
			recordTap(t, store, "M1", "EXITOUT", time.Now())
			recordTap(t, store, "M2", "EXITOUT", time.Now())

			rules := NewRuleConfig(nil, discardLogger())
			engine := NewEngine(reentryStore{Store: store, card: "M2"}, rules, nil, discardLogger(), EngineOptions{ExitRevalidate: tt.revalidate})

			cleaned, err := engine.OnExitTap(context.Background(), "M1")
			if err != nil {
				t.Fatalf("exit tap: %v", err)
			}
			if cleaned != tt.wantCleaned {
				t.Fatalf("cleaned = %v, want %v", cleaned, tt.wantCleaned)
			}
			wantScore := int64(0)
			if !tt.wantCleaned {
				wantScore = 4
			}
			if got := teamScore(t, store, teamID); got != wantScore {
				t.Fatalf("score = %d, want %d", got, wantScore)
			}
		})
	}
}
