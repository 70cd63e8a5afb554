package main

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

func redeemableRules(cost any) map[string]any {
	return clusterRules(map[string]any{
		"CLUSTER1": map[string]any{"redeemable": true, "redeemPoints": cost},
		"CLUSTER2": map[string]any{"redeemable": false, "redeemPoints": 1.0},
	})
}

func TestRedeemValidation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	teamID := createTestTeam(t, store, "M1")
	scoreTeam(t, store, teamID, "M1", 10)

	tests := []struct {
		name    string
		patch   map[string]any
		team    int64
		cluster string
		want    error
	}{
		{name: "missing team", patch: redeemableRules(1.0), team: 0, cluster: "CLUSTER1", want: ErrInvalidRedemption},
		{name: "blank cluster", patch: redeemableRules(1.0), team: teamID, cluster: "  ", want: ErrInvalidRedemption},
		{name: "unknown cluster", patch: redeemableRules(1.0), team: teamID, cluster: "CLUSTER9", want: ErrClusterNotRedeemable},
		{name: "not redeemable", patch: redeemableRules(1.0), team: teamID, cluster: "CLUSTER2", want: ErrClusterNotRedeemable},
		{name: "negative price", patch: redeemableRules(-1.0), team: teamID, cluster: "CLUSTER1", want: ErrInvalidRedeemPoints},
		{name: "infinite price", patch: redeemableRules(math.Inf(1)), team: teamID, cluster: "CLUSTER1", want: ErrInvalidRedeemPoints},
		{name: "insufficient", patch: redeemableRules(11.0), team: teamID, cluster: "CLUSTER1", want: ErrInsufficientPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _, _ := newTestEngine(t, store, tt.patch)
			_, err := engine.Redeem(context.Background(), tt.team, tt.cluster, "desk")
			if !errors.Is(err, tt.want) {
				t.Fatalf("redeem error = %v, want %v", err, tt.want)
			}
		})
	}

	if got := teamScore(t, store, teamID); got != 10 {
		t.Fatalf("score after failed redemptions = %d, want 10", got)
	}
}

func TestRedeemErrorStrings(t *testing.T) {
	t.Parallel()

	for err, want := range map[error]string{
		ErrInvalidRedemption:    "Invalid redemption",
		ErrClusterNotRedeemable: "Cluster not redeemable",
		ErrInvalidRedeemPoints:  "Invalid redeem points",
		ErrInsufficientPoints:   "Insufficient points",
	} {
		if err.Error() != want {
			t.Fatalf("error = %q, want %q", err.Error(), want)
		}
	}
}

func TestRedeemDebitsAndRecords(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	engine, _, _ := newTestEngine(t, store, redeemableRules(2.5))
	teamID := createTestTeam(t, store, "M1")
	scoreTeam(t, store, teamID, "M1", 7)

	result, err := engine.Redeem(context.Background(), teamID, " cluster1 ", "desk-2")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !result.OK || result.PointsSpent != 3 || result.Remaining != 4 || result.Cluster != "CLUSTER1" {
		t.Fatalf("result = %+v, want 3 spent (rounded up) and 4 remaining", result)
	}
	if got := teamScore(t, store, teamID); got != 4 {
		t.Fatalf("score = %d, want 4", got)
	}
	records, err := store.Redemptions(context.Background(), teamID)
	if err != nil {
		t.Fatalf("redemptions: %v", err)
	}
	if len(records) != 1 || records[0].ClusterLabel != "CLUSTER1" || records[0].PointsSpent != 3 || records[0].RedeemedBy != "desk-2" {
		t.Fatalf("records = %+v", records)
	}
}

func TestRedeemFreeClusterCreatesScoreRow(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	engine, _, _ := newTestEngine(t, store, redeemableRules(0.0))
	teamID := createTestTeam(t, store, "M1")

	result, err := engine.Redeem(context.Background(), teamID, "CLUSTER1", "")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !result.OK || result.PointsSpent != 0 || result.Remaining != 0 {
		t.Fatalf("result = %+v", result)
	}
	scores, err := store.TeamScores(context.Background())
	if err != nil {
		t.Fatalf("team scores: %v", err)
	}
	if len(scores) != 1 || scores[0].RegistrationID != teamID {
		t.Fatalf("scores = %+v, want a zero row for the team", scores)
	}
}

func TestConcurrentRedemptionSingleWinner(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	engine, _, _ := newTestEngine(t, store, redeemableRules(5.0))
	teamID := createTestTeam(t, store, "M1")
	scoreTeam(t, store, teamID, "M1", 5)

	const attempts = 6
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		wins         int
		insufficient int
		other        []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Redeem(context.Background(), teamID, "CLUSTER1", "race")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrInsufficientPoints):
				insufficient++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if wins != 1 || insufficient != attempts-1 {
		t.Fatalf("wins = %d, insufficient = %d; want 1 and %d", wins, insufficient, attempts-1)
	}
	if got := teamScore(t, store, teamID); got != 0 {
		t.Fatalf("score = %d, want 0", got)
	}
}

func TestRedeemCost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want int64
		ok   bool
	}{
		{in: 0, want: 0, ok: true},
		{in: 3, want: 3, ok: true},
		{in: 2.1, want: 3, ok: true},
		{in: -0.5, ok: false},
		{in: math.NaN(), ok: false},
		{in: math.Inf(1), ok: false},
	}
	for _, tt := range tests {
		got, ok := redeemCost(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Fatalf("redeemCost(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
