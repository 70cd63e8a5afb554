package main

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCardAssigned is returned when seeding a team with a card that already
// belongs to a member.
var ErrCardAssigned = errors.New("rfid card already assigned")

// Tap is one persisted reader event.
type Tap struct {
	ID         int64     `json:"id"`
	RFIDCardID string    `json:"rfid_card_id"`
	Portal     string    `json:"portal"`
	Label      string    `json:"label"`
	LogTime    time.Time `json:"log_time"`
}

type TeamScore struct {
	RegistrationID int64 `json:"registration_id"`
	Score          int64 `json:"score"`
}

type RedemptionRecord struct {
	ID             int64     `json:"id"`
	RegistrationID int64     `json:"registration_id"`
	ClusterLabel   string    `json:"cluster_label"`
	PointsSpent    int64     `json:"points_spent"`
	RedeemedBy     string    `json:"redeemed_by,omitempty"`
	RedeemedAt     time.Time `json:"redeemed_at"`
}

// MemberLabel is the most recent label a member's card produced; Label is
// empty when the card has never tapped.
type MemberLabel struct {
	RFIDCardID string
	Label      string
}

type EligibleTeam struct {
	RegistrationID int64      `json:"registration_id"`
	GroupSize      int        `json:"group_size"`
	Score          int64      `json:"score"`
	LatestLabel    *string    `json:"latest_label"`
	LatestTime     *time.Time `json:"latest_time"`
}

// CardStatus is the kiosk view of one card's team.
type CardStatus struct {
	MemberID       int64
	RegistrationID int64
	GroupSize      int
	Score          int64
	LatestLabel    *string
	LastSeenAt     *time.Time
}

type MemberVisits struct {
	MemberID int64    `json:"member_id"`
	TeamID   int64    `json:"team_id"`
	Clusters []string `json:"clusters"`
}

// VisitOutcome reports what AwardVisit committed.
type VisitOutcome struct {
	FirstTime bool
	Points    int64
}

type TeamSeed struct {
	Name      string   `json:"name" yaml:"name"`
	GroupSize int      `json:"groupSize" yaml:"groupSize"`
	Cards     []string `json:"cards" yaml:"cards"`
}

// Store is the persistence boundary of the scoring engine. Every method that
// mutates more than one row runs in a single transaction.
type Store interface {
	RecordTap(ctx context.Context, card, portal, label string, at time.Time) (Tap, error)
	TeamForCard(ctx context.Context, card string) (int64, bool, error)
	MemberForCard(ctx context.Context, teamID int64, card string) (int64, bool, error)

	// AwardVisit inserts the (member, label) visit if absent; whether the
	// insert happened is the first-visit signal handed to points. A positive
	// result is added to the team score in the same transaction.
	AwardVisit(ctx context.Context, teamID, memberID int64, label string, at time.Time, points func(firstTime bool) int64) (VisitOutcome, error)

	LatestMemberLabels(ctx context.Context, teamID int64) ([]MemberLabel, error)

	// PurgeTeamSession deletes visits, redemptions and the score row of a
	// team. A non-nil guard is evaluated against the latest labels read
	// inside the same transaction; returning false aborts the purge.
	PurgeTeamSession(ctx context.Context, teamID int64, guard func([]MemberLabel) bool) (bool, error)

	// Redeem debits cost under a row lock and appends a redemption record.
	// It returns the remaining balance, or ErrInsufficientPoints.
	Redeem(ctx context.Context, teamID int64, label string, cost int64, redeemedBy string, at time.Time) (int64, error)

	TeamScore(ctx context.Context, teamID int64) (int64, error)
	TeamScores(ctx context.Context) ([]TeamScore, error)
	Leaderboard(ctx context.Context, limit int) ([]TeamScore, error)
	EligibleTeams(ctx context.Context, minGroupSize, maxGroupSize int, minPoints int64) ([]EligibleTeam, error)
	CardStatus(ctx context.Context, card string) (CardStatus, bool, error)
	MemberVisits(ctx context.Context, card string) (MemberVisits, bool, error)
	Redemptions(ctx context.Context, teamID int64) ([]RedemptionRecord, error)
	CreateTeam(ctx context.Context, seed TeamSeed) (int64, error)
	Close() error
}

// nullTime scans timestamps from either driver: lib/pq hands back
// time.Time, SQLite may hand back text for derived columns.
type nullTime struct {
	Time  time.Time
	Valid bool
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func (n *nullTime) Scan(value any) error {
	n.Time, n.Valid = time.Time{}, false
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case int64:
		n.Time, n.Valid = time.UnixMilli(v).UTC(), true
		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	default:
		return fmt.Errorf("unsupported time value %T", value)
	}
}

func (n *nullTime) parse(text string) error {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", text)
}

func (n nullTime) ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
