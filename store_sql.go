package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// dialect captures the differences between the Postgres deployment and the
// single-booth SQLite mode. Queries are written with $n placeholders.
type dialect struct {
	name      string
	forUpdate string
	schema    []string
}

var postgresDialect = dialect{
	name:      driverPostgres,
	forUpdate: "FOR UPDATE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS registration (
			id BIGSERIAL PRIMARY KEY,
			team_name TEXT,
			group_size INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS members (
			id BIGSERIAL PRIMARY KEY,
			registration_id BIGINT NOT NULL REFERENCES registration(id) ON DELETE CASCADE,
			rfid_card_id TEXT NOT NULL UNIQUE
		)`,
		`CREATE INDEX IF NOT EXISTS members_registration_idx ON members (registration_id)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id BIGSERIAL PRIMARY KEY,
			log_time TIMESTAMPTZ NOT NULL,
			rfid_card_id TEXT NOT NULL,
			portal TEXT NOT NULL,
			label TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS logs_card_time_idx ON logs (rfid_card_id, log_time DESC)`,
		`CREATE TABLE IF NOT EXISTS team_scores_lite (
			registration_id BIGINT PRIMARY KEY,
			score BIGINT NOT NULL DEFAULT 0 CHECK (score >= 0),
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS member_cluster_visits_lite (
			member_id BIGINT NOT NULL,
			cluster_label TEXT NOT NULL,
			visited_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (member_id, cluster_label)
		)`,
		`CREATE TABLE IF NOT EXISTS redemptions_lite (
			id BIGSERIAL PRIMARY KEY,
			registration_id BIGINT NOT NULL,
			cluster_label TEXT NOT NULL,
			points_spent BIGINT NOT NULL,
			redeemed_by TEXT,
			redeemed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS redemptions_registration_idx ON redemptions_lite (registration_id)`,
	},
}

// SQLite has no row locks; _txlock=immediate makes every transaction take
// the write lock up front, which serializes redemptions the same way.
var sqliteDialect = dialect{
	name:      driverSQLite,
	forUpdate: "",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS registration (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_name TEXT,
			group_size INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			registration_id INTEGER NOT NULL REFERENCES registration(id) ON DELETE CASCADE,
			rfid_card_id TEXT NOT NULL UNIQUE
		)`,
		`CREATE INDEX IF NOT EXISTS members_registration_idx ON members (registration_id)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			log_time TIMESTAMP NOT NULL,
			rfid_card_id TEXT NOT NULL,
			portal TEXT NOT NULL,
			label TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS logs_card_time_idx ON logs (rfid_card_id, log_time DESC)`,
		`CREATE TABLE IF NOT EXISTS team_scores_lite (
			registration_id INTEGER PRIMARY KEY,
			score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS member_cluster_visits_lite (
			member_id INTEGER NOT NULL,
			cluster_label TEXT NOT NULL,
			visited_at TIMESTAMP NOT NULL,
			PRIMARY KEY (member_id, cluster_label)
		)`,
		`CREATE TABLE IF NOT EXISTS redemptions_lite (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			registration_id INTEGER NOT NULL,
			cluster_label TEXT NOT NULL,
			points_spent INTEGER NOT NULL,
			redeemed_by TEXT,
			redeemed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS redemptions_registration_idx ON redemptions_lite (registration_id)`,
	},
}

type sqlStore struct {
	db *sql.DB
	d  dialect
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)" +
		"&_txlock=immediate&_time_format=sqlite"
}

// openStore connects, sizes the pool and applies the schema.
func openStore(ctx context.Context, driver, dsn string, maxOpenConns int) (*sqlStore, error) {
	var d dialect
	switch driver {
	case driverPostgres:
		d = postgresDialect
	case driverSQLite:
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("sqlite path is required")
		}
		d = sqliteDialect
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &sqlStore{db: db, d: d}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// q rewrites $n placeholders to SQLite's ?n form.
func (s *sqlStore) q(query string) string {
	if s.d.name == driverSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

func (s *sqlStore) RecordTap(ctx context.Context, card, portal, label string, at time.Time) (Tap, error) {
	at = at.UTC().Truncate(time.Microsecond)
	tap := Tap{RFIDCardID: card, Portal: portal, Label: label, LogTime: at}
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO logs (log_time, rfid_card_id, portal, label)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`), at, card, portal, label).Scan(&tap.ID)
	if err != nil {
		return Tap{}, fmt.Errorf("insert tap: %w", err)
	}
	return tap, nil
}

func (s *sqlStore) TeamForCard(ctx context.Context, card string) (int64, bool, error) {
	var teamID int64
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT registration_id
		FROM members
		WHERE rfid_card_id = $1
		LIMIT 1
	`), card).Scan(&teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("team for card: %w", err)
	}
	return teamID, true, nil
}

func (s *sqlStore) MemberForCard(ctx context.Context, teamID int64, card string) (int64, bool, error) {
	var memberID int64
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id
		FROM members
		WHERE registration_id = $1 AND rfid_card_id = $2
		LIMIT 1
	`), teamID, card).Scan(&memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("member for card: %w", err)
	}
	return memberID, true, nil
}

func (s *sqlStore) ensureScoreRow(ctx context.Context, tx *sql.Tx, teamID int64, at time.Time) error {
	_, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO team_scores_lite (registration_id, score, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (registration_id) DO NOTHING
	`), teamID, at)
	if err != nil {
		return fmt.Errorf("ensure score row: %w", err)
	}
	return nil
}

func (s *sqlStore) AwardVisit(ctx context.Context, teamID, memberID int64, label string, at time.Time, points func(firstTime bool) int64) (VisitOutcome, error) {
	at = at.UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return VisitOutcome{}, fmt.Errorf("begin award: %w", err)
	}
	defer tx.Rollback()

	var inserted int64
	firstTime := true
	err = tx.QueryRowContext(ctx, s.q(`
		INSERT INTO member_cluster_visits_lite (member_id, cluster_label, visited_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id, cluster_label) DO NOTHING
		RETURNING member_id
	`), memberID, label, at).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		firstTime = false
	} else if err != nil {
		return VisitOutcome{}, fmt.Errorf("record visit: %w", err)
	}

	outcome := VisitOutcome{FirstTime: firstTime, Points: points(firstTime)}
	if outcome.Points > 0 {
		if err := s.ensureScoreRow(ctx, tx, teamID, at); err != nil {
			return VisitOutcome{}, err
		}
		if _, err := tx.ExecContext(ctx, s.q(`
			UPDATE team_scores_lite
			SET score = score + $2,
				updated_at = $3
			WHERE registration_id = $1
		`), teamID, outcome.Points, at); err != nil {
			return VisitOutcome{}, fmt.Errorf("add points: %w", err)
		}
	} else {
		outcome.Points = 0
	}

	if err := tx.Commit(); err != nil {
		return VisitOutcome{}, fmt.Errorf("commit award: %w", err)
	}
	return outcome, nil
}

func (s *sqlStore) LatestMemberLabels(ctx context.Context, teamID int64) ([]MemberLabel, error) {
	return s.latestMemberLabels(ctx, s.db, teamID)
}

func (s *sqlStore) latestMemberLabels(ctx context.Context, q queryer, teamID int64) ([]MemberLabel, error) {
	rows, err := q.QueryContext(ctx, s.q(`
		SELECT m.rfid_card_id, COALESCE(l.label, '')
		FROM members m
		LEFT JOIN (
			SELECT rfid_card_id, label,
				ROW_NUMBER() OVER (PARTITION BY rfid_card_id ORDER BY log_time DESC, id DESC) AS rn
			FROM logs
			WHERE rfid_card_id IN (SELECT rfid_card_id FROM members WHERE registration_id = $1)
		) l ON l.rfid_card_id = m.rfid_card_id AND l.rn = 1
		WHERE m.registration_id = $1
		ORDER BY m.id
	`), teamID)
	if err != nil {
		return nil, fmt.Errorf("latest member labels: %w", err)
	}
	defer rows.Close()

	labels := []MemberLabel{}
	for rows.Next() {
		var ml MemberLabel
		if err := rows.Scan(&ml.RFIDCardID, &ml.Label); err != nil {
			return nil, fmt.Errorf("scan member label: %w", err)
		}
		labels = append(labels, ml)
	}
	return labels, rows.Err()
}

func (s *sqlStore) PurgeTeamSession(ctx context.Context, teamID int64, guard func([]MemberLabel) bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback()

	if guard != nil {
		labels, err := s.latestMemberLabels(ctx, tx, teamID)
		if err != nil {
			return false, err
		}
		if !guard(labels) {
			return false, nil
		}
	}

	if _, err := tx.ExecContext(ctx, s.q(`
		DELETE FROM member_cluster_visits_lite
		WHERE member_id IN (SELECT id FROM members WHERE registration_id = $1)
	`), teamID); err != nil {
		return false, fmt.Errorf("delete visits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`
		DELETE FROM redemptions_lite WHERE registration_id = $1
	`), teamID); err != nil {
		return false, fmt.Errorf("delete redemptions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`
		DELETE FROM team_scores_lite WHERE registration_id = $1
	`), teamID); err != nil {
		return false, fmt.Errorf("delete score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit purge: %w", err)
	}
	return true, nil
}

func (s *sqlStore) Redeem(ctx context.Context, teamID int64, label string, cost int64, redeemedBy string, at time.Time) (int64, error) {
	at = at.UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin redeem: %w", err)
	}
	defer tx.Rollback()

	if err := s.ensureScoreRow(ctx, tx, teamID, at); err != nil {
		return 0, err
	}

	var current int64
	if err := tx.QueryRowContext(ctx, s.q(`
		SELECT score
		FROM team_scores_lite
		WHERE registration_id = $1
		`+s.d.forUpdate), teamID).Scan(&current); err != nil {
		return 0, fmt.Errorf("lock score: %w", err)
	}
	if current < cost {
		return current, ErrInsufficientPoints
	}

	if _, err := tx.ExecContext(ctx, s.q(`
		UPDATE team_scores_lite
		SET score = score - $2,
			updated_at = $3
		WHERE registration_id = $1
	`), teamID, cost, at); err != nil {
		return 0, fmt.Errorf("debit score: %w", err)
	}

	var by sql.NullString
	if redeemedBy != "" {
		by = sql.NullString{String: redeemedBy, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO redemptions_lite (registration_id, cluster_label, points_spent, redeemed_by, redeemed_at)
		VALUES ($1, $2, $3, $4, $5)
	`), teamID, label, cost, by, at); err != nil {
		return 0, fmt.Errorf("append redemption: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit redeem: %w", err)
	}
	return current - cost, nil
}

func (s *sqlStore) TeamScore(ctx context.Context, teamID int64) (int64, error) {
	var score int64
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT score FROM team_scores_lite WHERE registration_id = $1
	`), teamID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("team score: %w", err)
	}
	return score, nil
}

func (s *sqlStore) TeamScores(ctx context.Context) ([]TeamScore, error) {
	return s.scoreRows(ctx, `
		SELECT registration_id, score
		FROM team_scores_lite
		ORDER BY registration_id DESC
	`)
}

func (s *sqlStore) Leaderboard(ctx context.Context, limit int) ([]TeamScore, error) {
	return s.scoreRows(ctx, `
		SELECT registration_id, score
		FROM team_scores_lite
		ORDER BY score DESC, registration_id DESC
		LIMIT $1
	`, limit)
}

func (s *sqlStore) scoreRows(ctx context.Context, query string, args ...any) ([]TeamScore, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	scores := []TeamScore{}
	for rows.Next() {
		var ts TeamScore
		if err := rows.Scan(&ts.RegistrationID, &ts.Score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, ts)
	}
	return scores, rows.Err()
}

func (s *sqlStore) EligibleTeams(ctx context.Context, minGroupSize, maxGroupSize int, minPoints int64) ([]EligibleTeam, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		WITH latest AS (
			SELECT m.registration_id, l.label, l.log_time,
				ROW_NUMBER() OVER (PARTITION BY m.registration_id ORDER BY l.log_time DESC, l.id DESC) AS rn
			FROM members m
			JOIN logs l ON l.rfid_card_id = m.rfid_card_id
		)
		SELECT r.id, r.group_size, COALESCE(ts.score, 0), lt.label, lt.log_time
		FROM registration r
		LEFT JOIN team_scores_lite ts ON ts.registration_id = r.id
		LEFT JOIN latest lt ON lt.registration_id = r.id AND lt.rn = 1
		WHERE r.group_size BETWEEN $1 AND $2
			AND COALESCE(ts.score, 0) >= $3
		ORDER BY COALESCE(ts.score, 0) DESC, r.id DESC
	`), minGroupSize, maxGroupSize, minPoints)
	if err != nil {
		return nil, fmt.Errorf("eligible teams: %w", err)
	}
	defer rows.Close()

	teams := []EligibleTeam{}
	for rows.Next() {
		var (
			team  EligibleTeam
			label sql.NullString
			when  nullTime
		)
		if err := rows.Scan(&team.RegistrationID, &team.GroupSize, &team.Score, &label, &when); err != nil {
			return nil, fmt.Errorf("scan eligible team: %w", err)
		}
		if label.Valid {
			team.LatestLabel = &label.String
		}
		team.LatestTime = when.ptr()
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (s *sqlStore) CardStatus(ctx context.Context, card string) (CardStatus, bool, error) {
	var status CardStatus
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, registration_id FROM members WHERE rfid_card_id = $1
	`), card).Scan(&status.MemberID, &status.RegistrationID)
	if errors.Is(err, sql.ErrNoRows) {
		return CardStatus{}, false, nil
	}
	if err != nil {
		return CardStatus{}, false, fmt.Errorf("card member: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM members WHERE registration_id = $1
	`), status.RegistrationID).Scan(&status.GroupSize); err != nil {
		return CardStatus{}, false, fmt.Errorf("card group size: %w", err)
	}

	if status.Score, err = s.TeamScore(ctx, status.RegistrationID); err != nil {
		return CardStatus{}, false, err
	}

	var (
		label sql.NullString
		when  nullTime
	)
	err = s.db.QueryRowContext(ctx, s.q(`
		SELECT l.label, l.log_time
		FROM logs l
		JOIN members m ON m.rfid_card_id = l.rfid_card_id
		WHERE m.registration_id = $1
		ORDER BY l.log_time DESC, l.id DESC
		LIMIT 1
	`), status.RegistrationID).Scan(&label, &when)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return CardStatus{}, false, fmt.Errorf("card latest tap: %w", err)
	}
	if label.Valid {
		status.LatestLabel = &label.String
	}
	status.LastSeenAt = when.ptr()
	return status, true, nil
}

func (s *sqlStore) MemberVisits(ctx context.Context, card string) (MemberVisits, bool, error) {
	var mv MemberVisits
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, registration_id FROM members WHERE rfid_card_id = $1
	`), card).Scan(&mv.MemberID, &mv.TeamID)
	if errors.Is(err, sql.ErrNoRows) {
		return MemberVisits{}, false, nil
	}
	if err != nil {
		return MemberVisits{}, false, fmt.Errorf("visit member: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT cluster_label
		FROM member_cluster_visits_lite
		WHERE member_id = $1
		ORDER BY cluster_label
	`), mv.MemberID)
	if err != nil {
		return MemberVisits{}, false, fmt.Errorf("member visits: %w", err)
	}
	defer rows.Close()

	mv.Clusters = []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return MemberVisits{}, false, fmt.Errorf("scan visit: %w", err)
		}
		mv.Clusters = append(mv.Clusters, label)
	}
	return mv, true, rows.Err()
}

func (s *sqlStore) Redemptions(ctx context.Context, teamID int64) ([]RedemptionRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, registration_id, cluster_label, points_spent, redeemed_by, redeemed_at
		FROM redemptions_lite
		WHERE registration_id = $1
		ORDER BY redeemed_at DESC, id DESC
	`), teamID)
	if err != nil {
		return nil, fmt.Errorf("redemptions: %w", err)
	}
	defer rows.Close()

	records := []RedemptionRecord{}
	for rows.Next() {
		var (
			rec  RedemptionRecord
			by   sql.NullString
			when nullTime
		)
		if err := rows.Scan(&rec.ID, &rec.RegistrationID, &rec.ClusterLabel, &rec.PointsSpent, &by, &when); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		rec.RedeemedBy = by.String
		rec.RedeemedAt = when.Time
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *sqlStore) CreateTeam(ctx context.Context, seed TeamSeed) (int64, error) {
	cards := make([]string, 0, len(seed.Cards))
	for _, card := range seed.Cards {
		if card = strings.TrimSpace(card); card != "" {
			cards = append(cards, card)
		}
	}
	if len(cards) == 0 {
		return 0, errors.New("team needs at least one card")
	}
	groupSize := seed.GroupSize
	if groupSize <= 0 {
		groupSize = len(cards)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create team: %w", err)
	}
	defer tx.Rollback()

	var name sql.NullString
	if n := strings.TrimSpace(seed.Name); n != "" {
		name = sql.NullString{String: n, Valid: true}
	}
	var teamID int64
	if err := tx.QueryRowContext(ctx, s.q(`
		INSERT INTO registration (team_name, group_size, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`), name, groupSize, time.Now().UTC()).Scan(&teamID); err != nil {
		return 0, fmt.Errorf("insert registration: %w", err)
	}

	for _, card := range cards {
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO members (registration_id, rfid_card_id)
			VALUES ($1, $2)
		`), teamID, card); err != nil {
			if isUniqueViolation(err) {
				return 0, fmt.Errorf("%w: %s", ErrCardAssigned, card)
			}
			return 0, fmt.Errorf("insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create team: %w", err)
	}
	return teamID, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3lib.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

var _ Store = (*sqlStore)(nil)
