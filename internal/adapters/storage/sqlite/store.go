package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PabloGalante/ledger/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id                  TEXT PRIMARY KEY,
	display_name        TEXT NOT NULL DEFAULT '',
	onboarding_complete INTEGER NOT NULL DEFAULT 0,
	created_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS principles (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	principle_text TEXT NOT NULL,
	source_regret  TEXT NOT NULL DEFAULT '',
	better_version TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS principles_user_created ON principles (user_id, created_at);

CREATE TABLE IF NOT EXISTS coaching_sessions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	principle_id     TEXT,
	situation        TEXT NOT NULL,
	wedge_label      TEXT NOT NULL,
	framework_used   TEXT NOT NULL,
	coaching_script  TEXT NOT NULL,
	commitment       TEXT NOT NULL,
	feedback         INTEGER NOT NULL CHECK (feedback IN (0, 1)),
	follow_up_status TEXT NOT NULL DEFAULT 'pending'
		CHECK (follow_up_status IN ('pending', 'yes', 'partly', 'no')),
	follow_up_note   TEXT,
	followed_up_at   TEXT,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS coaching_sessions_user_created ON coaching_sessions (user_id, created_at);
`

// Store is a domain.Store backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers anyway; one connection keeps :memory:
	// databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t, nil
}

func limitClause(limit int) (string, []any) {
	if limit <= 0 {
		return "", nil
	}
	return " LIMIT ?", []any{limit}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

// ─────────────────────────────────────────
// ProfileStore implementation
// ─────────────────────────────────────────

func (s *Store) EnsureProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, display_name, onboarding_complete, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		string(p.ID), p.DisplayName, boolToInt(p.OnboardingComplete), formatTime(p.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("sqlite EnsureProfile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

func (s *Store) GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, onboarding_complete, created_at FROM profiles WHERE id = ?`,
		string(id))

	var (
		p         domain.Profile
		pid       string
		createdAt string
	)
	if err := row.Scan(&pid, &p.DisplayName, &p.OnboardingComplete, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("sqlite GetProfile: %w", err)
	}
	p.ID = domain.UserID(pid)

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = t
	return &p, nil
}

func (s *Store) MarkOnboardingComplete(ctx context.Context, id domain.UserID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET onboarding_complete = 1 WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("sqlite MarkOnboardingComplete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite MarkOnboardingComplete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ─────────────────────────────────────────
// PrincipleStore implementation
// ─────────────────────────────────────────

const principleColumns = `id, user_id, principle_text, source_regret, better_version, created_at`

func (s *Store) CreatePrinciple(ctx context.Context, p *domain.Principle) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO principles (`+principleColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.UserID), p.Text, p.SourceRegret, p.BetterVersion, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite CreatePrinciple: %w", err)
	}
	return nil
}

func scanPrinciple(row scanner) (*domain.Principle, error) {
	var (
		p                domain.Principle
		id, uid, created string
	)
	if err := row.Scan(&id, &uid, &p.Text, &p.SourceRegret, &p.BetterVersion, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	p.ID = domain.PrincipleID(id)
	p.UserID = domain.UserID(uid)
	p.CreatedAt = t
	return &p, nil
}

func (s *Store) GetPrinciple(ctx context.Context, owner domain.UserID, id domain.PrincipleID) (*domain.Principle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+principleColumns+` FROM principles WHERE id = ? AND user_id = ?`,
		string(id), string(owner))

	p, err := scanPrinciple(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("principle %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("sqlite GetPrinciple: %w", err)
	}
	return p, nil
}

func (s *Store) ListPrinciplesByUser(ctx context.Context, owner domain.UserID, limit int) ([]*domain.Principle, error) {
	lim, limArgs := limitClause(limit)
	args := append([]any{string(owner)}, limArgs...)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+principleColumns+` FROM principles WHERE user_id = ? ORDER BY created_at DESC`+lim,
		args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListPrinciplesByUser: %w", err)
	}
	defer rows.Close()

	out := []*domain.Principle{}
	for rows.Next() {
		p, err := scanPrinciple(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite ListPrinciplesByUser scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite ListPrinciplesByUser: %w", err)
	}
	return out, nil
}

// ─────────────────────────────────────────
// CoachingSessionStore implementation
// ─────────────────────────────────────────

const sessionColumns = `id, user_id, principle_id, situation, wedge_label, framework_used,
	coaching_script, commitment, feedback, follow_up_status, follow_up_note, followed_up_at, created_at`

func (s *Store) CreateCoachingSession(ctx context.Context, cs *domain.CoachingSession) error {
	var principleID sql.NullString
	if cs.PrincipleID != nil {
		principleID = sql.NullString{String: string(*cs.PrincipleID), Valid: true}
	}

	status, note, at := followUpColumns(cs.FollowUp)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coaching_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(cs.ID), string(cs.UserID), principleID, cs.Situation, string(cs.WedgeLabel),
		string(cs.FrameworkUsed), cs.CoachingScript, cs.Commitment, int(cs.Feedback),
		status, note, at, formatTime(cs.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite CreateCoachingSession: %w", err)
	}
	return nil
}

func followUpColumns(f domain.FollowUp) (string, sql.NullString, sql.NullString) {
	r, ok := f.(domain.FollowUpResolved)
	if !ok {
		return string(domain.FollowUpPendingStatus), sql.NullString{}, sql.NullString{}
	}
	note := sql.NullString{String: r.Note, Valid: r.Note != ""}
	return string(r.Outcome), note, sql.NullString{String: formatTime(r.At), Valid: true}
}

func scanCoachingSession(row scanner) (*domain.CoachingSession, error) {
	var (
		cs                                    domain.CoachingSession
		id, uid, wedge, framework, status, ca string
		principleID, note, followedUpAt       sql.NullString
		feedback                              int
	)
	if err := row.Scan(&id, &uid, &principleID, &cs.Situation, &wedge, &framework,
		&cs.CoachingScript, &cs.Commitment, &feedback, &status, &note, &followedUpAt, &ca); err != nil {
		return nil, err
	}

	cs.ID = domain.CoachingSessionID(id)
	cs.UserID = domain.UserID(uid)
	cs.WedgeLabel = domain.WedgeLabel(wedge)
	cs.FrameworkUsed = domain.FrameworkID(framework)
	cs.Feedback = domain.Feedback(feedback)
	if principleID.Valid {
		pid := domain.PrincipleID(principleID.String)
		cs.PrincipleID = &pid
	}

	created, err := parseTime(ca)
	if err != nil {
		return nil, err
	}
	cs.CreatedAt = created

	cs.FollowUp = domain.FollowUpPending{}
	if domain.FollowUpStatus(status) != domain.FollowUpPendingStatus {
		r := domain.FollowUpResolved{Outcome: domain.FollowUpStatus(status), Note: note.String}
		if followedUpAt.Valid {
			if r.At, err = parseTime(followedUpAt.String); err != nil {
				return nil, err
			}
		}
		cs.FollowUp = r
	}
	return &cs, nil
}

func (s *Store) GetCoachingSession(ctx context.Context, owner domain.UserID, id domain.CoachingSessionID) (*domain.CoachingSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM coaching_sessions WHERE id = ? AND user_id = ?`,
		string(id), string(owner))

	cs, err := scanCoachingSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("coaching session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("sqlite GetCoachingSession: %w", err)
	}
	return cs, nil
}

func (s *Store) ListCoachingSessionsByUser(ctx context.Context, owner domain.UserID, limit int) ([]*domain.CoachingSession, error) {
	lim, limArgs := limitClause(limit)
	args := append([]any{string(owner)}, limArgs...)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM coaching_sessions WHERE user_id = ? ORDER BY created_at DESC`+lim,
		args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListCoachingSessionsByUser: %w", err)
	}
	defer rows.Close()

	out := []*domain.CoachingSession{}
	for rows.Next() {
		cs, err := scanCoachingSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite ListCoachingSessionsByUser scan: %w", err)
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite ListCoachingSessionsByUser: %w", err)
	}
	return out, nil
}

func (s *Store) ResolveFollowUp(ctx context.Context, owner domain.UserID, id domain.CoachingSessionID, r domain.FollowUpResolved) error {
	_, note, at := followUpColumns(r)

	res, err := s.db.ExecContext(ctx,
		`UPDATE coaching_sessions
		 SET follow_up_status = ?, follow_up_note = ?, followed_up_at = ?
		 WHERE id = ? AND user_id = ? AND follow_up_status = 'pending'`,
		string(r.Outcome), note, at, string(id), string(owner))
	if err != nil {
		return fmt.Errorf("sqlite ResolveFollowUp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite ResolveFollowUp: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Nothing updated: either the row is missing or already resolved.
	if _, err := s.GetCoachingSession(ctx, owner, id); err != nil {
		return err
	}
	return fmt.Errorf("coaching session %s: %w", id, domain.ErrFollowUpResolved)
}
