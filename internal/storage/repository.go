package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/session"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrNotFound = errors.New("not found")

// Notification is a goal outcome shown to the user.
type Notification struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	GoalID    int64          `json:"goal_id"`
	State     core.GoalState `json:"state"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

// VoteRecord is one applied deal vote.
type VoteRecord struct {
	ID        int64           `json:"id"`
	MessageID string          `json:"message_id"`
	UserID    int64           `json:"user_id"`
	DealID    int64           `json:"deal_id"`
	Action    core.VoteAction `json:"action"`
	Vote      core.Vote       `json:"vote"`
	Upvotes   int             `json:"upvotes"`
	Downvotes int             `json:"downvotes"`
	VotedAt   time.Time       `json:"voted_at"`
}

type SQLiteRepository struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveSession stores s under profile, replacing what was there.
func (r *SQLiteRepository) SaveSession(ctx context.Context, profile string, s session.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (profile, user_id, access_token, refresh_token, fcm_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile) DO UPDATE SET
			user_id = excluded.user_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			fcm_token = excluded.fcm_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		profile, s.UserID, s.AccessToken, s.RefreshToken, s.FCMToken,
		formatOptionalTime(s.ExpiresAt), r.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save session %q: %w", profile, err)
	}
	return nil
}

// LoadSession returns the session stored under profile or ErrNotFound.
func (r *SQLiteRepository) LoadSession(ctx context.Context, profile string) (session.Session, error) {
	var (
		s       session.Session
		expires sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, fcm_token, expires_at
		FROM sessions WHERE profile = ?`, profile).
		Scan(&s.UserID, &s.AccessToken, &s.RefreshToken, &s.FCMToken, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, fmt.Errorf("session %q: %w", profile, ErrNotFound)
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session %q: %w", profile, err)
	}
	if s.ExpiresAt, err = parseOptionalTime(expires); err != nil {
		return session.Session{}, fmt.Errorf("load session %q: %w", profile, err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, profile string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE profile = ?`, profile); err != nil {
		return fmt.Errorf("delete session %q: %w", profile, err)
	}
	return nil
}

// AddNotification stores n unless the same goal outcome was already stored
// for the user. It reports whether a row was inserted.
func (r *SQLiteRepository) AddNotification(ctx context.Context, n Notification) (bool, error) {
	created := n.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, goal_id, state, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, goal_id, state) DO NOTHING`,
		n.UserID, n.GoalID, string(n.State), n.Title, n.Body, created.UTC().Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("add notification for goal %d: %w", n.GoalID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add notification for goal %d: %w", n.GoalID, err)
	}
	return rows > 0, nil
}

// ListNotifications returns the user's notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error) {
	query := `
		SELECT id, user_id, goal_id, state, title, body, created_at, read_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var (
			n       Notification
			state   string
			created string
			readAt  sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.GoalID, &state, &n.Title, &n.Body, &created, &readAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.State = core.GoalState(state)
		if n.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse notification time: %w", err)
		}
		if readAt.Valid {
			t, err := time.Parse(timeLayout, readAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse notification read time: %w", err)
			}
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead marks one of the user's notifications as read.
func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, ?)
		WHERE id = ? AND user_id = ?`,
		r.now().UTC().Format(timeLayout), id, userID)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return nil
}

// RecordVote appends v to the vote log. Redelivered messages are ignored;
// the result reports whether a row was inserted.
func (r *SQLiteRepository) RecordVote(ctx context.Context, v VoteRecord) (bool, error) {
	votedAt := v.VotedAt
	if votedAt.IsZero() {
		votedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO vote_log (message_id, user_id, deal_id, action, vote, upvotes, downvotes, voted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO NOTHING`,
		v.MessageID, v.UserID, v.DealID, string(v.Action), int(v.Vote), v.Upvotes, v.Downvotes,
		votedAt.UTC().Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("record vote on deal %d: %w", v.DealID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record vote on deal %d: %w", v.DealID, err)
	}
	return rows > 0, nil
}

// ListVotes returns the user's most recent votes, newest first.
func (r *SQLiteRepository) ListVotes(ctx context.Context, userID int64, limit int) ([]VoteRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, user_id, deal_id, action, vote, upvotes, downvotes, voted_at
		FROM vote_log WHERE user_id = ?
		ORDER BY voted_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	out := []VoteRecord{}
	for rows.Next() {
		var (
			v       VoteRecord
			action  string
			vote    int
			votedAt string
		)
		if err := rows.Scan(&v.ID, &v.MessageID, &v.UserID, &v.DealID, &action, &vote, &v.Upvotes, &v.Downvotes, &votedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Action = core.VoteAction(action)
		v.Vote = core.Vote(vote)
		if v.VotedAt, err = time.Parse(timeLayout, votedAt); err != nil {
			return nil, fmt.Errorf("parse vote time: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func formatOptionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseOptionalTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s.String)
}
