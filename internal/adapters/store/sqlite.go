// Package store provides the SQLite-backed implementations of the
// Directory and SessionStore collaborators, plus the call-record
// reads and writes used by the HTTP call API.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/linguacall/server/internal/domain"

	_ "modernc.org/sqlite"
)

var ErrDuplicatePending = errors.New("pending call already exists for this pair")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT 'User',
	is_online INTEGER NOT NULL DEFAULT 0,
	last_seen INTEGER
);

CREATE TABLE IF NOT EXISTS calls (
	id               TEXT PRIMARY KEY,
	caller_id        TEXT NOT NULL,
	receiver_id      TEXT NOT NULL,
	room_token       TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       INTEGER NOT NULL,
	ended_at         INTEGER,
	duration_seconds INTEGER
);

CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls(caller_id, status);
CREATE INDEX IF NOT EXISTS idx_calls_receiver ON calls(receiver_id, status);
`

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// CallRecord is the durable view of one call.
type CallRecord struct {
	ID              domain.CallID
	CallerID        domain.UserID
	ReceiverID      domain.UserID
	RoomToken       string
	Status          string
	CreatedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds int64
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureUser upserts a directory row, keeping the existing name when
// the new one is empty.
func (s *Store) EnsureUser(ctx context.Context, id domain.UserID, name string) error {
	if name == "" {
		name = "User"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		string(id), name)
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", id, err)
	}
	return nil
}

// DisplayName implements core.Directory.
func (s *Store) DisplayName(ctx context.Context, id domain.UserID) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM users WHERE id = ?`, string(id)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("display name %s: %w", id, err)
	}
	return name, nil
}

// SetOnline implements core.Directory. Unknown identities get a row
// so presence survives a first connection before any profile exists.
func (s *Store) SetOnline(ctx context.Context, id domain.UserID, online bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, is_online, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET is_online = excluded.is_online, last_seen = excluded.last_seen`,
		string(id), online, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("set online %s: %w", id, err)
	}
	return nil
}

// Participants implements core.SessionStore. An ended call is as
// gone as an unknown one; only rows that can still back a live
// session resolve.
func (s *Store) Participants(ctx context.Context, id domain.CallID) (domain.UserID, domain.UserID, string, error) {
	var caller, receiver, room string
	err := s.db.QueryRowContext(ctx,
		`SELECT caller_id, receiver_id, room_token FROM calls WHERE id = ? AND status != 'ended'`,
		string(id)).Scan(&caller, &receiver, &room)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", "", domain.ErrNotFound
	}
	if err != nil {
		return "", "", "", fmt.Errorf("participants %s: %w", id, err)
	}
	return domain.UserID(caller), domain.UserID(receiver), room, nil
}

// MarkEnded implements core.SessionStore. Returns domain.ErrNotFound
// when no durable record exists for the call.
func (s *Store) MarkEnded(ctx context.Context, id domain.CallID, duration time.Duration) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE calls SET status = 'ended', ended_at = ?, duration_seconds = ?
		WHERE id = ?`,
		toMillis(time.Now()), int64(duration.Seconds()), string(id))
	if err != nil {
		return fmt.Errorf("mark ended %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark ended %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateCall records a new pending call. At most one pending call per
// caller/receiver pair, mirroring the invite endpoint it backs.
func (s *Store) CreateCall(ctx context.Context, caller, receiver domain.UserID) (CallRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM calls
		WHERE caller_id = ? AND receiver_id = ? AND status = 'pending'`,
		string(caller), string(receiver)).Scan(&exists)
	if err != nil {
		return CallRecord{}, fmt.Errorf("pending check: %w", err)
	}
	if exists > 0 {
		return CallRecord{}, ErrDuplicatePending
	}

	rec := CallRecord{
		ID:         domain.CallID(uuid.NewString()),
		CallerID:   caller,
		ReceiverID: receiver,
		RoomToken:  domain.NewRoomToken(),
		Status:     "pending",
		CreatedAt:  time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls (id, caller_id, receiver_id, room_token, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(rec.ID), string(rec.CallerID), string(rec.ReceiverID),
		rec.RoomToken, rec.Status, toMillis(rec.CreatedAt))
	if err != nil {
		return CallRecord{}, fmt.Errorf("create call: %w", err)
	}
	return rec, nil
}

// CallsFor returns the user's most recent calls, newest first.
func (s *Store) CallsFor(ctx context.Context, id domain.UserID, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, caller_id, receiver_id, room_token, status, created_at, ended_at, duration_seconds
		FROM calls
		WHERE caller_id = ? OR receiver_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		string(id), string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("calls for %s: %w", id, err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var (
			rec       CallRecord
			createdAt int64
			endedAt   sql.NullInt64
			duration  sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.CallerID, &rec.ReceiverID, &rec.RoomToken,
			&rec.Status, &createdAt, &endedAt, &duration); err != nil {
			return nil, fmt.Errorf("scan call row: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		if endedAt.Valid {
			value := fromMillis(endedAt.Int64)
			rec.EndedAt = &value
		}
		if duration.Valid {
			rec.DurationSeconds = duration.Int64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
