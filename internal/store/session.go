package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/boni/internal/model"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const sessionColumns = `user_id, first_name, last_name, username, step, session_data, access_level, updated_at`

// GetSession returns the session of userID.
// An unknown user is reported with found == false and a nil error; the
// caller creates the session before continuing.
//
// The payload is decoded from the session_data JSON column, and an empty
// step column reads back as model.Idle.
func (s *Store) GetSession(ctx context.Context, userID string) (model.Session, bool, error) {
	sess, err := readSession(ctx, s.db, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	return sess, true, nil
}

// CreateSession inserts an idle session for userID.
// Uses ON CONFLICT(user_id) DO NOTHING for idempotency - when two first
// messages race, the loser reads back and returns the winner's row
// unchanged instead of failing.
//
// Profile hints are stored only on the first insert.
func (s *Store) CreateSession(ctx context.Context, userID string, p model.Profile) (model.Session, error) {
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_users
		(user_id, first_name, last_name, username, step, session_data, access_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', '{}', ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, p.FirstName, p.LastName, p.Username, string(model.AccessUser), now, now)
	if err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}

	sess, err := readSession(ctx, s.db, userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("create session: read back: %w", err)
	}
	return sess, nil
}

// SetStep moves userID to step and shallow-merges merge into the payload.
// Returns the session as stored after the update.
//
// Payload rules (see model.ApplyStep):
//   - a non-nil merge is applied onto the existing payload
//   - moving to model.Idle with a nil merge clears the payload
//   - any other step with a nil merge leaves the payload untouched
//
// The read, the merge and the write happen in one transaction, so
// concurrent updates for the same user cannot drop each other's keys.
// A missing user row is created.
func (s *Store) SetStep(ctx context.Context, userID string, step model.StepID, merge model.Data) (model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Session{}, fmt.Errorf("set step: begin: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(s.now())
	current, err := readSession(ctx, tx, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bot_users (user_id, access_level, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, userID, string(model.AccessUser), now, now)
		if err != nil {
			return model.Session{}, fmt.Errorf("set step: insert: %w", err)
		}
		current = model.Session{UserID: userID, Data: model.Data{}}
	case err != nil:
		return model.Session{}, fmt.Errorf("set step: read: %w", err)
	}

	data := model.ApplyStep(current.Data, step, merge)
	raw, err := model.MarshalData(data)
	if err != nil {
		return model.Session{}, fmt.Errorf("set step: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bot_users SET step = ?, session_data = ?, updated_at = ? WHERE user_id = ?
	`, string(step), string(raw), now, userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("set step: update: %w", err)
	}

	updated, err := readSession(ctx, tx, userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("set step: read back: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Session{}, fmt.Errorf("set step: commit: %w", err)
	}
	return updated, nil
}

// SetAccess changes the access level of userID.
// Returns model.ErrNotFound when the user has never written to the bot.
func (s *Store) SetAccess(ctx context.Context, userID string, level model.AccessLevel) (model.Session, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bot_users SET access_level = ?, updated_at = ? WHERE user_id = ?
	`, string(level), formatTime(s.now()), userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("set access: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Session{}, fmt.Errorf("set access %s: %w", userID, model.ErrNotFound)
	}

	sess, err := readSession(ctx, s.db, userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("set access: read back: %w", err)
	}
	return sess, nil
}

// CountSessions returns the number of known users.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bot_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// readSession loads one bot_users row through q, which may be a transaction.
func readSession(ctx context.Context, q queryer, userID string) (model.Session, error) {
	var (
		sess      model.Session
		step      string
		raw       string
		access    string
		updatedAt string
	)
	err := q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM bot_users WHERE user_id = ?`, userID).Scan(
		&sess.UserID,
		&sess.Profile.FirstName,
		&sess.Profile.LastName,
		&sess.Profile.Username,
		&step,
		&raw,
		&access,
		&updatedAt,
	)
	if err != nil {
		return model.Session{}, err
	}

	data, err := model.UnmarshalData([]byte(raw))
	if err != nil {
		return model.Session{}, fmt.Errorf("session %s: %w", userID, err)
	}
	ts, err := parseTime(updatedAt)
	if err != nil {
		return model.Session{}, err
	}

	sess.Step = model.StepID(step)
	sess.Data = data
	sess.Access = model.AccessLevel(access)
	sess.UpdatedAt = ts
	return sess, nil
}
