package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/chronolog/store"
)

func (d *DB) CreateSession(ctx context.Context, create *store.CreateSession) (*store.Session, error) {
	stmt := `INSERT INTO conversation_session (user_id, platform, session_type, session_data, created_at, expires_at)
		VALUES (` + placeholders(6) + `)
		RETURNING id`

	var id int64
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.Platform,
		string(create.State),
		string(create.Payload),
		create.CreatedAt.Unix(),
		create.ExpiresAt.Unix(),
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &store.Session{
		ID:        strconv.FormatInt(id, 10),
		UserID:    create.UserID,
		Platform:  create.Platform,
		State:     create.State,
		Payload:   create.Payload,
		CreatedAt: time.Unix(create.CreatedAt.Unix(), 0),
		ExpiresAt: time.Unix(create.ExpiresAt.Unix(), 0),
	}, nil
}

func (d *DB) GetSession(ctx context.Context, find *store.FindSession) (*store.Session, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		id, err := strconv.ParseInt(*v, 10, 64)
		if err != nil {
			// Not an id this backend could have issued.
			return nil, nil
		}
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, id)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Platform; v != nil {
		where, args = append(where, "platform = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.State; v != nil {
		where, args = append(where, "session_type = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if !find.Now.IsZero() {
		where, args = append(where, "expires_at > "+placeholder(len(args)+1)), append(args, find.Now.Unix())
	}

	query := `
		SELECT id, user_id, platform, session_type, session_data, created_at, expires_at
		FROM conversation_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var (
		session              store.Session
		id                   int64
		state, data          string
		createdAt, expiresAt int64
	)
	err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&id,
		&session.UserID,
		&session.Platform,
		&state,
		&data,
		&createdAt,
		&expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if !json.Valid([]byte(data)) {
		return nil, fmt.Errorf("session %d has corrupt session_data", id)
	}

	session.ID = strconv.FormatInt(id, 10)
	session.State = store.SessionState(state)
	session.Payload = json.RawMessage(data)
	session.CreatedAt = time.Unix(createdAt, 0)
	session.ExpiresAt = time.Unix(expiresAt, 0)
	return &session, nil
}

func (d *DB) UpdateSession(ctx context.Context, update *store.UpdateSession) (bool, error) {
	id, err := strconv.ParseInt(update.ID, 10, 64)
	if err != nil {
		return false, nil
	}

	stmt := `UPDATE conversation_session
		SET session_type = ` + placeholder(1) + `, session_data = ` + placeholder(2) + `
		WHERE id = ` + placeholder(3) + ` AND expires_at > ` + placeholder(4)
	result, err := d.db.ExecContext(ctx, stmt, string(update.State), string(update.Payload), id, update.Now.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	return rows > 0, nil
}

func (d *DB) DeleteSessions(ctx context.Context, delete *store.DeleteSession) (int64, error) {
	where, args := []string{}, []any{}

	if v := delete.ID; v != nil {
		id, err := strconv.ParseInt(*v, 10, 64)
		if err != nil {
			return 0, nil
		}
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, id)
	}
	if v := delete.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.Platform; v != nil {
		where, args = append(where, "platform = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.State; v != nil {
		where, args = append(where, "session_type = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if len(where) == 0 {
		return 0, errors.New("refusing to delete sessions without a filter")
	}

	stmt := `DELETE FROM conversation_session WHERE ` + strings.Join(where, " AND ")
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return result.RowsAffected()
}

func (d *DB) DeleteSessionsExpiredBefore(ctx context.Context, ts int64) (int64, error) {
	stmt := `DELETE FROM conversation_session WHERE expires_at <= ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, ts)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
