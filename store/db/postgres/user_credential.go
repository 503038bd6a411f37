package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hrygo/chronolog/store"
)

func (d *DB) UpsertUserCredential(ctx context.Context, upsert *store.UpsertUserCredential) (*store.UserCredential, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO user_credential (user_id, platform, encrypted_token, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			encrypted_token = EXCLUDED.encrypted_token,
			updated_ts = EXCLUDED.updated_ts
		RETURNING user_id, platform, encrypted_token, created_ts, updated_ts`

	result := &store.UserCredential{}
	err := d.db.QueryRowContext(ctx, stmt, upsert.UserID, upsert.Platform, upsert.EncryptedToken, now, now).Scan(
		&result.UserID,
		&result.Platform,
		&result.EncryptedToken,
		&result.CreatedTs,
		&result.UpdatedTs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user_credential: %w", err)
	}

	return result, nil
}

func (d *DB) GetUserCredential(ctx context.Context, find *store.FindUserCredential) (*store.UserCredential, error) {
	query := `SELECT user_id, platform, encrypted_token, created_ts, updated_ts
		FROM user_credential
		WHERE user_id = ` + placeholder(1) + ` AND platform = ` + placeholder(2)

	result := &store.UserCredential{}
	err := d.db.QueryRowContext(ctx, query, find.UserID, find.Platform).Scan(
		&result.UserID,
		&result.Platform,
		&result.EncryptedToken,
		&result.CreatedTs,
		&result.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get user_credential: %w", err)
	}

	return result, nil
}
