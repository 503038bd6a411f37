package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Name returns the driver name, used to locate migration files.
	Name() string
	IsInitialized(ctx context.Context) (bool, error)

	// Session model related methods.
	// Lookups return nil without error when nothing live matches.
	CreateSession(ctx context.Context, create *CreateSession) (*Session, error)
	GetSession(ctx context.Context, find *FindSession) (*Session, error)
	UpdateSession(ctx context.Context, update *UpdateSession) (bool, error)
	DeleteSessions(ctx context.Context, delete *DeleteSession) (int64, error)
	DeleteSessionsExpiredBefore(ctx context.Context, ts int64) (int64, error)

	// UserCredential model related methods.
	UpsertUserCredential(ctx context.Context, upsert *UpsertUserCredential) (*UserCredential, error)
	GetUserCredential(ctx context.Context, find *FindUserCredential) (*UserCredential, error)
}
