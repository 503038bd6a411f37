package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/chronolog/internal/profile"
	"github.com/hrygo/chronolog/store"
	"github.com/hrygo/chronolog/store/db/postgres"
	"github.com/hrygo/chronolog/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// Exactly one backend is active per process and it is chosen here, once.
//
// PostgreSQL: managed deployments, several processes may share sessions.
// SQLite: single-node deployments and local development.
//
// Both backends expose the same session shape; callers never see
// backend-specific id formats or column types.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
