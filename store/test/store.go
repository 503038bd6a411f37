package test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hrygo/chronolog/internal/profile"
	"github.com/hrygo/chronolog/store"
	"github.com/hrygo/chronolog/store/db"
)

// Clock is a manually advanced time source shared by a testing store.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestingStore bundles a migrated store with the clock that drives it.
type TestingStore struct {
	*store.Store
	Clock *Clock
}

// NewTestingStore opens a migrated store on the driver named by DRIVER
// (sqlite in a temp dir when unset). Tests sharing POSTGRES_TEST_DSN must not
// run in parallel since cleanup empties the session table.
func NewTestingStore(ctx context.Context, t *testing.T) *TestingStore {
	t.Helper()

	p := getTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	clock := NewClock(time.Date(2026, time.October, 15, 10, 30, 0, 0, time.UTC))
	s := store.New(driver, p).WithClock(clock.Now)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	t.Cleanup(func() {
		for _, table := range []string{"conversation_session", "user_credential"} {
			if _, err := driver.GetDB().ExecContext(context.Background(), "DELETE FROM "+table); err != nil {
				t.Logf("failed to reset %s: %v", table, err)
			}
		}
		_ = s.Close()
	})
	return &TestingStore{Store: s, Clock: clock}
}

func getTestingProfile(t *testing.T) *profile.Profile {
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:       "dev",
		Data:       dir,
		Driver:     getDriverFromEnv(),
		SessionTTL: store.DefaultSessionTTL,
	}
	switch p.Driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		p.DSN = filepath.Join(dir, "chronolog_test.db")
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
