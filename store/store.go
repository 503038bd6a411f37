package store

import (
	"context"
	"time"

	"github.com/hrygo/chronolog/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	sessionTTL time.Duration
	now        func() time.Time
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	ttl := DefaultSessionTTL
	if profile != nil && profile.SessionTTL > 0 {
		ttl = profile.SessionTTL
	}

	return &Store{
		driver:     driver,
		profile:    profile,
		sessionTTL: ttl,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for session deadlines.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateSession stores a new session and returns it with its assigned ID.
func (s *Store) CreateSession(ctx context.Context, create *CreateSession) (*Session, error) {
	now := s.now().Truncate(time.Second)
	create.CreatedAt = now
	if create.ExpiresAt == nil {
		expiresAt := now.Add(s.sessionTTL)
		create.ExpiresAt = &expiresAt
	}
	if len(create.Payload) == 0 {
		create.Payload = []byte("{}")
	}
	return s.driver.CreateSession(ctx, create)
}

// GetSession returns the live session with the given ID, or nil if it does
// not exist or has expired.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.driver.GetSession(ctx, &FindSession{ID: &id, Now: s.now()})
}

// GetLatestSession returns the most recent live session matching find.
func (s *Store) GetLatestSession(ctx context.Context, find *FindSession) (*Session, error) {
	find.Now = s.now()
	return s.driver.GetSession(ctx, find)
}

// UpdateSession replaces a live session's state and payload, keeping its ID
// and creation time. It reports false when no live session matched.
func (s *Store) UpdateSession(ctx context.Context, update *UpdateSession) (bool, error) {
	update.Now = s.now()
	if len(update.Payload) == 0 {
		update.Payload = []byte("{}")
	}
	return s.driver.UpdateSession(ctx, update)
}

// DeleteSession removes a session by ID and reports whether a row was removed.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	n, err := s.driver.DeleteSessions(ctx, &DeleteSession{ID: &id})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteSessions removes every session matching delete.
func (s *Store) DeleteSessions(ctx context.Context, delete *DeleteSession) (int64, error) {
	return s.driver.DeleteSessions(ctx, delete)
}

// DeleteExpiredSessions removes sessions whose deadline has passed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return s.driver.DeleteSessionsExpiredBefore(ctx, s.now().Unix())
}

func (s *Store) UpsertUserCredential(ctx context.Context, upsert *UpsertUserCredential) (*UserCredential, error) {
	return s.driver.UpsertUserCredential(ctx, upsert)
}

func (s *Store) GetUserCredential(ctx context.Context, find *FindUserCredential) (*UserCredential, error) {
	return s.driver.GetUserCredential(ctx, find)
}
