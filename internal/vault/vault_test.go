package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/chronolog/store"
)

type memoryCredentials struct {
	rows map[string]*store.UserCredential
}

func newMemoryCredentials() *memoryCredentials {
	return &memoryCredentials{rows: map[string]*store.UserCredential{}}
}

func (m *memoryCredentials) UpsertUserCredential(_ context.Context, upsert *store.UpsertUserCredential) (*store.UserCredential, error) {
	row := &store.UserCredential{UserID: upsert.UserID, Platform: upsert.Platform, EncryptedToken: upsert.EncryptedToken}
	m.rows[upsert.Platform+"/"+upsert.UserID] = row
	return row, nil
}

func (m *memoryCredentials) GetUserCredential(_ context.Context, find *store.FindUserCredential) (*store.UserCredential, error) {
	return m.rows[find.Platform+"/"+find.UserID], nil
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("", newMemoryCredentials())
	require.Error(t, err)
}

func TestSealOpen(t *testing.T) {
	v, err := New("master-secret", nil)
	require.NoError(t, err)

	sealed, err := v.Seal("U1", "jira", "tok-123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "tok-123")

	opened, err := v.Open("U1", "jira", sealed)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", opened)

	again, err := v.Seal("U1", "jira", "tok-123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")
}

func TestOpenRejectsTampering(t *testing.T) {
	v, err := New("master-secret", nil)
	require.NoError(t, err)
	sealed, err := v.Seal("U1", "jira", "tok-123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		userID   string
		platform string
		sealed   string
	}{
		{"other user", "U2", "jira", sealed},
		{"other platform", "U1", "slack", sealed},
		{"not base64", "U1", "jira", "%%%"},
		{"too short", "U1", "jira", "AAAA"},
		{"flipped byte", "U1", "jira", flip(sealed)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Open(tt.userID, tt.platform, tt.sealed)
			require.ErrorIs(t, err, ErrTampered)
		})
	}

	other, err := New("another-secret", nil)
	require.NoError(t, err)
	_, err = other.Open("U1", "jira", sealed)
	require.ErrorIs(t, err, ErrTampered)
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	credentials := newMemoryCredentials()
	v, err := New("master-secret", credentials)
	require.NoError(t, err)

	_, err = v.Token(ctx, "U1", "jira")
	require.ErrorIs(t, err, ErrNoCredential)

	require.Error(t, v.SetToken(ctx, "U1", "jira", ""))
	require.NoError(t, v.SetToken(ctx, "U1", "jira", "tok-123"))
	assert.NotEqual(t, "tok-123", credentials.rows["jira/U1"].EncryptedToken)

	token, err := v.Token(ctx, "U1", "jira")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func flip(sealed string) string {
	b := []byte(sealed)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
