package store

// UserCredential holds a user's encrypted ticket tracker access token.
type UserCredential struct {
	UserID         string
	Platform       string
	EncryptedToken string
	CreatedTs      int64
	UpdatedTs      int64
}

// FindUserCredential specifies the conditions for finding a user credential.
type FindUserCredential struct {
	UserID   string
	Platform string
}

// UpsertUserCredential specifies the data for upserting a user credential.
type UpsertUserCredential struct {
	UserID         string
	Platform       string
	EncryptedToken string
}
