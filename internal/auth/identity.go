package auth

import "time"

// Identity is the verified caller behind a bearer token. Values are only
// produced by TokenService.Validate and cannot be modified afterwards.
type Identity struct {
	subjectID int64
	email     string
	role      Role
	tokenID   string
	issuedAt  time.Time
	expiresAt time.Time
}

func (i *Identity) SubjectID() int64     { return i.subjectID }
func (i *Identity) Email() string        { return i.email }
func (i *Identity) Role() Role           { return i.role }
func (i *Identity) TokenID() string      { return i.tokenID }
func (i *Identity) IssuedAt() time.Time  { return i.issuedAt }
func (i *Identity) ExpiresAt() time.Time { return i.expiresAt }
