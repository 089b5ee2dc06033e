package model

import "time"

// Claims are the verified contents of an access token.
type Claims struct {
	Subject   ID
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c Claims) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
