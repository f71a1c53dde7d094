package domain

import "time"

// Session is the identity carried by an access token.
type Session struct {
	TokenID   string
	UserID    string
	Email     string
	Role      Role
	Domain    *Domain
	IssuedAt  time.Time
	ExpiresAt time.Time
}
