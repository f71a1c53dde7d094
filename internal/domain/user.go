package domain

import (
	"strings"
	"time"
)

// Role is the closed set of caller roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleIntern Role = "intern"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleIntern
}

// User is an applicant or administrator account.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	PhoneNumber  string
	Gender       string
	DateOfBirth  *time.Time
	University   string
	Degree       string
	YearOfStudy  int
	Skills       []string
	Resume       *string
	LinkedIn     string
	Domain       *Domain
	Role         Role
	CreatedAt    time.Time
}

// DomainValue returns the selected domain or "" when none is set.
func (u *User) DomainValue() Domain {
	if u == nil || u.Domain == nil {
		return ""
	}
	return *u.Domain
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
