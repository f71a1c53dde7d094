package domain

import "time"

// Domain is an internship specialization tasks are grouped by.
type Domain string

const (
	DomainWeb           Domain = "web"
	DomainAI            Domain = "ai"
	DomainMobile        Domain = "mobile"
	DomainCybersecurity Domain = "cybersecurity"
	DomainCloud         Domain = "cloud"
	DomainBlockchain    Domain = "blockchain"
)

// Domains lists every selectable domain.
var Domains = []Domain{
	DomainWeb,
	DomainAI,
	DomainMobile,
	DomainCybersecurity,
	DomainCloud,
	DomainBlockchain,
}

// Valid reports whether d is one of Domains.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

const (
	MinTaskLevel     = 1
	MaxTaskLevel     = 6
	DefaultTaskLevel = MinTaskLevel
	DefaultCreatedBy = "admin"
)

// Task is a catalog entry authored by an admin.
type Task struct {
	ID          string
	Title       string
	Description string
	Domain      Domain
	Level       int
	CreatedBy   string
	CreatedAt   time.Time
}
