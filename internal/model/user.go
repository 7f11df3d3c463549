// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// User represents a registered account.
//
// PasswordHash carries the bcrypt digest and is tagged `json:"-"` so it can
// never leak through an API response. Handlers return the struct as-is and the
// encoder drops the digest.
type User struct {
	ID           int64     `json:"id"         db:"id"`
	Username     string    `json:"username"   db:"username"`
	Email        string    `json:"email"      db:"email"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NormalizeEmail trims and case-folds an address so that lookups and the
// UNIQUE index treat "Alice@X.com" and "alice@x.com" as the same account.
func NormalizeEmail(email string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(email))
}

// Stats summarises a user's job applications for the profile endpoint.
// The named counters mirror the dashboard cards; ByStatus holds every status.
type Stats struct {
	TotalJobs  int            `json:"total_jobs"`
	Applied    int            `json:"applied"`
	Interviews int            `json:"interviews"`
	Offers     int            `json:"offers"`
	Rejected   int            `json:"rejected"`
	Accepted   int            `json:"accepted"`
	ByStatus   map[Status]int `json:"by_status"`
}

// NewStats builds Stats from per-status counts.
func NewStats(counts map[Status]int) Stats {
	s := Stats{ByStatus: make(map[Status]int, len(Statuses))}
	for _, st := range Statuses {
		s.ByStatus[st] = counts[st]
		s.TotalJobs += counts[st]
	}
	s.Applied = counts[StatusApplied]
	s.Interviews = counts[StatusInterview]
	s.Offers = counts[StatusOffer]
	s.Rejected = counts[StatusRejected]
	s.Accepted = counts[StatusAccepted]
	return s
}
