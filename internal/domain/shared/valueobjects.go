package shared

import (
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// maxIDLength bounds caller-supplied identifiers so they fit the indexed
// text columns.
const maxIDLength = 128

// UserID identifies a marketplace user. The engine treats it as opaque.
type UserID string

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if uid.IsEmpty() {
		return "", NewDomainError("shared", "NewUserID", ErrEmptyValue, "user_id is required")
	}
	if len(uid) > maxIDLength {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "user_id is too long")
	}
	return uid, nil
}

// EventID is the caller-generated, globally unique id of an inbound event.
// Its first recording in the activity log is the idempotency guard.
type EventID string

// String returns the string representation.
func (e EventID) String() string {
	return string(e)
}

// NewEventID creates a new EventID with validation.
func NewEventID(id string) (EventID, error) {
	eid := EventID(strings.TrimSpace(id))
	if eid == "" {
		return "", NewDomainError("shared", "NewEventID", ErrEmptyValue, "event_id is required")
	}
	if len(eid) > maxIDLength {
		return "", NewDomainError("shared", "NewEventID", ErrInvalidID, "event_id is too long")
	}
	return eid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Rank Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Rank represents a position in a leaderboard.
type Rank int

const (
	MinRank  Rank = 1
	Unranked Rank = 0
)

// IsValid checks if the rank is valid.
func (r Rank) IsValid() bool {
	return r >= MinRank
}

// Int returns the underlying int value.
func (r Rank) Int() int {
	return int(r)
}

// IsTop returns true if the rank is in the top N.
func (r Rank) IsTop(n int) bool {
	return r.IsValid() && int(r) <= n
}
