package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Priority ranks unsolved queries and alerts
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// PriorityFromUrgency maps a caller urgency hint in [0,1] to a priority.
// Zero means no hint and yields medium.
func PriorityFromUrgency(urgency float64) Priority {
	switch {
	case urgency >= 0.9:
		return PriorityCritical
	case urgency >= 0.7:
		return PriorityHigh
	case urgency > 0 && urgency < 0.3:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// QueryStatus is the lifecycle state of an unsolved query
type QueryStatus string

const (
	StatusPending             QueryStatus = "pending"
	StatusPotentiallyResolved QueryStatus = "potentially_resolved"
	StatusResolved            QueryStatus = "resolved"
)

func (s QueryStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPotentiallyResolved:
		return 1
	case StatusResolved:
		return 2
	}
	return -1
}

// CanTransition reports whether from -> to is a single forward step
func CanTransition(from, to QueryStatus) bool {
	if from.rank() < 0 || to.rank() < 0 {
		return false
	}
	return to.rank() == from.rank()+1
}

// Resolution holds the content that potentially answered a query
type Resolution struct {
	Content    string    `json:"content"`
	Source     string    `json:"source,omitempty"`
	// SourceKind is the verification method the source's domain maps to
	SourceKind Method    `json:"source_kind,omitempty"`
	Score      float64   `json:"score"`
	FoundAt    time.Time `json:"found_at"`
}

// UnsolvedQuery tracks content that could not be confidently assessed
type UnsolvedQuery struct {
	ID                string      `json:"id"`
	UserID            string      `json:"user_id"`
	Content           string      `json:"content"`
	ContentType       ContentType `json:"content_type"`
	Priority          Priority    `json:"priority"`
	Keywords          []string    `json:"keywords"`
	MonitoringSources []string    `json:"monitoring_sources"`
	Status            QueryStatus `json:"status"`
	StoredAt          time.Time   `json:"stored_at"`
	ResolvedAt        *time.Time  `json:"resolved_at,omitempty"`
	Resolution        *Resolution `json:"resolution,omitempty"`
	CheckCount        int         `json:"check_count"`
	LastCheckedAt     *time.Time  `json:"last_checked_at,omitempty"`
}

// Subscription registers a user for alerts on a query
type Subscription struct {
	QueryID      string    `json:"query_id"`
	UserID       string    `json:"user_id"`
	Channels     []Channel `json:"channels"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewSubscription validates channels and user data
func NewSubscription(queryID, userID string, channels []Channel, now time.Time) (Subscription, error) {
	if queryID == "" {
		return Subscription{}, eris.Wrap(ErrInvalidSubscription, "query id is empty")
	}
	if userID == "" {
		return Subscription{}, eris.Wrap(ErrInvalidSubscription, "user id is empty")
	}
	if len(channels) == 0 {
		return Subscription{}, eris.Wrap(ErrInvalidSubscription, "no channels")
	}
	seen := make(map[Channel]bool, len(channels))
	var unique []Channel
	for _, ch := range channels {
		if !ch.Valid() {
			return Subscription{}, eris.Wrapf(ErrInvalidSubscription, "unknown channel %q", ch)
		}
		if !seen[ch] {
			seen[ch] = true
			unique = append(unique, ch)
		}
	}
	return Subscription{QueryID: queryID, UserID: userID, Channels: unique, RegisteredAt: now}, nil
}
