// Package audit records every privileged registry mutation: who, what, when,
// details. The trail is append-only — entries are never edited or deleted by
// this system.
//
// Action naming follows the admin operations: "add_user", "remove_user",
// "update_user", "set_reviews".
package audit

import (
	"context"
	"time"
)

// Audited admin actions.
const (
	ActionAddUser    = "add_user"
	ActionRemoveUser = "remove_user"
	ActionUpdateUser = "update_user"
	ActionSetReviews = "set_reviews"
)

// Entry is one audit record.
type Entry struct {
	ID        string         `json:"id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Admin     string         `json:"admin"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
}

// Log is an append-only audit sink.
//
// Append must be atomic: concurrent appends from different operations may
// interleave in the log, but no entry is ever torn. Append failures are
// returned to the caller — a privileged mutation is not considered complete
// until its audit entry is durable.
type Log interface {
	// Append writes one entry for a privileged action.
	Append(ctx context.Context, admin, action string, details map[string]any) error

	// Entries returns recorded entries in write order. limit <= 0 means all.
	Entries(ctx context.Context, limit int) ([]Entry, error)
}
