package models

import (
	"time"

	"github.com/google/uuid"
)

// Session groups conversation turns by (user, target database). A user
// has at most one active session per target database; requests reuse
// the most recent matching active session or mint a new one.
type Session struct {
	ID               uuid.UUID `json:"id"`
	Token            string    `json:"token"`
	UserID           string    `json:"user_id"`
	TargetDatabaseID uuid.UUID `json:"target_database_id"`
	Active           bool      `json:"active"`
	LastActivityAt   time.Time `json:"last_activity_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// ConversationTurn is one user question plus its outcome. Turns are
// append-only: created once per request, never mutated, recorded even
// on failure paths so history is audit-complete.
//
// A non-nil SQLQuery implies the security validator accepted it, even
// if execution later failed for a non-security reason.
type ConversationTurn struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    string    `json:"user_id"`

	Question     string  `json:"question"`
	SQLQuery     *string `json:"sql_query,omitempty"`
	ResultJSON   []byte  `json:"-"` // truncated row set, stored as JSONB
	Answer       string  `json:"answer"`
	ErrorMessage *string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// UsageCounter is one user's query count for one calendar day. Rows are
// created lazily and incremented atomically; only consulted for users
// on the shared/demo model tier.
type UsageCounter struct {
	UserID     string    `json:"user_id"`
	Day        time.Time `json:"day"`
	QueryCount int       `json:"query_count"`
}
