package domain

import "time"

// IdentityCreatedEvent is consumed from the identity store's event stream
// whenever a new identity record is committed. Delivery is at-least-once, so
// handlers must be idempotent.
type IdentityCreatedEvent struct {
	EventID   string         `json:"event_id"`
	UserID    string         `json:"user_id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ProfileSyncedEvent is published after a profile row has been materialized
// or refreshed for an identity.
type ProfileSyncedEvent struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	SyncedAt    time.Time `json:"synced_at"`
}

// BackfillCompletedEvent reports the outcome of a backfill sweep.
type BackfillCompletedEvent struct {
	EventID     string    `json:"event_id"`
	Repaired    int64     `json:"repaired"`
	CompletedAt time.Time `json:"completed_at"`
}
