package domain

import (
	"strings"
	"time"
)

// Role enumerates the closed set of profile roles.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// Identity mirrors the account record owned by the external identity
// provider. It is observed, never mutated, by this service.
type Identity struct {
	ID        string
	Email     string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Profile is the local application record mirroring an Identity. The ID is
// the join key and must equal the identity's ID.
type Profile struct {
	ID           string
	Email        string
	DisplayName  string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastActiveAt time.Time
}

// ProfileFromIdentity derives the profile row for a freshly created identity.
// Display name prefers the full_name metadata field and falls back to the
// portion of the email before the '@'. Role always starts as viewer; re-syncs
// of an existing profile must not touch the stored role.
func ProfileFromIdentity(identity Identity, now time.Time) Profile {
	displayName := ""
	if raw, ok := identity.Metadata["full_name"]; ok {
		if s, ok := raw.(string); ok {
			displayName = strings.TrimSpace(s)
		}
	}
	if displayName == "" {
		displayName = emailLocalPart(identity.Email)
	}

	now = now.UTC()
	return Profile{
		ID:           identity.ID,
		Email:        identity.Email,
		DisplayName:  displayName,
		Role:         RoleViewer,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}
}

func emailLocalPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
