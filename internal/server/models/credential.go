// Package models defines server-side data models persisted in the database.
package models

import "time"

// Credential is the unit of authentication: an opaque owner id and its token.
type Credential struct {
	OwnerID   string
	Token     string
	CreatedAt time.Time
}
