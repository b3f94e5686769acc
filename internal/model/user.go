// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the application's own user record.
//
// Supabase is the identity provider of record — it owns passwords, email
// confirmation, and account lifecycle. This row only links a verified email
// to internal data. We generate our own internal string ID (xid) so primary
// keys aren't tied to a third party's numbering scheme.
//
// WHY Name *string (not string)?
// The name is genuinely optional: a user created lazily on first login has no
// name at all, which is different from an empty name. A nil pointer
// serializes to JSON null, which is what clients expect.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Email     string    `json:"email"     db:"email"` // unique, always from the verified identity
	Name      *string   `json:"name"      db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
