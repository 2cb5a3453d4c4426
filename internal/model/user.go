// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// The ID is assigned by the database (INTEGER PRIMARY KEY), and the UNIQUE
// constraint on username guarantees one account per name. PasswordHash is the
// full bcrypt output — salt and cost are embedded in the string, so no
// separate salt column is needed. The raw password is never stored anywhere.
//
// Accounts are immutable after registration: there is no update or delete
// path for users in this application.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialized
	CreatedAt    time.Time `json:"createdAt"`
}
