// Package model defines the data structures used throughout the application.
package model

// User is a registered account.
//
// ID is the store-assigned integer key (INTEGER PRIMARY KEY AUTOINCREMENT).
// Email is unique across the users table; the store rejects a second row with
// the same email. PasswordHash is a self-describing salted hash string
// (see auth.PasswordService) and is never serialised to JSON.
type User struct {
	ID           int64  `json:"id"    db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-"     db:"password"`
}
