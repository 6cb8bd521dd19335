// Package session holds the per-client login state and keeps it in step with
// a durable mirror (a signed cookie in production, memory in tests), so the
// state survives a page reload.
//
// LIFECYCLE:
//
//	Load(mirror)  → start of each interaction, restores a prior login
//	state.Set()   → after a successful login
//	state.Clear() → on logout
//
// Set and Clear write through to the mirror immediately; there is no
// separate save step.
package session

import (
	"context"
	"strconv"
)

// Mirror is the durable side-channel. It stores two string fields; an empty
// userID means "nobody is logged in".
type Mirror interface {
	Get() (userID, email string)
	Put(userID, email string) error
}

// State is one client's login state.
//
// Invariant: LoggedIn is true exactly when UserID identifies a user. When
// LoggedIn is false, UserID is 0 and Email is empty.
type State struct {
	LoggedIn bool
	UserID   int64
	Email    string

	mirror Mirror
}

// Load builds the state from whatever the mirror holds. A missing or
// malformed user id yields the anonymous state.
func Load(m Mirror) *State {
	s := &State{mirror: m}

	rawID, email := m.Get()
	if rawID == "" {
		return s
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return s
	}

	s.LoggedIn = true
	s.UserID = id
	s.Email = email
	return s
}

// Set marks the client as logged in and mirrors the identity.
func (s *State) Set(userID int64, email string) error {
	if err := s.mirror.Put(strconv.FormatInt(userID, 10), email); err != nil {
		return err
	}
	s.LoggedIn = true
	s.UserID = userID
	s.Email = email
	return nil
}

// Clear logs the client out and blanks the mirror.
func (s *State) Clear() error {
	s.LoggedIn = false
	s.UserID = 0
	s.Email = ""
	return s.mirror.Put("", "")
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the state stored by NewContext, if any.
func FromContext(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(contextKey{}).(*State)
	return s, ok && s != nil
}
