package session

import "encoding/json"

// Status is the resolved authentication state of a portal session.
type Status string

const (
	StatusUnknown         Status = "Unknown"         // not yet checked
	StatusRefreshing      Status = "Refreshing"      // transient; a refresh is in flight
	StatusAuthenticated   Status = "Authenticated"   // stable for the rest of the page load
	StatusUnauthenticated Status = "Unauthenticated" // stable for the rest of the page load
)

// Session is the controller's working state for one portal session. It is
// rebuilt from the Store on every resolve; the refresh token never leaves
// the Store.
type Session struct {
	AccessToken string
	Claims      Claims
	Status      Status
	User        json.RawMessage // cached profile, advisory only
}

func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

func (s Session) Role() Role {
	return s.Claims.Role
}
