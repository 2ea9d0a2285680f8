// Package guard decides whether a navigation may proceed given the current
// authentication session, and owns that session's lifecycle.
package guard

// Access is the authentication requirement declared by a route.
type Access int

const (
	AccessNone Access = iota
	AccessRequiresAuth
	AccessRequiresGuest
)

func (a Access) String() string {
	switch a {
	case AccessRequiresAuth:
		return "requiresAuth"
	case AccessRequiresGuest:
		return "requiresGuest"
	default:
		return "none"
	}
}
