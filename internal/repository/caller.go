package repository

// Caller is the authenticated identity every gateway query is scoped to.
// Admins bypass membership checks entirely; everyone else sees exactly the
// departments their membership rows grant.
type Caller struct {
	ID      string
	IsAdmin bool
}
