package services

import "github.com/sjperalta/advance-portal/internal/models"

// Actor is the authenticated user behind a request. It is built by the session
// middleware and passed into every mutation so audit entries know who acted.
type Actor struct {
	UserID    uint
	Email     string
	Role      string
	IP        string
	UserAgent string
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
