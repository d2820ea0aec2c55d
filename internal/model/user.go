package model

import "time"

// Role values stored on users.role. The identity provider is the source
// of truth; the local copy only gates admin endpoints and addresses
// notification e-mails.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the local mirror of an identity-provider account. Rows are
// created, updated and deleted exclusively by the identity sync webhook;
// the service itself never registers users or handles credentials.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
