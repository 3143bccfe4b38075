package models

// Role values carried in access tokens.
const (
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the caller may use admin endpoints.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
