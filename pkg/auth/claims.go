package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Purpose identifies which operation a token authorizes
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposePasswordReset Purpose = "password_reset"
)

// Claims is the fixed claim set embedded in every signed token. The
// Purpose field selects which optional fields are populated: access
// tokens carry email, role and permissions; refresh and password-reset
// tokens carry a unique token id (jti) instead.
type Claims struct {
	Purpose     Purpose  `json:"type"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject user id
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenID returns the unique token id (jti) for refresh and
// password-reset tokens; empty for access tokens.
func (c *Claims) TokenID() string {
	return c.ID
}

// Principal is the resolved identity attached to a request after
// successful authentication.
type Principal struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenant_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Active      bool     `json:"active"`
}

// HasPermission reports whether the principal carries the named
// permission.
func (p *Principal) HasPermission(permission string) bool {
	for _, have := range p.Permissions {
		if have == permission {
			return true
		}
	}
	return false
}
