package auth

import "github.com/gofiber/fiber/v2"

const principalLocal = "principal"

// Principal is the authenticated caller as seen by handlers.
type Principal struct {
	UserID string
	Admin  bool
}

// CanAccess reports whether the principal may act on a resource owned by
// ownerID. Administrators may act on any account; everyone else only on their
// own.
func (p Principal) CanAccess(ownerID string) bool {
	if p.Admin {
		return true
	}
	return p.UserID != "" && p.UserID == ownerID
}

// WithPrincipal stores p on the request.
func WithPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(principalLocal, p)
}

// PrincipalFrom returns the principal stored by the JWT middleware.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(principalLocal).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, false
	}
	return p, true
}
