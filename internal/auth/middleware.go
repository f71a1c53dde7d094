package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intern-service/internal/domain"
	apperrors "github.com/spec-kit/intern-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller for the duration of one request.
type Principal struct {
	domain.Session
}

// Can reports whether the principal holds capability.
func (p *Principal) Can(capability Capability) bool {
	return p != nil && Allows(p.Role, capability)
}

// Owns reports whether the principal is the user identified by email or id.
// Empty arguments are ignored; at least one must be given.
func (p *Principal) Owns(email, userID string) bool {
	if p == nil || (email == "" && userID == "") {
		return false
	}
	if email != "" && domain.NormalizeEmail(email) != domain.NormalizeEmail(p.Email) {
		return false
	}
	if userID != "" && userID != p.UserID {
		return false
	}
	return true
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens      *TokenManager
	revocations RevocationStore
}

// NewAuthMiddleware constructs middleware. revocations may be nil.
func NewAuthMiddleware(tokens *TokenManager, revocations RevocationStore) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revocations: revocations}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewTokenExpired()
		}
		return apperrors.NewTokenMalformed()
	}

	if m.revocations != nil && claims.ID != "" {
		revoked, err := m.revocations.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if revoked {
			return apperrors.NewUnauthorized("token revoked")
		}
	}

	c.Locals(principalKey, &Principal{Session: claims.Session()})
	return c.Next()
}

// Require ensures the principal holds at least one of the capabilities.
func Require(capabilities ...Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !AllowsAny(principal.Role, capabilities...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
