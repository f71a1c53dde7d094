package auth

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/intern-service/internal/domain"
	apperrors "github.com/spec-kit/intern-service/pkg/util"
)

func testUser(role domain.Role) *domain.User {
	web := domain.DomainWeb
	return &domain.User{ID: "user-1", Email: "jane@example.com", Role: role, Domain: &web}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 60)

	token, exp, err := tm.GenerateToken(testUser(domain.RoleIntern))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, domain.RoleIntern, claims.Role)
	require.NotNil(t, claims.Domain)
	assert.Equal(t, domain.DomainWeb, *claims.Domain)
	assert.NotEmpty(t, claims.ID)

	session := claims.Session()
	assert.Equal(t, claims.ID, session.TokenID)
	assert.Equal(t, exp.Unix(), session.ExpiresAt.Unix())
}

func TestParseTokenFailures(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	token, _, err := tm.GenerateToken(testUser(domain.RoleAdmin))
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		expired := NewTokenManager("secret", 60)
		expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := expired.ParseToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenManager("other", 60).ParseToken(token)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]
		_, err := tm.ParseToken(tampered)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.ParseToken("not-a-token")
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		role       domain.Role
		capability Capability
		want       bool
	}{
		{domain.RoleAdmin, CapManageCatalog, true},
		{domain.RoleAdmin, CapGradeSubmissions, true},
		{domain.RoleAdmin, CapViewAnyAssignments, true},
		{domain.RoleAdmin, CapOwnAssignments, false},
		{domain.RoleIntern, CapOwnAssignments, true},
		{domain.RoleIntern, CapManageCatalog, false},
		{domain.RoleIntern, CapGradeSubmissions, false},
		{domain.Role("guest"), CapOwnAssignments, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.capability), func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.role, tt.capability))
		})
	}
}

func TestPrincipalOwns(t *testing.T) {
	p := &Principal{Session: domain.Session{UserID: "user-1", Email: "jane@example.com"}}
	assert.True(t, p.Owns("JANE@example.com", ""))
	assert.True(t, p.Owns("", "user-1"))
	assert.False(t, p.Owns("bob@example.com", ""))
	assert.False(t, p.Owns("", "user-2"))
	assert.False(t, p.Owns("", ""))
}

func TestMiddlewareRejectsMissingAndForbidden(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	mw := NewAuthMiddleware(tm, nil)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	app.Get("/admin", mw.Handle, Require(CapManageCatalog), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	internToken, _, err := tm.GenerateToken(testUser(domain.RoleIntern))
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+internToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	adminToken, _, err := tm.GenerateToken(testUser(domain.RoleAdmin))
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
