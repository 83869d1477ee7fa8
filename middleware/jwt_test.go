package middleware

import (
	"certhub/config"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp() *fiber.App {
	config.AppConfig = &config.Config{JWTKey: "test-secret", JWTTTLHours: 1}

	app := fiber.New()
	app.Get("/whoami", JWTMiddleware, func(c *fiber.Ctx) error {
		session := SessionFrom(c)
		return c.JSON(fiber.Map{"id": session.AdminID, "username": session.Username, "ok": session.Authenticated()})
	})
	return app
}

func TestJWTMiddlewareAcceptsIssuedToken(t *testing.T) {
	app := testApp()
	token, err := GenerateJWT(7, "root")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTMiddlewareRejects(t *testing.T) {
	app := testApp()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"adminId": 7,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"adminId": 7,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	foreignToken, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	noAdmin := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noAdminToken, err := noAdmin.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":  "",
		"scheme":   "Token abc",
		"expired":  "Bearer " + expiredToken,
		"foreign":  "Bearer " + foreignToken,
		"no admin": "Bearer " + noAdminToken,
	} {
		req := httptest.NewRequest("GET", "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, name)
	}
}

func TestNilSessionIsNotAuthenticated(t *testing.T) {
	var session *AdminSession
	assert.False(t, session.Authenticated())
	assert.False(t, (&AdminSession{AdminID: 1}).Authenticated())
}
