package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testServiceToken = "svc-token"
	testSecret       = "jwt-secret"
)

func signToken(t *testing.T, secret, sub string, roles []string, exp time.Duration) string {
	t.Helper()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newApp() *fiber.App {
	log := zap.NewNop()
	app := fiber.New()
	app.Use(GatewayAuthMiddleware(testServiceToken, testSecret, log))
	s := app.Group("/s", UserContextMiddleware(log))
	s.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(UserID(c) + "|" + strings.Join(Roles(c), ","))
	})
	s.Get("/admin", RequireRole("admin"), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/internal/job", ServiceOnly(), func(c *fiber.Ctx) error { return c.SendString("ran") })
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestGatewayAuth(t *testing.T) {
	app := newApp()

	code, _ := do(t, app, "GET", "/s/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, _ = do(t, app, "GET", "/s/me", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, code)

	token := signToken(t, testSecret, "u1", []string{"player"}, time.Hour)
	code, body := do(t, app, "GET", "/s/me", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "u1|player", body)

	expired := signToken(t, testSecret, "u1", nil, -time.Minute)
	code, _ = do(t, app, "GET", "/s/me", map[string]string{"Authorization": "Bearer " + expired})
	assert.Equal(t, fiber.StatusUnauthorized, code)

	forged := signToken(t, "other-secret", "u1", []string{"admin"}, time.Hour)
	code, _ = do(t, app, "GET", "/s/admin", map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestServiceTokenUsesGatewayHeaders(t *testing.T) {
	app := newApp()
	auth := "Bearer " + testServiceToken

	code, _ := do(t, app, "GET", "/s/me", map[string]string{"Authorization": auth})
	assert.Equal(t, fiber.StatusUnauthorized, code, "service calls still need a user on /s routes")

	code, body := do(t, app, "GET", "/s/me", map[string]string{
		"Authorization": auth, "X-User-ID": "u9", "X-User-Roles": "player, admin",
	})
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "u9|player,admin", body)

	code, _ = do(t, app, "GET", "/s/admin", map[string]string{"Authorization": auth, "X-User-ID": "u9", "X-User-Roles": "admin"})
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = do(t, app, "POST", "/internal/job", map[string]string{"Authorization": auth})
	assert.Equal(t, fiber.StatusOK, code)
}

func TestUserTokenCannotSpoofHeadersOrRunJobs(t *testing.T) {
	app := newApp()
	token := "Bearer " + signToken(t, testSecret, "u1", []string{"player"}, time.Hour)

	code, body := do(t, app, "GET", "/s/me", map[string]string{"Authorization": token, "X-User-ID": "u2", "X-User-Roles": "admin"})
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "u1|player", body)

	code, _ = do(t, app, "GET", "/s/admin", map[string]string{"Authorization": token})
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = do(t, app, "POST", "/internal/job", map[string]string{"Authorization": token})
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestSSEAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/stream", SSEAuthMiddleware(testSecret, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	code, _ := do(t, app, "GET", "/stream", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, "GET", "/stream?token=junk", nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, body := do(t, app, "GET", "/stream?token="+signToken(t, testSecret, "u7", nil, time.Hour), nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "u7", body)
}
