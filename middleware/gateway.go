package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	LocalUserID  = "user_id"
	LocalRoles   = "user_roles"
	LocalService = "service_caller"
)

// Claims is the HS256 token issued by the auth gateway.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token and returns its claims. The subject is required.
func ParseToken(secret, raw string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt verification disabled")
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &claims, nil
}

func bearer(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(h)
}

// GatewayAuthMiddleware accepts either the static service token or a user JWT.
// A JWT sets the caller's identity; the service token leaves identity to the
// X-User-ID headers forwarded by the gateway.
func GatewayAuthMiddleware(serviceToken, jwtSecret string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearer(c)
		if token == "" {
			logger.Debug("missing bearer token", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication token missing"})
		}
		if serviceToken != "" && token == serviceToken {
			c.Locals(LocalService, true)
			return c.Next()
		}
		claims, err := ParseToken(jwtSecret, token)
		if err != nil {
			logger.Info("rejected bearer token", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authentication token"})
		}
		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalRoles, claims.Roles)
		return c.Next()
	}
}

// ServiceOnly restricts a route to callers holding the service token.
func ServiceOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ok, _ := c.Locals(LocalService).(bool); !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "service token required"})
		}
		return c.Next()
	}
}
