package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/config"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
)

const SubjectLocalsKey = "subject"

var errMissingToken = errors.New("middleware/auth: bearer token missing")

// Auth accepts HS256 bearer tokens signed with the configured secret. Issuer
// and audience are checked only when configured.
func Auth(cfg *config.Config, lg *logging.ZapLogger) fiber.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.JWTSecret)

	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return unauthorized(c)
		}

		claims := &jwt.RegisteredClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}); err != nil {
			lg.DebugCtx(c.UserContext(), "token rejected", zap.Error(err))

			return unauthorized(c)
		}

		c.Locals(SubjectLocalsKey, claims.Subject)
		c.SetUserContext(lg.WithContextFields(c.UserContext(), zap.String("subject", claims.Subject)))

		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMissingToken
	}

	return strings.TrimSpace(token), nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"code":    "unauthorized",
		"title":   "Unauthorized",
		"message": "a valid bearer token is required",
	})
}
