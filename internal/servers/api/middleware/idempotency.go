package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderIdempotentHit  = "Idempotent-Replayed"
)

type IdempotencyRepository interface {
	Find(ctx context.Context, key string) (*models.IdempotentResponse, error)
	Save(ctx context.Context, in *models.IdempotentResponse) error
}

// Idempotency replays the first non-5xx response recorded for a key. Keys are
// scoped to the method, path and authenticated subject; reusing a key with a
// different body is rejected. Requests without the header pass through.
func Idempotency(repo IdempotencyRepository, lg *logging.ZapLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if key == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		scoped := scopeKey(c, key)
		hash := requestHash(c.Body())

		saved, err := repo.Find(ctx, scoped)
		if err != nil {
			lg.ErrorCtx(ctx, "idempotency lookup failed", zap.Error(err))

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"code":    "internal_error",
				"title":   "Internal Server Error",
				"message": "the request could not be completed",
			})
		}

		if saved != nil {
			if saved.RequestHash != hash {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"code":    "idempotency_key_reused",
					"title":   "Unprocessable Entity",
					"message": "Idempotency-Key was already used with a different request body",
				})
			}

			c.Set(HeaderIdempotentHit, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			if saved.Location != "" {
				c.Location(saved.Location)
			}

			return c.Status(saved.Status).Send(saved.Body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			return nil
		}

		body := c.Response().Body()
		if err := repo.Save(ctx, &models.IdempotentResponse{
			Key:         scoped,
			RequestHash: hash,
			Status:      status,
			Location:    string(c.Response().Header.Peek(fiber.HeaderLocation)),
			Body:        append([]byte(nil), body...),
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			lg.ErrorCtx(ctx, "idempotency save failed", zap.Error(err))
		}

		return nil
	}
}

// scopeKey length-prefixes the subject so no subject and key pair can collide
// with another.
func scopeKey(c *fiber.Ctx, key string) string {
	subject, _ := c.Locals(SubjectLocalsKey).(string)

	return fmt.Sprintf("%s %s %d:%s %s", c.Method(), c.Path(), len(subject), subject, key)
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)

	return hex.EncodeToString(sum[:])
}
