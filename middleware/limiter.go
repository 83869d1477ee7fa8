package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Recovery turns panics into 500 responses.
func Recovery() fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
	})
}

func rateLimiter(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return JsonResponse(c, fiber.StatusTooManyRequests, false, message, nil)
		},
	})
}

func LoginRateLimiter() fiber.Handler {
	return rateLimiter(5, time.Minute, "Too many login attempts. Try again in a minute.")
}

// VerifyRateLimiter throttles the public certificate search.
func VerifyRateLimiter() fiber.Handler {
	return rateLimiter(30, time.Minute, "Too many searches. Please try again later.")
}
