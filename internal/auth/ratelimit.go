package auth

import (
	"time"

	"rental-backend/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func ipLimiter(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperror.TooManyRequests(message)
		},
	})
}

// LoginRateLimiter caps password logins per client IP.
func LoginRateLimiter() fiber.Handler {
	return ipLimiter(10, time.Minute, "too many login attempts, try again shortly")
}

// OTPRateLimiter caps OTP requests and verifications per client IP. The
// per-phone quota is enforced separately by the OTP service.
func OTPRateLimiter() fiber.Handler {
	return ipLimiter(20, 10*time.Minute, "too many code requests, try again later")
}
