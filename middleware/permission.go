package middleware

import (
	"certhub/database"
	"certhub/models"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// RequireAdmin confirms the session's admin still exists and is not blocked.
// It must run after JWTMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := SessionFrom(c)
		if !session.Authenticated() {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}

		var admin models.Admin
		err := database.Database.Db.Where("id = ?", session.AdminID).First(&admin).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
			}
			log.Printf("[AUTH] admin lookup failed: %v", err)
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking permissions!", nil)
		}

		if admin.IsBlocked && admin.BlockedUntil != nil && admin.BlockedUntil.After(time.Now()) {
			return JsonResponse(c, fiber.StatusForbidden, false, "Your account is temporarily blocked. Try again later.", nil)
		}

		return c.Next()
	}
}
