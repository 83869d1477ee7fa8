package publicRoutes

import (
	certificateControllers "certhub/controllers/certificate"
	"certhub/middleware"
	certificateValidators "certhub/validators/certificate"

	"github.com/gofiber/fiber/v2"
)

func SetupPublicRoutes(app *fiber.App) {
	verifyGroup := app.Group("/verify")

	verifyGroup.Get("/", middleware.VerifyRateLimiter(), certificateValidators.Verify(), certificateControllers.Verify)
	verifyGroup.Get("/stats", certificateControllers.PublicStats)
}
