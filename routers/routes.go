package routers

import (
	"certhub/middleware"
	authRoutes "certhub/routers/authRoutes"
	certificateRoutes "certhub/routers/certificateRoutes"
	publicRoutes "certhub/routers/publicRoutes"
	syllabusRoutes "certhub/routers/syllabusRoutes"

	"github.com/gofiber/fiber/v2"
)

// Setup registers every API route on app.
func Setup(app *fiber.App) {
	authRoutes.SetupAuthRoutes(app)
	publicRoutes.SetupPublicRoutes(app)

	adminGroup := app.Group("/admin", middleware.JWTMiddleware, middleware.RequireAdmin())
	certificateRoutes.SetupCertificateRoutes(adminGroup)
	syllabusRoutes.SetupSyllabusRoutes(adminGroup)
}
