package authRoutes

import (
	authControllers "certhub/controllers/auth"
	"certhub/middleware"
	authValidators "certhub/validators/auth"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/auth")

	authGroup.Post("/login", middleware.LoginRateLimiter(), authValidators.Login(), authControllers.Login)
	authGroup.Get("/me", middleware.JWTMiddleware, middleware.RequireAdmin(), authControllers.Me)
	authGroup.Put("/password", middleware.JWTMiddleware, middleware.RequireAdmin(), authValidators.ChangePassword(), authControllers.ChangePassword)
}
