package authController

import (
	"certhub/config"
	"certhub/database"
	"certhub/middleware"
	"certhub/models"
	authValidator "certhub/validators/auth"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxFailedLogins = 3
	blockDuration   = time.Minute
	failureWindow   = 15 * time.Minute
)

func Login(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedLogin").(*authValidator.LoginRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	db := database.Database.Db

	var admin models.Admin
	if err := db.Where("username = ?", reqData.Username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
		}
		log.Printf("[AUTH] admin lookup failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	now := time.Now()

	// Check if the admin is blocked
	if admin.IsBlocked && admin.BlockedUntil != nil && admin.BlockedUntil.After(now) {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Your account is temporarily blocked. Try again later.", nil)
	}

	if admin.LastFailedLogin != nil && now.Sub(*admin.LastFailedLogin) > failureWindow {
		admin.FailedLoginAttempts = 0
		admin.LastFailedLogin = nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(reqData.Password)); err != nil {
		admin.FailedLoginAttempts++
		admin.LastFailedLogin = &now

		if admin.FailedLoginAttempts >= maxFailedLogins {
			unblockAt := now.Add(blockDuration)
			admin.IsBlocked = true
			admin.BlockedUntil = &unblockAt
			admin.FailedLoginAttempts = 0
			log.Printf("[AUTH] admin %s blocked until %s", admin.Username, unblockAt.Format(time.RFC3339))
		}

		if err := db.Save(&admin).Error; err != nil {
			log.Printf("[AUTH] saving failed login: %v", err)
		}
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	admin.LastLogin = &now
	admin.FailedLoginAttempts = 0
	admin.LastFailedLogin = nil
	admin.IsBlocked = false
	admin.BlockedUntil = nil
	if err := db.Save(&admin).Error; err != nil {
		log.Printf("[AUTH] saving last login: %v", err)
	}

	log.Printf("[AUTH] admin %d logged in from %s", admin.ID, c.IP())

	token, err := middleware.GenerateJWT(admin.ID, admin.Username)
	if err != nil {
		log.Printf("[AUTH] token generation failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate token", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"admin": admin,
		"token": token,
	})
}

func Me(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if !session.Authenticated() {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var admin models.Admin
	if err := database.Database.Db.Where("id = ?", session.AdminID).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Admin not found!", nil)
		}
		log.Printf("[AUTH] admin lookup failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Admin profile.", admin)
}

func ChangePassword(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if !session.Authenticated() {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData, ok := c.Locals("validatedChangePassword").(*authValidator.ChangePasswordRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	db := database.Database.Db

	var admin models.Admin
	if err := db.Where("id = ?", session.AdminID).First(&admin).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Admin not found!", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(reqData.CurrentPassword)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Current password is incorrect!", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reqData.NewPassword), config.AppConfig.SaltRound)
	if err != nil {
		log.Printf("[AUTH] hashing password failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	if err := db.Model(&admin).Update("password", string(hashed)).Error; err != nil {
		log.Printf("[AUTH] updating password failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to change password!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password changed successfully.", nil)
}
