package main

import (
	"certhub/config"
	"certhub/database"
	"certhub/models"
	"log"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Creates the admin named by ADMIN_USERNAME, or resets its password and email
// when it already exists.
func main() {
	config.LoadConfig()
	database.ConnectDb()

	admin, created, err := upsertAdmin(
		database.Database.Db,
		config.AppConfig.DefaultAdminUsername,
		config.AppConfig.DefaultAdminPassword,
		config.AppConfig.DefaultAdminEmail,
		config.AppConfig.SaltRound,
	)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	if created {
		log.Printf("Admin %q created (id=%d)", admin.Username, admin.ID)
		return
	}
	log.Printf("Admin %q updated (id=%d)", admin.Username, admin.ID)
}

// upsertAdmin also clears any login block on an existing account.
func upsertAdmin(db *gorm.DB, username, password, email string, cost int) (*models.Admin, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, false, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set")
	}
	if len(password) < 8 {
		return nil, false, errors.New("ADMIN_PASSWORD must be at least 8 characters long")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, false, errors.Wrap(err, "hash password")
	}

	var admin models.Admin
	err = db.Where("username = ?", username).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		admin = models.Admin{Username: username, Password: string(hashed), Email: email}
		if err := db.Create(&admin).Error; err != nil {
			return nil, false, errors.Wrap(err, "create admin")
		}
		return &admin, true, nil
	case err != nil:
		return nil, false, errors.Wrap(err, "look up admin")
	}

	admin.Password = string(hashed)
	admin.IsBlocked = false
	admin.BlockedUntil = nil
	admin.FailedLoginAttempts = 0
	if email != "" {
		admin.Email = email
	}
	if err := db.Save(&admin).Error; err != nil {
		return nil, false, errors.Wrap(err, "update admin")
	}
	return &admin, false, nil
}
