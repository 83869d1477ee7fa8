package main

import (
	"certhub/config"
	"certhub/database"
	"certhub/middleware"
	"certhub/routers"
	"certhub/utils"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	// room for the largest upload plus form fields
	bodyLimit := (config.AppConfig.MaxSyllabusSizeMB + 1) * 1024 * 1024
	if n := (config.AppConfig.MaxCertificateSizeMB + 1) * 1024 * 1024; n > bodyLimit {
		bodyLimit = n
	}

	app := fiber.New(fiber.Config{BodyLimit: bodyLimit})

	app.Use(middleware.Recovery())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve uploaded certificates and syllabi
	app.Static("/uploads", config.AppConfig.UploadDir)

	routers.Setup(app)

	store := utils.NewLocalFileStore(config.AppConfig.UploadDir)
	if _, err := utils.InitializeUploadSweeper(store); err != nil {
		log.Printf("[SWEEPER] not started: %v", err)
	}

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
