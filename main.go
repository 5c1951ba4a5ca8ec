package main

import (
	"log"
	"time"

	"learnhub/config"
	paymentController "learnhub/controllers/payment"
	"learnhub/database"
	"learnhub/gateway"
	"learnhub/models"
	authRoutes "learnhub/routers/authRoutes"
	courseRoutes "learnhub/routers/courseRoutes"
	paymentRoutes "learnhub/routers/paymentRoutes"
	"learnhub/services/enrollment"
	"learnhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	// Outbound gateway client with a bounded per-call timeout
	chapa := gateway.NewChapaClient(
		config.AppConfig.ChapaApiURL,
		config.AppConfig.ChapaSecretKey,
		time.Duration(config.AppConfig.ChapaTimeoutSec)*time.Second,
	)

	svc := enrollment.NewService(database.Database.Db, chapa)
	svc.Notify = func(userID uint, course models.Course, txRef string) {
		go func() {
			var user models.User
			if err := database.Database.Db.Where("id = ?", userID).First(&user).Error; err != nil {
				log.Printf("Receipt email skipped, user %d not found: %v", userID, err)
				return
			}
			if err := utils.SendEnrollmentReceipt(user, course, txRef); err != nil {
				log.Printf("Error sending enrollment receipt to %s: %v", user.Email, err)
			}
		}()
	}

	paymentController.Init(svc, chapa)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve uploaded media
	app.Static("/uploads", config.AppConfig.UploadDir)

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app)
	paymentRoutes.SetupPaymentRoutes(app)

	// Background sweep for payment attempts stuck without a terminal state
	reconciler := utils.StartPaymentReconciler(svc)
	defer reconciler.Stop()

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
