package paymentRoutes

import (
	controllers "learnhub/controllers/payment"
	"learnhub/middleware"
	validators "learnhub/validators/payment"

	"github.com/gofiber/fiber/v2"
)

// SetupPaymentRoutes sets up payment initialization, verification and the
// gateway callback route
func SetupPaymentRoutes(app *fiber.App) {
	paymentGroup := app.Group("/payment")

	paymentGroup.Post("/", middleware.JWTMiddleware, validators.InitializePayment(), controllers.InitializePayment)
	paymentGroup.Post("/verify", middleware.JWTMiddleware, validators.VerifyPayment(), controllers.VerifyPayment)

	// Server-to-server push from the gateway; no session on this path
	paymentGroup.Get("/callback", controllers.PaymentCallback)
}
