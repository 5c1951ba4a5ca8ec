package paymentController

import (
	"errors"
	"fmt"
	"log"
	"net/url"

	"learnhub/config"
	"learnhub/database"
	"learnhub/gateway"
	"learnhub/middleware"
	"learnhub/models"
	"learnhub/services/enrollment"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Package-level collaborators, wired once at startup by Init.
var (
	Svc     *enrollment.Service
	Gateway gateway.Client
)

// Init wires the enrollment service and gateway client used by the handlers.
func Init(svc *enrollment.Service, gw gateway.Client) {
	Svc = svc
	Gateway = gw
}

// InitializePayment requests a checkout session from the gateway and
// returns the redirect URL. The charge amount is always re-derived from
// the course record; any client-supplied amount is ignored.
func InitializePayment(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedPayment").(*struct {
		CourseID  string  `json:"courseId" validate:"required"`
		Amount    float64 `json:"amount"` // ignored, price is server-derived
		TxRef     string  `json:"tx_ref"`
		Email     string  `json:"email" validate:"required,email"`
		FirstName string  `json:"first_name" validate:"required"`
		LastName  string  `json:"last_name"`
		Mobile    string  `json:"mobile"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var course models.Course
	if err := database.Database.Db.
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", reqData.CourseID, false, true).
		First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	txRef := reqData.TxRef
	if txRef == "" {
		txRef = uuid.NewString()
	}

	if err := Svc.StartAttempt(c.Context(), userID, course, txRef, config.AppConfig.ChapaCurrency); err != nil {
		log.Printf("Failed to record payment attempt %s: %v", txRef, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to start payment!", nil)
	}

	callbackURL := fmt.Sprintf("%s?trx_ref=%s", config.AppConfig.PaymentCallbackURL, url.QueryEscape(txRef))

	checkoutURL, err := Gateway.Initialize(c.Context(), gateway.InitRequest{
		Amount:      course.Price, // never the client-echoed amount
		Currency:    config.AppConfig.ChapaCurrency,
		Email:       reqData.Email,
		FirstName:   reqData.FirstName,
		LastName:    reqData.LastName,
		Mobile:      reqData.Mobile,
		TxRef:       txRef,
		CallbackURL: callbackURL,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrPaymentRejected) {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Payment was rejected by the gateway!", nil)
		}
		log.Printf("Gateway initialize failed for %s: %v", txRef, err)
		return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Payment gateway is unavailable. Please try again.", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment initialized!", fiber.Map{
		"checkout_url": checkoutURL,
		"tx_ref":       txRef,
	})
}

// VerifyPayment confirms a transaction with the gateway and commits the
// enrollment. Safe to call any number of times for the same tx_ref.
func VerifyPayment(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedVerify").(*struct {
		TxRef    string `json:"tx_ref" validate:"required"`
		CourseID string `json:"courseId" validate:"required"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	outcome, err := Svc.Commit(c.Context(), userID, reqData.CourseID, reqData.TxRef)
	return respondOutcome(c, outcome, err)
}

// PaymentCallback is the gateway's server-to-server push. It funnels into
// the same commit path as VerifyPayment; the payer identity comes from
// the attempt recorded at initialization. Definitive outcomes (including
// the already-enrolled no-op and a failed payment) answer 200 so the
// gateway stops retrying; only indeterminate outcomes answer 5xx.
func PaymentCallback(c *fiber.Ctx) error {
	txRef := c.Query("trx_ref")
	if txRef == "" {
		txRef = c.Query("tx_ref")
	}
	refID := c.Query("ref_id")

	if txRef == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Missing transaction reference!", nil)
	}

	outcome, err := Svc.CommitCallback(c.Context(), txRef, refID)
	if err != nil && errors.Is(err, enrollment.ErrUnknownAttempt) {
		log.Printf("Callback for unknown payment attempt %s", txRef)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Callback received.", nil)
	}

	switch outcome {
	case enrollment.OutcomeEnrolled, enrollment.OutcomeAlreadyEnrolled, enrollment.OutcomeFailed:
		if err != nil {
			log.Printf("Callback for %s finished with outcome %s: %v", txRef, outcome, err)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Callback received and processed.", fiber.Map{
			"status": string(outcome),
		})
	default:
		log.Printf("Callback for %s indeterminate: %v", txRef, err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Could not confirm payment yet.", nil)
	}
}

// respondOutcome maps a commit outcome onto the HTTP surface.
func respondOutcome(c *fiber.Ctx, outcome enrollment.Outcome, err error) error {
	data := fiber.Map{"status": string(outcome)}

	switch outcome {
	case enrollment.OutcomeEnrolled:
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment successful!", data)
	case enrollment.OutcomeAlreadyEnrolled:
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Already enrolled in this course.", data)
	case enrollment.OutcomeFailed:
		if errors.Is(err, enrollment.ErrCourseNotFound) {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", data)
		}
		if errors.Is(err, enrollment.ErrUnauthenticated) {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", data)
		}
		return middleware.JsonResponse(c, fiber.StatusPaymentRequired, false, "Payment not confirmed.", data)
	default:
		// Indeterminate or the write failed after a verified payment.
		// Never present this as a failed payment.
		if err != nil {
			log.Printf("Verification indeterminate: %v", err)
		}
		return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Could not confirm payment yet. Please retry verification.", data)
	}
}
