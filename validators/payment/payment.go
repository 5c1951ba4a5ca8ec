package paymentValidator

import (
	"learnhub/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// fieldErrors flattens validator.ValidationErrors into the field->message
// map used by the shared validation response.
func fieldErrors(err error) map[string]string {
	errors := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				errors[fe.Field()] = fe.Field() + " is required!"
			case "email":
				errors[fe.Field()] = fe.Field() + " must be a valid email!"
			default:
				errors[fe.Field()] = fe.Field() + " is invalid!"
			}
		}
		return errors
	}
	errors["request"] = "Invalid request data!"
	return errors
}

func InitializePayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			CourseID  string  `json:"courseId" validate:"required"`
			Amount    float64 `json:"amount"` // ignored, price is server-derived
			TxRef     string  `json:"tx_ref"`
			Email     string  `json:"email" validate:"required,email"`
			FirstName string  `json:"first_name" validate:"required"`
			LastName  string  `json:"last_name"`
			Mobile    string  `json:"mobile"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		c.Locals("validatedPayment", reqData)
		return c.Next()
	}
}

func VerifyPayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			TxRef    string `json:"tx_ref" validate:"required"`
			CourseID string `json:"courseId" validate:"required"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		c.Locals("validatedVerify", reqData)
		return c.Next()
	}
}
