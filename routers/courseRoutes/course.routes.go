package courseRoutes

import (
	controllers "learnhub/controllers/course"
	"learnhub/middleware"
	validators "learnhub/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all course routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Course listing and details (public published courses)
	courseGroup.Get("/list", validators.CourseList(), controllers.GetAllCourses)

	// Course creation (authenticated teachers)
	courseGroup.Post("/create", middleware.JWTMiddleware, validators.CreateCourse(), controllers.CreateCourse)

	courseGroup.Get("/:id", validators.GetCourseDetail(), controllers.GetCourseDetails)

	// Media upload for course thumbnails and videos
	app.Post("/upload", middleware.JWTMiddleware, controllers.UploadMedia)

	// User enrollments
	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", middleware.JWTMiddleware, controllers.GetUserEnrollments)
}
