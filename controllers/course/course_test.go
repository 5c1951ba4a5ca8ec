package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnhub/config"
	"learnhub/database"
	"learnhub/middleware"
	"learnhub/models"
	courseRoutes "learnhub/routers/courseRoutes"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	config.LoadConfig()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.PaymentAttempt{},
	))
	database.Database = database.DbInstance{Db: db}

	app := fiber.New()
	courseRoutes.SetupCourseRoutes(app)
	return app, db
}

func seedTeacher(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Name: "Dawit", Email: "dawit@example.com", Password: "x", Role: "TEACHER"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return resp, env
}

func TestCreateCourseAssignsOpaqueID(t *testing.T) {
	app, db := setupApp(t)
	teacher := seedTeacher(t, db)

	token, err := middleware.GenerateJWT(teacher.ID, teacher.Name, teacher.Role, teacher.Email)
	require.NoError(t, err)

	resp, env := doJSON(t, app, http.MethodPost, "/course/create", "Bearer "+token, fiber.Map{
		"title":        "Injera Baking",
		"description":  "From teff to table",
		"price":        75.0,
		"thumbnailKey": "thumb-abc.jpg",
		"videoKey":     "intro-abc.mp4",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Status)

	var created models.Course
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Contains(t, created.CourseID, "COURSE_")
	assert.Equal(t, teacher.ID, created.TeacherID)
	assert.Equal(t, "Dawit", created.TeacherName)
	assert.Equal(t, 75.0, created.Price)
	assert.Equal(t, "thumb-abc.jpg", created.Image)
}

func TestCreateCourseRejectsNegativePrice(t *testing.T) {
	app, db := setupApp(t)
	teacher := seedTeacher(t, db)

	token, err := middleware.GenerateJWT(teacher.ID, teacher.Name, teacher.Role, teacher.Email)
	require.NoError(t, err)

	resp, _ := doJSON(t, app, http.MethodPost, "/course/create", "Bearer "+token, fiber.Map{
		"title":       "Bad Price",
		"description": "Should not pass",
		"price":       -5.0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCourseListReturnsPublishedOnly(t *testing.T) {
	app, db := setupApp(t)

	require.NoError(t, db.Create(&models.Course{CourseID: "COURSE_a", Title: "A", Price: 10, IsPublished: true}).Error)
	require.NoError(t, db.Create(&models.Course{CourseID: "COURSE_b", Title: "B", Price: 10, IsPublished: false}).Error)

	resp, env := doJSON(t, app, http.MethodGet, "/course/list", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Courses []models.Course `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Courses, 1)
	assert.Equal(t, "COURSE_a", data.Courses[0].CourseID)
}

func TestCourseDetailIncludesEnrollments(t *testing.T) {
	app, db := setupApp(t)

	course := models.Course{CourseID: "COURSE_d", Title: "D", Price: 20, IsPublished: true}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&models.Enrollment{
		UserID:           4,
		CourseID:         course.ID,
		EnrolledAt:       time.Now().UTC(),
		PaymentReference: "T-d",
	}).Error)

	resp, env := doJSON(t, app, http.MethodGet, "/course/COURSE_d", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail models.Course
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Len(t, detail.Enrollments, 1)
	assert.Equal(t, uint(4), detail.Enrollments[0].UserID)
	assert.Equal(t, "T-d", detail.Enrollments[0].PaymentReference)
}

func TestCourseDetailNotFound(t *testing.T) {
	app, _ := setupApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/course/COURSE_none", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetUserEnrollments(t *testing.T) {
	app, db := setupApp(t)
	user := models.User{Name: "Sara", Email: "sara@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	course := models.Course{CourseID: "COURSE_e", Title: "E", Price: 5, IsPublished: true}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&models.Enrollment{
		UserID:           user.ID,
		CourseID:         course.ID,
		EnrolledAt:       time.Now().UTC(),
		PaymentReference: "T-e",
	}).Error)

	token, err := middleware.GenerateJWT(user.ID, user.Name, user.Role, user.Email)
	require.NoError(t, err)

	resp, env := doJSON(t, app, http.MethodGet, "/user/enrollments", "Bearer "+token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Enrollments []models.Enrollment `json:"enrollments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Enrollments, 1)
	assert.Equal(t, course.ID, data.Enrollments[0].CourseID)
}
