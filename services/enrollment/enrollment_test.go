package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"learnhub/gateway"
	"learnhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeGateway scripts verify answers per call. Once the script runs out,
// the last answer repeats.
type fakeGateway struct {
	mu      sync.Mutex
	results []verifyAnswer
	calls   int
}

type verifyAnswer struct {
	result gateway.VerifyResult
	err    error
}

func (f *fakeGateway) Initialize(ctx context.Context, req gateway.InitRequest) (string, error) {
	return "https://checkout.example/pay", nil
}

func (f *fakeGateway) Verify(ctx context.Context, txRef string) (gateway.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	answer := f.results[idx]
	answer.result.TxRef = txRef
	return answer.result, answer.err
}

func paidGateway() *fakeGateway {
	return &fakeGateway{results: []verifyAnswer{
		{result: gateway.VerifyResult{Paid: true, Amount: 50, Currency: "ETB", Reference: "APcYhW3Z"}},
	}}
}

func unpaidGateway() *fakeGateway {
	return &fakeGateway{results: []verifyAnswer{
		{result: gateway.VerifyResult{Paid: false}},
	}}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive and serializes access
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.PaymentAttempt{},
	))
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, ref string, price float64) models.Course {
	t.Helper()
	course := models.Course{
		CourseID:    ref,
		Title:       "Intro to Gardening",
		Description: "Soil, seeds and patience",
		Price:       price,
		TeacherID:   7,
		TeacherName: "Abeba",
		IsPublished: true,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func enrollmentCount(t *testing.T, db *gorm.DB, courseID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Enrollment{}).Where("course_id = ?", courseID).Count(&n).Error)
	return n
}

func TestCommitEnrollsExactlyOnce(t *testing.T) {
	db := testDB(t)
	course := seedCourse(t, db, "COURSE_c1", 50)
	svc := NewService(db, paidGateway())

	outcome, err := svc.Commit(context.Background(), 1, "COURSE_c1", "T1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEnrolled, outcome)

	var stored []models.Enrollment
	require.NoError(t, db.Where("course_id = ?", course.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, uint(1), stored[0].UserID)
	assert.Equal(t, "T1", stored[0].PaymentReference)

	// Re-running the same verification is a no-op success
	outcome, err = svc.Commit(context.Background(), 1, "COURSE_c1", "T1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyEnrolled, outcome)
	assert.EqualValues(t, 1, enrollmentCount(t, db, course.ID))
}

func TestCommitRepeatedCallsStayIdempotent(t *testing.T) {
	db := testDB(t)
	course := seedCourse(t, db, "COURSE_rep", 120)
	svc := NewService(db, paidGateway())

	for i := 0; i < 10; i++ {
		outcome, err := svc.Commit(context.Background(), 42, "COURSE_rep", "T-rep")
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, OutcomeEnrolled, outcome)
		} else {
			assert.Equal(t, OutcomeAlreadyEnrolled, outcome)
		}
	}
	assert.EqualValues(t, 1, enrollmentCount(t, db, course.ID))
}

func TestCommitConcurrentSingleEnrollment(t *testing.T) {
	db := testDB(t)
	course := seedCourse(t, db, "COURSE_race", 75)
	svc := NewService(db, paidGateway())

	const workers = 8
	outcomes := make([]Outcome, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.Commit(context.Background(), 9, "COURSE_race", "T-race")
		}(i)
	}
	wg.Wait()

	enrolled := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if outcomes[i] == OutcomeEnrolled {
			enrolled++
		} else {
			assert.Equal(t, OutcomeAlreadyEnrolled, outcomes[i])
		}
	}
	assert.Equal(t, 1, enrolled, "exactly one winner expected")
	assert.EqualValues(t, 1, enrollmentCount(t, db, course.ID))
}

func TestCommitNoEnrollmentWhenNotPaid(t *testing.T) {
	db := testDB(t)
	course := seedCourse(t, db, "COURSE_np", 30)
	svc := NewService(db, unpaidGateway())

	outcome, err := svc.Commit(context.Background(), 5, "COURSE_np", "T-np")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.EqualValues(t, 0, enrollmentCount(t, db, course.ID))
}

func TestCommitIndeterminateIsNotFailed(t *testing.T) {
	db := testDB(t)
	course := seedCourse(t, db, "COURSE_ind", 60)

	gw := &fakeGateway{results: []verifyAnswer{
		{err: fmt.Errorf("%w: connection timed out", gateway.ErrVerificationIndeterminate)},
		{result: gateway.VerifyResult{Paid: true}},
	}}
	svc := NewService(db, gw)

	// First attempt: no definitive answer, nothing written
	outcome, err := svc.Commit(context.Background(), 3, "COURSE_ind", "T-ind")
	assert.Equal(t, OutcomeIndeterminate, outcome)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrVerificationIndeterminate))
	assert.EqualValues(t, 0, enrollmentCount(t, db, course.ID))

	// Retry with a responsive gateway still reaches enrollment
	outcome, err = svc.Commit(context.Background(), 3, "COURSE_ind", "T-ind")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEnrolled, outcome)
	assert.EqualValues(t, 1, enrollmentCount(t, db, course.ID))
}

func TestCommitCourseNotFound(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, paidGateway())

	outcome, err := svc.Commit(context.Background(), 1, "COURSE_missing", "T-x")
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, errors.Is(err, ErrCourseNotFound))
}

func TestCommitRequiresIdentity(t *testing.T) {
	db := testDB(t)
	seedCourse(t, db, "COURSE_anon", 10)
	svc := NewService(db, paidGateway())

	_, err := svc.Commit(context.Background(), 0, "COURSE_anon", "T-anon")
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}

func TestCommitNotifiesOnlyOnFirstEnrollment(t *testing.T) {
	db := testDB(t)
	seedCourse(t, db, "COURSE_mail", 25)
	svc := NewService(db, paidGateway())

	notified := 0
	svc.Notify = func(userID uint, course models.Course, txRef string) {
		notified++
	}

	for i := 0; i < 3; i++ {
		_, err := svc.Commit(context.Background(), 11, "COURSE_mail", "T-mail")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, notified)
}

func TestStartAttemptIsIdempotent(t *testing.T) {
	db := testDB(t)
	course := seedCourse(t, db, "COURSE_att", 90)
	svc := NewService(db, paidGateway())

	require.NoError(t, svc.StartAttempt(context.Background(), 4, course, "T-att", "ETB"))
	require.NoError(t, svc.StartAttempt(context.Background(), 4, course, "T-att", "ETB"))

	var n int64
	require.NoError(t, db.Model(&models.PaymentAttempt{}).Where("tx_ref = ?", "T-att").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestCommitCallbackResolvesPayerFromAttempt(t *testing.T) {
	db := testDB(t)
	course := seedCourse(t, db, "COURSE_cb", 40)
	svc := NewService(db, paidGateway())

	require.NoError(t, svc.StartAttempt(context.Background(), 21, course, "T-cb", "ETB"))

	outcome, err := svc.CommitCallback(context.Background(), "T-cb", "REF-123")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEnrolled, outcome)

	var stored models.Enrollment
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&stored).Error)
	assert.Equal(t, uint(21), stored.UserID)

	var attempt models.PaymentAttempt
	require.NoError(t, db.Where("tx_ref = ?", "T-cb").First(&attempt).Error)
	assert.Equal(t, models.AttemptVerified, attempt.Status)
	// the verify response's own reference wins over the callback query param
	assert.Equal(t, "APcYhW3Z", attempt.GatewayRef)
}

func TestCommitCallbackUnknownAttempt(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, paidGateway())

	outcome, err := svc.CommitCallback(context.Background(), "T-nobody", "")
	assert.Equal(t, OutcomeFailed, outcome)
	assert.True(t, errors.Is(err, ErrUnknownAttempt))
}

func TestCommitMarksAttemptTerminalStates(t *testing.T) {
	db := testDB(t)
	course := seedCourse(t, db, "COURSE_audit", 15)
	svc := NewService(db, unpaidGateway())

	require.NoError(t, svc.StartAttempt(context.Background(), 2, course, "T-audit", "ETB"))

	outcome, err := svc.Commit(context.Background(), 2, "COURSE_audit", "T-audit")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	var attempt models.PaymentAttempt
	require.NoError(t, db.Where("tx_ref = ?", "T-audit").First(&attempt).Error)
	assert.Equal(t, models.AttemptFailed, attempt.Status)
}
