// Package enrollment converts a verified payment into a durable,
// exactly-once enrollment. Every path that can grant access to a course
// (client-initiated verification, gateway push callback, reconciler
// sweep) funnels through Service.Commit so there is a single authority
// over the enrollment write.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"learnhub/gateway"
	"learnhub/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUnauthenticated means no caller identity could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrCourseNotFound means the referenced course does not exist.
	ErrCourseNotFound = errors.New("course not found")

	// ErrPersistenceFailure means the payment was verified but the local
	// enrollment write failed. The payer was charged; Commit is safe to
	// re-invoke because the gateway verify step is read-only.
	ErrPersistenceFailure = errors.New("enrollment persistence failure")

	// ErrUnknownAttempt means a callback arrived with a tx_ref that was
	// never initialized here, so there is no (user, course) to enroll.
	ErrUnknownAttempt = errors.New("unknown payment attempt")
)

// Outcome is the terminal state of one commit attempt. The values double
// as the wire-level status strings.
type Outcome string

const (
	OutcomeEnrolled        Outcome = "verified"
	OutcomeAlreadyEnrolled Outcome = "already-enrolled"
	OutcomeFailed          Outcome = "failed"
	OutcomeIndeterminate   Outcome = "indeterminate"
)

// Service orchestrates verification and the idempotent enrollment write.
type Service struct {
	db *gorm.DB
	gw gateway.Client

	// Notify, when set, is invoked once per newly created enrollment
	// (never for the already-enrolled no-op). Called on the request
	// goroutine; implementations should hand off heavy work themselves.
	Notify func(userID uint, course models.Course, txRef string)
}

// NewService builds a Service on the shared database handle and gateway client.
func NewService(db *gorm.DB, gw gateway.Client) *Service {
	return &Service{db: db, gw: gw}
}

// StartAttempt records the audit row binding a tx_ref to the payer and
// course at initialization time. Re-initializing with the same tx_ref is
// a no-op. No enrollment state changes here.
func (s *Service) StartAttempt(ctx context.Context, userID uint, course models.Course, txRef, currency string) error {
	attempt := models.PaymentAttempt{
		TxRef:    txRef,
		UserID:   userID,
		CourseID: course.ID,
		Amount:   course.Price,
		Currency: currency,
		Status:   models.AttemptInitiated,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_ref"}},
			DoNothing: true,
		}).
		Create(&attempt).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return nil
}

// Commit runs one verification attempt for (userID, courseRef, txRef) and
// returns its terminal outcome:
//
//	verify ok, first write      -> OutcomeEnrolled
//	verify ok, already enrolled -> OutcomeAlreadyEnrolled (no-op)
//	gateway says not paid       -> OutcomeFailed (no mutation)
//	gateway unreachable/garbled -> OutcomeIndeterminate (retriable)
//
// Indeterminate is never collapsed into failed: the error carries
// gateway.ErrVerificationIndeterminate so callers can tell the payer to
// retry rather than telling them the payment failed.
func (s *Service) Commit(ctx context.Context, userID uint, courseRef, txRef string) (Outcome, error) {
	if userID == 0 {
		return OutcomeFailed, ErrUnauthenticated
	}
	if txRef == "" {
		return OutcomeFailed, fmt.Errorf("tx_ref is required")
	}

	result, err := s.gw.Verify(ctx, txRef)
	if err != nil {
		// Could not get a definitive answer. Leave everything untouched
		// except the attempt audit state so the reconciler picks it up.
		s.markAttempt(txRef, models.AttemptIndeterminate, "")
		return OutcomeIndeterminate, err
	}

	if !result.Paid {
		s.markAttempt(txRef, models.AttemptFailed, result.Reference)
		return OutcomeFailed, nil
	}

	var course models.Course
	err = s.db.WithContext(ctx).
		Where("course_id = ? AND is_deleted = ?", courseRef, false).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeFailed, ErrCourseNotFound
		}
		return OutcomeIndeterminate, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	outcome, err := s.writeEnrollment(ctx, userID, course, txRef)
	if err != nil {
		return outcome, err
	}

	s.markAttempt(txRef, models.AttemptVerified, result.Reference)

	if outcome == OutcomeEnrolled && s.Notify != nil {
		s.Notify(userID, course, txRef)
	}
	return outcome, nil
}

// CommitCallback is the gateway-push entry point. The callback carries no
// session, so the payer and course are resolved from the attempt recorded
// at initialization, then the flow joins Commit.
func (s *Service) CommitCallback(ctx context.Context, txRef, gatewayRef string) (Outcome, error) {
	var attempt models.PaymentAttempt
	err := s.db.WithContext(ctx).Where("tx_ref = ?", txRef).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeFailed, ErrUnknownAttempt
		}
		return OutcomeIndeterminate, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	var course models.Course
	if err := s.db.WithContext(ctx).Where("id = ?", attempt.CourseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeFailed, ErrCourseNotFound
		}
		return OutcomeIndeterminate, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	if gatewayRef != "" {
		s.markAttempt(txRef, "", gatewayRef)
	}

	return s.Commit(ctx, attempt.UserID, course.CourseID, txRef)
}

// writeEnrollment appends the enrollment row with a single atomic
// conditional insert. The ON CONFLICT DO NOTHING against the
// (user_id, course_id) unique index is the whole race story: two
// concurrent commits both reach this line, the database admits one, and
// the loser observes RowsAffected == 0.
func (s *Service) writeEnrollment(ctx context.Context, userID uint, course models.Course, txRef string) (Outcome, error) {
	record := models.Enrollment{
		UserID:           userID,
		CourseID:         course.ID,
		EnrolledAt:       time.Now().UTC(),
		PaymentReference: txRef,
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(&record)
	if res.Error != nil {
		return OutcomeIndeterminate, fmt.Errorf("%w: %v", ErrPersistenceFailure, res.Error)
	}

	if res.RowsAffected == 0 {
		return OutcomeAlreadyEnrolled, nil
	}
	return OutcomeEnrolled, nil
}

// markAttempt is a best-effort audit update; a missing attempt row (e.g.
// a verify test-driven without prior initialization) is not an error.
func (s *Service) markAttempt(txRef, status, gatewayRef string) {
	updates := map[string]interface{}{}
	if status != "" {
		updates["status"] = status
	}
	if gatewayRef != "" {
		updates["gateway_ref"] = gatewayRef
	}
	if len(updates) == 0 {
		return
	}
	if err := s.db.Model(&models.PaymentAttempt{}).Where("tx_ref = ?", txRef).Updates(updates).Error; err != nil {
		log.Printf("Failed to update payment attempt %s: %v", txRef, err)
	}
}
