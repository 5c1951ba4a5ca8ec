package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment records one user's paid access to one course. Rows are
// append-only; refunds and revocation are handled outside this system.
//
// The composite unique index on (user_id, course_id) is what makes the
// commit path race-safe: two concurrent inserts for the same pair cannot
// both land, so at most one enrollment per user per course ever exists.
type Enrollment struct {
	gorm.Model
	UserID           uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID         uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	EnrolledAt       time.Time `json:"enrolled_at"`
	PaymentReference string    `json:"payment_reference"` // tx_ref used to verify payment
}
