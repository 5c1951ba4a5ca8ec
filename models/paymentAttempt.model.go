package models

import "gorm.io/gorm"

// Payment attempt states
const (
	AttemptInitiated     = "INITIATED"
	AttemptVerified      = "VERIFIED"
	AttemptFailed        = "FAILED"
	AttemptIndeterminate = "INDETERMINATE"
)

// PaymentAttempt is the audit record for one payment attempt, keyed by
// tx_ref. It binds the tx_ref to the (user, course) pair at initialization
// time, which is what lets the gateway callback (which carries no session)
// resolve who to enroll. The reconciler also sweeps non-terminal attempts.
type PaymentAttempt struct {
	gorm.Model
	TxRef      string  `json:"tx_ref" gorm:"uniqueIndex;not null"`
	UserID     uint    `json:"user_id" gorm:"index;not null"`
	CourseID   uint    `json:"course_id" gorm:"index;not null"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Status     string  `json:"status" gorm:"default:'INITIATED'"` // INITIATED, VERIFIED, FAILED, INDETERMINATE
	GatewayRef string  `json:"gateway_ref"`                       // reference id reported by the gateway callback
}
