package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"learnhub/database"
	"learnhub/models"
	"learnhub/services/enrollment"

	"github.com/robfig/cron/v3"
)

// logReconciler logs reconciler events with timestamp
func logReconciler(message string) {
	log.Printf("[PAYMENT-RECONCILER %s] %s", time.Now().Format(time.RFC3339), message)
}

// reconcilePendingAttempts re-runs the commit flow for payment attempts
// that never reached a terminal state: the payer may have completed
// checkout while our verify call timed out, or the enrollment write may
// have failed after a verified payment. Commit is idempotent, so
// re-driving an attempt can only complete it, never duplicate it.
func reconcilePendingAttempts(svc *enrollment.Service) {
	db := database.Database.Db
	now := time.Now()

	var attempts []models.PaymentAttempt
	if err := db.Where("status IN ?", []string{models.AttemptInitiated, models.AttemptIndeterminate}).
		Where("updated_at < ?", now.Add(-10*time.Minute)).
		Where("created_at > ?", now.Add(-48*time.Hour)).
		Order("created_at asc").
		Limit(100).
		Find(&attempts).Error; err != nil {
		logReconciler("Error fetching pending attempts: " + err.Error())
		return
	}

	if len(attempts) == 0 {
		return
	}
	logReconciler(fmt.Sprintf("Reconciling %d pending payment attempts", len(attempts)))

	for _, attempt := range attempts {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		outcome, err := svc.CommitCallback(ctx, attempt.TxRef, "")
		cancel()

		if err != nil {
			logReconciler("Attempt " + attempt.TxRef + " outcome " + string(outcome) + ": " + err.Error())
			continue
		}
		logReconciler("Attempt " + attempt.TxRef + " outcome " + string(outcome))
	}
}

// StartPaymentReconciler schedules the pending-attempt sweep. The caller
// owns the returned cron and should Stop it on shutdown.
func StartPaymentReconciler(svc *enrollment.Service) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("@every 5m", func() {
		reconcilePendingAttempts(svc)
	})
	if err != nil {
		log.Fatalf("Failed to schedule payment reconciler: %v", err)
	}

	c.Start()
	logReconciler("Payment reconciler started (every 5m)")
	return c
}
