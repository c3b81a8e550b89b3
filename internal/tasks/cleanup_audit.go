package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// QueueCleanupAuditEvents holds the audit trail pruning jobs.
const QueueCleanupAuditEvents = "cleanup_audit_events"

// DefaultAuditRetentionDays applies when a task names no retention.
const DefaultAuditRetentionDays = 90

var errNoCleaner = errors.New("audit trail cleaner not configured")

// AuditEventCleaner prunes the audit trail of loans, reviews and logins.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask prunes audit history: loan transitions, overdue
// notices, reviews and logins older than RetentionDays.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Retention is the age past which events are pruned.
func (t CleanupAuditEventsTask) Retention() time.Duration {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Config keeps a day of finished pruning jobs and the payload of failed ones.
func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueCleanupAuditEvents,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupAuditEventsProcessor prunes the trail through cleaner.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errNoCleaner
		}

		retention := task.Retention()
		pruned, err := cleaner.DeleteOldEvents(ctx, retention)
		if err != nil {
			return fmt.Errorf("prune audit trail older than %s: %w", retention, err)
		}

		if pruned > 0 {
			log.Printf("[TASK] Pruned %d audit events recorded before %s",
				pruned, time.Now().Add(-retention).Format("2006-01-02"))
		}
		return nil
	}
}

// NewCleanupAuditEventsQueue registers the pruning processor with backlite.
func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner))
}
