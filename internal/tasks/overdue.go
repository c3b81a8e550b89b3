package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/entities"
)

// QueueSweepOverdueLoans is the queue name of SweepOverdueLoansTask.
const QueueSweepOverdueLoans = "sweep_overdue_loans"

// OverdueLister finds copies whose due date has passed.
type OverdueLister interface {
	ListOverdue(ctx context.Context) ([]entities.BookInstance, error)
}

// OverdueRecorder records one overdue copy.
type OverdueRecorder interface {
	LogOverdue(ctx context.Context, instance entities.BookInstance) error
}

// SweepOverdueLoansTask records an audit event for every overdue loan.
// Loan state is left untouched.
type SweepOverdueLoansTask struct {
	TriggeredBy uint `json:"triggered_by,omitempty"` // 0 when scheduled
}

// Config returns the queue configuration for overdue sweeps.
func (t SweepOverdueLoansTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueSweepOverdueLoans,
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SweepOverdueLoansProcessor creates a processor function for SweepOverdueLoansTask.
func SweepOverdueLoansProcessor(lister OverdueLister, recorder OverdueRecorder) backlite.QueueProcessor[SweepOverdueLoansTask] {
	return func(ctx context.Context, task SweepOverdueLoansTask) error {
		if lister == nil || recorder == nil {
			return fmt.Errorf("overdue sweep not configured")
		}

		overdue, err := lister.ListOverdue(ctx)
		if err != nil {
			return fmt.Errorf("list overdue loans: %w", err)
		}

		for _, instance := range overdue {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := recorder.LogOverdue(ctx, instance); err != nil {
				return fmt.Errorf("record overdue copy %d: %w", instance.ID, err)
			}
		}

		log.Printf("[TASK] Overdue sweep found %d overdue loans", len(overdue))
		return nil
	}
}

// NewSweepOverdueLoansQueue creates a backlite queue for overdue sweeps.
func NewSweepOverdueLoansQueue(lister OverdueLister, recorder OverdueRecorder) backlite.Queue {
	return backlite.NewQueue(SweepOverdueLoansProcessor(lister, recorder))
}
