package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/tasks"
)

// Job names.
const (
	JobOverdueSweep = "overdue_sweep"
	JobAuditCleanup = "audit_cleanup"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer hands a task to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// Job is a periodic task. Jobs with an empty schedule are skipped.
type Job struct {
	Name     string
	Schedule string
	NewTask  func() backlite.Task
}

// MaintenanceScheduler enqueues the library's periodic jobs (overdue loan
// sweep, audit log cleanup) on their cron schedules. The work itself runs
// on the task queue workers.
type MaintenanceScheduler struct {
	queue Enqueuer
	jobs  []Job

	cron      *cron.Cron
	entries   map[string]cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

// DefaultJobs builds the overdue sweep and audit cleanup jobs from config.
func DefaultJobs(cfg config.Scheduler, retentionDays int) []Job {
	return []Job{
		{
			Name:     JobOverdueSweep,
			Schedule: cfg.OverdueSchedule,
			NewTask:  func() backlite.Task { return tasks.SweepOverdueLoansTask{} },
		},
		{
			Name:     JobAuditCleanup,
			Schedule: cfg.AuditSchedule,
			NewTask:  func() backlite.Task { return tasks.CleanupAuditEventsTask{RetentionDays: retentionDays} },
		},
	}
}

// NewMaintenanceScheduler creates a stopped scheduler.
func NewMaintenanceScheduler(queue Enqueuer, jobs ...Job) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		queue:   queue,
		jobs:    jobs,
		cron:    cron.New(cron.WithParser(cronParser)),
		entries: make(map[string]cron.EntryID),
	}
}

// Start validates every schedule and starts the cron loop. The scheduler
// stops when ctx is cancelled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	for _, job := range s.jobs {
		if job.Schedule == "" {
			log.Printf("Maintenance scheduler: %s disabled (no schedule)", job.Name)
			continue
		}
		if err := ValidateCronSchedule(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Name, err)
		}
		job := job
		entryID, err := s.cron.AddFunc(job.Schedule, func() {
			s.enqueue(context.Background(), job)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		s.entries[job.Name] = entryID

		nextRun, _ := GetNextRunTime(job.Schedule)
		log.Printf("Maintenance scheduler: %s scheduled '%s' (%s). Next run: %v",
			job.Name, job.Schedule, GetCronDescription(job.Schedule), nextRun)
	}

	s.cron.Start()
	s.isRunning = true

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for running cron callbacks and stops the scheduler.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	s.isRunning = false

	log.Printf("Maintenance scheduler: stopped")
}

// RunNow enqueues the named job immediately and returns the task ID.
func (s *MaintenanceScheduler) RunNow(ctx context.Context, name string) (string, error) {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.enqueue(ctx, job)
		}
	}
	return "", fmt.Errorf("unknown job: %s", name)
}

// IsRunning returns whether the scheduler is active
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRuns returns the next run time of every scheduled job.
func (s *MaintenanceScheduler) NextRuns() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Time, len(s.entries))
	if !s.isRunning {
		return out
	}
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// JobNames lists the configured jobs in name order.
func (s *MaintenanceScheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		names = append(names, job.Name)
	}
	sort.Strings(names)
	return names
}

func (s *MaintenanceScheduler) enqueue(ctx context.Context, job Job) (string, error) {
	id, err := s.queue.Enqueue(ctx, job.NewTask())
	if err != nil {
		log.Printf("Maintenance scheduler: failed to enqueue %s: %v", job.Name, err)
		return "", err
	}
	log.Printf("Maintenance scheduler: enqueued %s (task %s)", job.Name, id)
	return id, nil
}

// ValidateCronSchedule checks a 5-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 0 * * *":
		return "Daily at midnight"
	case "0 6 * * *":
		return "Daily at 06:00"
	case "30 3 * * *":
		return "Daily at 03:30"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates the next run time for a cron schedule
func GetNextRunTime(schedule string) (*time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(time.Now())
	return &next, nil
}
