package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/tasks"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (q *recordingQueue) Enqueue(ctx context.Context, task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

func TestDefaultJobs(t *testing.T) {
	jobs := DefaultJobs(config.Scheduler{OverdueSchedule: "0 6 * * *", AuditSchedule: "30 3 * * *"}, 14)
	require.Len(t, jobs, 2)

	assert.Equal(t, JobOverdueSweep, jobs[0].Name)
	assert.IsType(t, tasks.SweepOverdueLoansTask{}, jobs[0].NewTask())
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 14}, jobs[1].NewTask())
}

func TestStartStop(t *testing.T) {
	q := &recordingQueue{}
	s := NewMaintenanceScheduler(q, DefaultJobs(config.Scheduler{OverdueSchedule: "0 6 * * *", AuditSchedule: ""}, 90)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	next := s.NextRuns()
	assert.Contains(t, next, JobOverdueSweep)
	assert.NotContains(t, next, JobAuditCleanup, "empty schedule disables the job")
	assert.True(t, next[JobOverdueSweep].After(time.Now()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.NextRuns())
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewMaintenanceScheduler(&recordingQueue{}, Job{Name: "bad", Schedule: "not a cron", NewTask: func() backlite.Task { return tasks.SweepOverdueLoansTask{} }})

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "bad")
	assert.False(t, s.IsRunning())
}

func TestRunNow(t *testing.T) {
	q := &recordingQueue{}
	s := NewMaintenanceScheduler(q, DefaultJobs(config.Scheduler{}, 30)...)

	id, err := s.RunNow(context.Background(), JobAuditCleanup)
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)
	require.Len(t, q.tasks, 1)
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 30}, q.tasks[0])

	_, err = s.RunNow(context.Background(), "reindex")
	assert.Error(t, err)

	q.err = errors.New("queue closed")
	_, err = s.RunNow(context.Background(), JobOverdueSweep)
	assert.Error(t, err)
}

func TestJobNames(t *testing.T) {
	s := NewMaintenanceScheduler(nil, DefaultJobs(config.Scheduler{}, 30)...)
	assert.Equal(t, []string{JobAuditCleanup, JobOverdueSweep}, s.JobNames())
}

func TestCronHelpers(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("*/5 * * * *"))
	assert.Error(t, ValidateCronSchedule("* * *"))
	assert.Equal(t, "Daily at 06:00", GetCronDescription("0 6 * * *"))
	assert.Equal(t, "Custom schedule: 1 2 3 4 5", GetCronDescription("1 2 3 4 5"))

	next, err := GetNextRunTime("0 0 * * *")
	require.NoError(t, err)
	assert.Equal(t, 0, next.Hour())
}
