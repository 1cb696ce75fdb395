// Package scheduler fires stored cron tasks into the message pipeline.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"chathub/internal/domain"
	"chathub/internal/store"
)

// Dispatcher accepts messages the way a transport would.
type Dispatcher interface {
	SendToThread(ctx context.Context, req domain.SendMessageRequest) (*domain.SendMessageResponse, error)
}

// Timeout for a single task dispatch.
const dispatchTimeout = 30 * time.Second

// Scheduler registers stored tasks with a cron runner and keeps the two in
// sync as tasks are created and deleted.
type Scheduler struct {
	cron       *cron.Cron
	store      store.Store
	dispatcher Dispatcher
	log        logrus.FieldLogger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a scheduler.
func New(st store.Store, dispatcher Dispatcher, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		store:      st,
		dispatcher: dispatcher,
		log:        log,
		entries:    make(map[string]cron.EntryID),
	}
}

// Start loads stored tasks and begins firing them.
func (s *Scheduler) Start(ctx context.Context) error {
	tasks, err := s.store.ListScheduledTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled tasks: %w", err)
	}
	for i := range tasks {
		if err := s.Add(&tasks[i]); err != nil {
			s.log.Warnf("Skipping scheduled task %s (%s): %v", tasks[i].TaskID, tasks[i].Name, err)
		}
	}
	s.cron.Start()
	s.log.Infof("Scheduler started with %d tasks", len(s.entries))
	return nil
}

// Stop halts the cron runner and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Add registers a task with the cron runner.
func (s *Scheduler) Add(task *domain.ScheduledTask) error {
	t := *task
	entryID, err := s.cron.AddFunc(t.CronExpr, func() { s.fire(&t) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", t.CronExpr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[t.TaskID]; ok {
		s.cron.Remove(old)
	}
	s.entries[t.TaskID] = entryID
	return nil
}

// Remove unregisters a task.
func (s *Scheduler) Remove(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[taskID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, taskID)
	}
}

func (s *Scheduler) fire(task *domain.ScheduledTask) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	s.log.Infof("Firing scheduled task %s (%s)", task.TaskID, task.Name)
	_, err := s.dispatcher.SendToThread(ctx, domain.SendMessageRequest{
		Source:   "cron",
		SourceID: task.TaskID,
		Content:  task.Prompt,
		Model:    task.Model,
	})
	if err != nil {
		s.log.Errorf("Scheduled task %s failed to dispatch: %v", task.TaskID, err)
	}
}
