package infra

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultAuditSchedule runs the ledger audit at the top of every hour (seconds field first)
const DefaultAuditSchedule = "0 0 * * * *"

// Job is a unit of scheduled work
type Job func(ctx context.Context) error

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu      sync.Mutex
	running map[string]bool
}

// NewScheduler creates a new scheduler. timeout bounds each job run; <= 0 means no bound.
func NewScheduler(timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		timeout: timeout,
		running: make(map[string]bool),
	}
}

// Register adds job under name on spec. A run that is still going when the next tick fires is skipped.
func (s *Scheduler) Register(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	if err != nil {
		return err
	}
	log.Printf("[OK] Scheduled %s: %s", name, spec)
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		log.Printf("[WARN] %s still running, skipping tick", name)
		return
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running[name] = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Printf("[CRON] %s triggered", name)
	if err := job(ctx); err != nil {
		log.Printf("[ERR] Scheduled %s failed: %v", name, err)
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[OK] Scheduler started successfully")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	<-s.cron.Stop().Done()
	log.Println("[OK] Scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
