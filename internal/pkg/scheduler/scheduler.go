package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2/log"
)

// JobSweep is the name of the daily subscription expiry sweep.
const JobSweep = "billing-expiry-sweep"

// Sweeper performs one expiry sweep.
type Sweeper interface {
	Run(ctx context.Context) (int64, error)
}

// Scheduler runs the recurring background tasks of the service
type Scheduler struct {
	cron    gocron.Scheduler
	timeout time.Duration
	mu      sync.Mutex
	running bool
}

// New creates a scheduler working in UTC.
func New() (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{cron: cron, timeout: 10 * time.Minute}, nil
}

// RegisterDaily adds a task running once per day at hour:minute UTC.
// Runs never overlap; a run that is still busy when the next one is due
// pushes that one to the following day.
func (s *Scheduler) RegisterDaily(name string, hour, minute uint, task func(ctx context.Context) error) error {
	if hour > 23 || minute > 59 {
		return fmt.Errorf("invalid time %02d:%02d for job %s", hour, minute, name)
	}

	_, err := s.cron.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			if err := task(ctx); err != nil {
				log.Errorf("[Scheduler] Job %s failed: %v", name, err)
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}
	log.Infof("[Scheduler] Registered %s daily at %02d:%02d UTC", name, hour, minute)
	return nil
}

// RegisterSweep schedules the expiry sweep.
func (s *Scheduler) RegisterSweep(sweeper Sweeper, hour, minute uint) error {
	return s.RegisterDaily(JobSweep, hour, minute, func(ctx context.Context) error {
		_, err := RunSweepOnce(ctx, sweeper)
		return err
	})
}

// RunSweepOnce executes one sweep and logs the outcome. The error is
// returned for callers that report it, it never panics the process.
func RunSweepOnce(ctx context.Context, sweeper Sweeper) (changed int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("expiry sweep panicked: %v", r)
			log.Errorf("[Scheduler] %v", err)
		}
	}()

	changed, err = sweeper.Run(ctx)
	if err != nil {
		log.Errorf("[Scheduler] Expiry sweep failed: %v", err)
		return 0, err
	}
	return changed, nil
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.cron.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// Start begins executing registered jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	log.Info("[Scheduler] Started")
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	log.Info("[Scheduler] Stopped")
	return nil
}
