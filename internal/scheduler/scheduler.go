package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/forecast-crud/internal/crud"
)

// Refresher re-reads the forecast list.
type Refresher interface {
	Refresh(ctx context.Context) []crud.Message
}

// Scheduler periodically refreshes a view.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	timeout   time.Duration
	log       *zap.SugaredLogger

	// OnRefresh, when set, receives the messages of every run.
	OnRefresh func([]crud.Message)
}

// New creates a new Scheduler. Runs never overlap, so the target need not
// be safe for concurrent use.
func New(target Refresher, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		scheduler: s,
		target:    target,
		interval:  interval,
		timeout:   30 * time.Second,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if s.target == nil {
		return errors.New("scheduler: nothing to refresh")
	}

	interval := s.interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	_, err := s.scheduler.Every(interval).Do(s.run)
	if err != nil {
		return err
	}

	s.log.Infow("scheduler started", "interval", interval)
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	msgs := s.target.Refresh(ctx)
	if crud.Failed(msgs) {
		s.log.Warnw("scheduler: refresh failed", "messages", msgs)
	} else {
		s.log.Debug("scheduler: refresh completed")
	}
	if s.OnRefresh != nil {
		s.OnRefresh(msgs)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
