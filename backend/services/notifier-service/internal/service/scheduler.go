package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const scheduledJobTimeout = 2 * time.Minute

// ScheduleSpec holds cron expressions; an empty spec disables that job.
type ScheduleSpec struct {
	Poll       string
	DailyReset string
	Timezone   string
}

// Scheduler triggers poll passes and the daily reset from cron.
type Scheduler struct {
	cron   *cron.Cron
	svc    *NotifierService
	logger *zap.Logger
	ctx    context.Context
}

// NewScheduler validates specs and registers jobs. Jobs that are still running when
// their next tick arrives are skipped.
func NewScheduler(svc *NotifierService, spec ScheduleSpec, logger *zap.Logger) (*Scheduler, error) {
	loc := time.UTC
	if spec.Timezone != "" {
		l, err := time.LoadLocation(spec.Timezone)
		if err != nil {
			return nil, fmt.Errorf("scheduler: load timezone: %w", err)
		}
		loc = l
	}

	cl := cronLogger{l: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		svc:    svc,
		logger: logger,
		ctx:    context.Background(),
	}

	if spec.Poll != "" {
		if _, err := s.cron.AddFunc(spec.Poll, s.runPoll); err != nil {
			return nil, fmt.Errorf("scheduler: poll spec %q: %w", spec.Poll, err)
		}
	}
	if spec.DailyReset != "" {
		if _, err := s.cron.AddFunc(spec.DailyReset, s.runDailyReset); err != nil {
			return nil, fmt.Errorf("scheduler: daily reset spec %q: %w", spec.DailyReset, err)
		}
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Run starts the cron loop and blocks until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", s.Jobs()))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runPoll() {
	ctx, cancel := context.WithTimeout(s.ctx, scheduledJobTimeout)
	defer cancel()
	result, err := s.svc.Poll(ctx)
	if err != nil {
		s.logger.Error("scheduled poll failed", zap.Error(err))
		return
	}
	s.logger.Debug("scheduled poll", zap.String("summary", result.Summary()))
}

func (s *Scheduler) runDailyReset() {
	ctx, cancel := context.WithTimeout(s.ctx, scheduledJobTimeout)
	defer cancel()
	if _, err := s.svc.ResetDaily(ctx); err != nil {
		s.logger.Error("scheduled daily reset failed", zap.Error(err))
	}
}

type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
