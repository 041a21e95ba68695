package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a named maintenance task fired on a cron spec.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	Register(spec string, job Job) error
	Start(ctx context.Context)
	Stop()
}

// CronScheduler runs jobs on 5-field cron specs. A firing is skipped when
// the previous run of the same job has not returned yet.
type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{cron: cron.New(cron.WithParser(parser))}
}

func (s *CronScheduler) Register(spec string, job Job) error {
	guard := &jobGuard{scheduler: s, job: job, spec: spec}
	if _, err := s.cron.AddFunc(spec, guard.fire); err != nil {
		logutil.GetLogger(context.Background()).Error("register cron job failed",
			zap.String("job", job.Name()), zap.String("spec", spec), zap.Error(err))
		return err
	}
	logutil.GetLogger(context.Background()).Info("cron job registered",
		zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

// Start begins firing jobs; ctx is handed to every run.
func (s *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

type jobGuard struct {
	scheduler *CronScheduler
	job       Job
	spec      string
	running   atomic.Bool
}

func (g *jobGuard) fire() {
	ctx := g.scheduler.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("job", g.job.Name()),
		zap.String("spec", g.spec),
	)
	if !g.running.CompareAndSwap(false, true) {
		logger.Info("job skipped: previous run still in flight")
		return
	}
	defer g.running.Store(false)

	start := time.Now()
	logger.Info("job started")
	if err := g.job.Run(ctx); err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	logger.Info("job finished", zap.Duration("duration", time.Since(start)))
}
