package services

import (
	"context"
	"time"

	"courtside/telemetry"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type SchedulerConfig struct {
	HPRegenInterval      time.Duration
	SessionSweepInterval time.Duration
}

// SchedulerService owns the periodic sweeps: HP regeneration, session expiry
// and the nightly HP decay.
type SchedulerService struct {
	HP       *HPService
	Sessions *SessionService
	Config   SchedulerConfig
	Logger   *zap.Logger

	sched gocron.Scheduler
}

func NewSchedulerService(hp *HPService, sessions *SessionService, cfg SchedulerConfig, logger *zap.Logger) *SchedulerService {
	return &SchedulerService{HP: hp, Sessions: sessions, Config: cfg, Logger: logger}
}

func (s *SchedulerService) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "create scheduler")
	}

	jobs := []struct {
		name string
		def  gocron.JobDefinition
		run  func(context.Context) error
	}{
		{"hp-regen", gocron.DurationJob(s.Config.HPRegenInterval), s.RunHPRegen},
		{"session-expiry", gocron.DurationJob(s.Config.SessionSweepInterval), s.RunSessionExpiry},
		{"hp-decay", gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))), s.RunHPDecay},
	}
	for _, j := range jobs {
		_, err := sched.NewJob(
			j.def,
			gocron.NewTask(func() {
				if err := j.run(ctx); err != nil {
					s.Logger.Error("scheduled job failed", zap.String("job", j.name), zap.Error(err))
				}
			}),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return errors.Wrapf(err, "schedule %s", j.name)
		}
	}

	s.sched = sched
	sched.Start()
	s.Logger.Info("scheduler started",
		zap.Duration("hp_regen_interval", s.Config.HPRegenInterval),
		zap.Duration("session_sweep_interval", s.Config.SessionSweepInterval))
	return nil
}

func (s *SchedulerService) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

func (s *SchedulerService) RunHPRegen(ctx context.Context) error {
	_, err := s.HP.RegenerateAll(ctx)
	return err
}

func (s *SchedulerService) RunHPDecay(ctx context.Context) error {
	_, err := s.HP.DecayInactive(ctx)
	return err
}

func (s *SchedulerService) RunSessionExpiry(ctx context.Context) error {
	ctx, span := telemetry.Tracer().Start(ctx, "sessions.expire_stale")
	defer span.End()
	_, err := s.Sessions.ExpireStale(ctx, utcNow())
	return err
}
