package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/hospital-appointment-booking/internal/appointment"
	"github.com/hackgods/hospital-appointment-booking/internal/config"
	"github.com/hackgods/hospital-appointment-booking/internal/db"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
	redisclient "github.com/hackgods/hospital-appointment-booking/internal/redis"
	"github.com/hackgods/hospital-appointment-booking/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "run both reminder sweeps once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info").WithError(err).Fatal("config load error")
	}

	log := logger.New(cfg.LogLevel)

	clock, err := worker.ParseClock(cfg.ReminderAt)
	if err != nil {
		log.WithError(err).Fatal("invalid REMINDER_AT")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("invalid TIMEZONE")
	}

	log.WithField("env", cfg.Env).
		WithField("reminder_at", clock.String()).
		WithField("timezone", loc.String()).
		Info("reminder-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, time.Minute)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresPool(), log)
	cancelPg()
	if err != nil {
		log.WithError(err).Fatal("postgres connection error")
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg)
	if err != nil {
		log.WithError(err).Fatal("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Warn("error closing redis")
		}
	}()
	log.Info("connected to Redis")

	svc := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		redisclient.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait),
		redisclient.NewRedisMarker(rdb),
		cfg,
		log,
	)

	daily := worker.NewDaily("reminders", clock, loc, 5*time.Minute, log)
	job := sweeps(svc, log)

	if *once {
		daily.RunOnce(rootCtx, job)
		return
	}

	if err := daily.Run(rootCtx, job); err != nil {
		log.WithError(err).Fatal("scheduler error")
	}
	log.Info("reminder-worker stopped")
}

// sweeps runs the same-day sweep then the next-day sweep. A failing sweep
// does not stop the other.
func sweeps(svc *appointment.Service, log *logger.Logger) worker.Job {
	return func(ctx context.Context) error {
		var firstErr error
		for _, s := range []struct {
			name string
			run  func(context.Context) (appointment.SweepResult, error)
		}{
			{"today", svc.SendTodayReminders},
			{"tomorrow", svc.SendTomorrowReminders},
		} {
			res, err := s.run(ctx)
			entry := log.WithComponent("reminders").
				WithField("sweep", s.name).
				WithField("day", res.Day).
				WithField("scanned", res.Scanned).
				WithField("sent", res.Sent).
				WithField("skipped", res.Skipped).
				WithField("failed", res.Failed)
			if err != nil {
				entry.WithError(err).Error("sweep failed")
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			entry.Info("sweep finished")
		}
		return firstErr
	}
}
