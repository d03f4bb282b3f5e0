package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/hospital-appointment-booking/internal/api"
	"github.com/hackgods/hospital-appointment-booking/internal/appointment"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
	"github.com/hackgods/hospital-appointment-booking/internal/config"
	"github.com/hackgods/hospital-appointment-booking/internal/db"
	"github.com/hackgods/hospital-appointment-booking/internal/directory"
	"github.com/hackgods/hospital-appointment-booking/internal/feedback"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
	"github.com/hackgods/hospital-appointment-booking/internal/realtime"
	redisclient "github.com/hackgods/hospital-appointment-booking/internal/redis"
	"github.com/hackgods/hospital-appointment-booking/internal/user"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").WithError(err).Fatal("config load error")
	}

	log := logger.New(cfg.LogLevel)
	log.WithField("env", cfg.Env).WithField("http_port", cfg.HTTPPort).Info("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, time.Minute)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresPool(), log)
	cancelPg()
	if err != nil {
		log.WithError(err).Fatal("postgres connection error")
	}
	defer pgPool.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migrateCtx, pgPool)
	cancelMigrate()
	if err != nil {
		log.WithError(err).Fatal("schema migration error")
	}
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

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	blobs := blob.NewPgStore(pgPool, cfg.UploadMaxBytes)

	appointments := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		redisclient.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait),
		redisclient.NewRedisMarker(rdb),
		cfg,
		log,
	)
	users := user.NewService(
		user.NewPgRepository(pgPool),
		blobs,
		issuer,
		user.NewLogResetNotifier(log),
		cfg,
		log,
	)

	router := api.NewRouter(api.RouterConfig{
		Users:        users,
		Directory:    directory.NewService(directory.NewPgRepository(pgPool), blobs, log),
		Appointments: appointments,
		Feedback:     feedback.NewService(feedback.NewPgRepository(pgPool), log),
		Blobs:        blobs,
		Hub:          realtime.NewHub(cfg.AllowedOrigins, log),
		Issuer:       issuer,
		Log:          log,

		PostgresCheck:  pgPool.Ping,
		RedisCheck:     func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		AllowedOrigins: cfg.AllowedOrigins,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Env:            cfg.Env,
		Version:        version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("http server error")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		os.Exit(1)
	}

	log.Info("api-server stopped")
}
