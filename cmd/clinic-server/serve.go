package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/clinic-patients/internal/config"
	"github.com/iliyamo/clinic-patients/internal/database"
	"github.com/iliyamo/clinic-patients/internal/handler"
	"github.com/iliyamo/clinic-patients/internal/mailer"
	"github.com/iliyamo/clinic-patients/internal/middleware"
	"github.com/iliyamo/clinic-patients/internal/queue"
	"github.com/iliyamo/clinic-patients/internal/ratelimit"
	"github.com/iliyamo/clinic-patients/internal/repository"
	"github.com/iliyamo/clinic-patients/internal/router"
	"github.com/iliyamo/clinic-patients/internal/service"
	"github.com/iliyamo/clinic-patients/internal/utils"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info().Str("db", cfg.DBName).Msg("connected to database")

	// Login attempt counters
	var limitStore ratelimit.Store
	ready := &handler.ReadyHandler{DB: db}
	if cfg.LoginRateLimit.UseRedis() {
		if rdb := config.NewRedisClient(cfg.Redis); rdb != nil {
			defer rdb.Close()
			limitStore = ratelimit.NewRedisStore(rdb, cfg.LoginRateLimit.Prefix)
			ready.Redis = rdb
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("login rate limit counters in redis")
		} else {
			logger.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unreachable, falling back to in-memory rate limit counters")
		}
	}
	if limitStore == nil {
		mem := ratelimit.NewMemoryStore()
		go mem.RunJanitor(ctx, time.Minute)
		limitStore = mem
	}

	// Reset emails
	var notifier mailer.Notifier
	if cfg.Mail.Enabled() {
		notifier = mailer.NewSMTPNotifier(cfg.Mail, cfg.ResetTokenTTL)
	} else {
		logger.Warn().Msg("SMTP_HOST not set, password reset links will be logged")
		notifier = mailer.NewLogNotifier(logger)
	}

	// Audit events
	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.Queue.Enabled {
		amqpPub := queue.NewAMQPPublisher(cfg.Queue.URL, cfg.Queue.AuditQueue)
		defer amqpPub.Close()
		publisher = amqpPub
	}

	users := repository.NewUserRepo(db)
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)

	authSvc, err := service.NewAuthService(users, hasher, tokens, logger)
	if err != nil {
		return err
	}
	resetSvc := service.NewPasswordResetService(users, repository.NewPasswordResetRepo(db), hasher,
		notifier, cfg.AppURL, cfg.ResetTokenTTL, logger)
	patientSvc := service.NewPatientService(repository.NewPatientRepo(db), publisher, logger)

	proxies, err := config.ParseCIDRs(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	deps := router.Deps{
		Log:          logger,
		Auth:         handler.NewAuthHandler(authSvc, resetSvc),
		Patients:     handler.NewPatientHandler(patientSvc),
		Ready:        ready,
		Authn:        middleware.NewAuthenticator(tokens),
		LoginLimiter: middleware.LoginLimiter(cfg.LoginRateLimit, limitStore, logger),
		CORSOrigins:  cfg.CORSOrigins,
		StaticDir:    cfg.StaticDir,
		Secure:       cfg.IsProduction(),
	}
	deps.TrustedProxies = proxies
	if cfg.APIRateLimit.RPS > 0 {
		apiLimiter := middleware.NewIPRateLimiter(cfg.APIRateLimit)
		go apiLimiter.RunJanitor(ctx, time.Minute, 10*time.Minute)
		deps.APILimiter = apiLimiter.Middleware()
	}
	e := router.New(deps)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
