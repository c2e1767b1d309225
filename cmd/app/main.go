package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"glory-ledger/internal/config"
	"glory-ledger/internal/domain/ports/repository"
	"glory-ledger/internal/infra/api"
	"glory-ledger/internal/infra/api/apiv1"
	"glory-ledger/internal/infra/db/memory"
	pg "glory-ledger/internal/infra/db/postgres"
	"glory-ledger/internal/infra/logging"
	"glory-ledger/internal/infra/metrics"
	red "glory-ledger/internal/infra/redis"
	"glory-ledger/internal/infra/sched"
	"glory-ledger/internal/infra/web"
	"glory-ledger/internal/usecase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

type stores struct {
	users    repository.UserRepository
	requests repository.PurchaseRequestRepository
	coupons  repository.CouponRepository
	tm       repository.TransactionManager
	health   api.HealthCheck
	close    func()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (memory store, console logs)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting glory-ledger")

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	prices, err := cfg.PriceTable()
	if err != nil {
		logger.Fatal().Err(err).Msg("pricing")
	}

	// ---- Storage ----
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}
	defer st.close()

	// ---- Redis (optional) ----
	var (
		limiter usecase.Limiter
		locker  usecase.Locker
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
		logger.Info().Msg("redis lock and rate limiter enabled")
	}

	// ---- Use cases ----
	ledgerUC := usecase.NewLedgerUseCase(st.users, st.requests, st.tm, limiter, usecase.LedgerOptions{
		Prices:       prices,
		SubmitLimit:  cfg.Limits.SubmitPerWindow,
		SubmitWindow: cfg.Limits.SubmitWindow,
		Dev:          cfg.Runtime.Dev,
	}, logger)
	reconcileUC := usecase.NewReconciliationUseCase(ledgerUC, st.users, st.tm, locker, cfg.Redis.LockTTL, logger)
	couponUC := usecase.NewCouponUseCase(st.coupons, st.users, st.tm, logger)
	userUC := usecase.NewUserUseCase(st.users, st.tm, logger)

	// ---- Pending monitor ----
	monitor := sched.NewPendingMonitor(st.requests, cfg.Scheduler.PendingScanInterval, cfg.Scheduler.StaleAfter, logger)
	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("pending monitor stopped")
		}
	}()

	// ---- HTTP ----
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		logger.Warn().Msg("auth.jwt_secret not set; falling back to dev secret (INSECURE)")
		secret = "glory-ledger-dev-secret"
	}
	auth := web.NewAuthManager(secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	router := api.NewRouter(api.RouterDeps{
		API:            apiv1.NewServer(ledgerUC, reconcileUC, couponUC, userUC, logger),
		Auth:           auth,
		Health:         st.health,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Logger:         logger,
	})
	server := api.NewServer(cfg.HTTP.Port, router, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*stores, error) {
	if cfg.UseMemoryStore() {
		logger.Warn().Msg("no database url in dev mode; using in-memory store")
		s := memory.NewStore()
		return &stores{
			users:    s.Users(),
			requests: s.Requests(),
			coupons:  s.Coupons(),
			tm:       s,
			close:    func() {},
		}, nil
	}

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := pg.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info().Msg("database schema applied")
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	return &stores{
		users:    pg.NewUserRepo(pool),
		requests: pg.NewPurchaseRequestRepo(pool),
		coupons:  pg.NewCouponRepo(pool),
		tm:       pg.NewTxManager(pool),
		health:   pingPool(pool),
		close:    pool.Close,
	}, nil
}

func pingPool(pool *pgxpool.Pool) api.HealthCheck {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}
