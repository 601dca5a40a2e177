package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-chat-gate/internal/application"
	"telegram-chat-gate/internal/config"
	"telegram-chat-gate/internal/domain/ports/adapter"
	"telegram-chat-gate/internal/domain/ports/repository"
	"telegram-chat-gate/internal/infra/adapters/sheets"
	"telegram-chat-gate/internal/infra/adapters/telegram"
	"telegram-chat-gate/internal/infra/db/memory"
	"telegram-chat-gate/internal/infra/db/postgres"
	adminhttp "telegram-chat-gate/internal/infra/http"
	"telegram-chat-gate/internal/infra/locker"
	"telegram-chat-gate/internal/infra/logging"
	"telegram-chat-gate/internal/infra/metrics"
	red "telegram-chat-gate/internal/infra/redis"
	"telegram-chat-gate/internal/infra/sched"
	"telegram-chat-gate/internal/usecase"
)

const expirySweepInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	dev := flag.Bool("dev", false, "dev mode: console logs, relaxed fallbacks")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, *dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Records: Postgres when configured, process-local map otherwise.
	var records repository.UserRecordRepository
	if cfg.Database.URL != "" {
		pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connect failed")
		}
		defer pool.Close()
		records = postgres.NewPostgresUserRecordRepo(pool)
	} else {
		logger.Warn().Msg("database.url not set, using in-memory records")
		records = memory.NewUserRecordRepo()
	}

	// Locks and rate limiting ride on Redis when available.
	var locks adapter.Locker
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer rc.Close()
		locks = red.NewLocker(rc)
		limiter = red.NewRateLimiter(rc)
	} else {
		logger.Warn().Msg("redis.url not set, using in-process locks and no rate limiting")
		locks = locker.NewKeyed()
	}

	// Audit sink: Google Sheets when configured, log-only otherwise.
	var sink adapter.AuditSink
	if cfg.Audit.SpreadsheetID != "" {
		creds, err := cfg.Audit.ResolveAuditCredentials()
		if err != nil {
			logger.Fatal().Err(err).Msg("audit credentials invalid")
		}
		s, err := sheets.NewSink(ctx, creds, cfg.Audit.SpreadsheetID, cfg.Audit.Sheet, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("sheets sink init failed")
		}
		sink = s
	} else {
		logger.Warn().Msg("audit.spreadsheet_id not set, audit rows go to the log only")
		sink = sheets.NewNoopSink(logger)
	}

	ledger := usecase.NewLedgerUseCase(records, sink, locks, cfg.Gate, logger)
	filter := usecase.NewFilterUseCase()
	facade := application.NewBotFacade(filter, ledger, cfg.Gate, logger)

	var gateway adapter.ChatGateway
	if cfg.Bot.Mode == "noop" {
		logger.Warn().Msg("bot.mode=noop, outgoing telegram traffic is logged and dropped")
		gateway = telegram.NewNoopBotAdapter(logger)
	} else {
		bot, err := telegram.NewRealBotAdapter(&cfg.Bot, facade, limiter, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram init failed")
		}
		gateway = bot
		go func() {
			if err := bot.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("telegram polling stopped")
				stop()
			}
		}()
	}

	sweeper := sched.NewExpiryWorker(records, gateway, expirySweepInterval, logger)
	go sweeper.Start(ctx)

	admin := adminhttp.NewServer(cfg.Admin.Port, logger)
	go func() {
		if err := admin.Start(); err != nil {
			logger.Error().Err(err).Msg("admin http server failed")
			stop()
		}
	}()

	logger.Info().
		Str("mode", cfg.Bot.Mode).
		Int("workers", cfg.Bot.Workers).
		Msg("service started")

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin http shutdown")
	}
	logger.Info().Msg("bye")
}
