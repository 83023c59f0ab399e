package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"linkcheck/internal/accounts"
	"linkcheck/internal/api"
	"linkcheck/internal/config"
	"linkcheck/internal/governor"
	"linkcheck/internal/monitoring"
	"linkcheck/internal/report"
	"linkcheck/internal/runner"
	"linkcheck/internal/session"
	"linkcheck/internal/storage"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	browser, err := session.ParseBrowser(cfg.Browser)
	if err != nil {
		logger.Fatal("invalid browser choice", zap.Error(err))
	}

	// Build the credential pool
	pool := accounts.NewPool(logger)
	if cfg.PrimaryEmail != "" || cfg.PrimaryPassword != "" {
		if !pool.SetPrimary(cfg.PrimaryEmail, cfg.PrimaryPassword) {
			logger.Fatal("invalid primary credentials")
		}
	}
	for _, pair := range strings.Split(cfg.ExtraAccounts, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, secret, ok := strings.Cut(pair, ":")
		if !ok {
			logger.Warn("malformed extra account entry, expected email:secret", zap.String("entry", pair))
			continue
		}
		pool.AddAdditional(email, secret)
	}

	// Optional persistence backends
	var audit *storage.AuditStore
	if cfg.PostgresURL != "" {
		audit, err = storage.NewAuditStore(cfg.PostgresURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer audit.Close()
	}
	var cache *storage.CheckCache
	if cfg.RedisAddr != "" {
		cache = storage.NewCheckCache(cfg.RedisAddr)
		defer cache.Close()
	}

	// Core components
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	agents := session.NewAgentRotor()
	factory := func() session.Driver {
		return session.NewChromeDriver(browser, cfg.Headless, agents.Next(), cfg.NavTimeout(), logger)
	}
	controller := session.NewController(factory, cfg.LoginTimeout(), logger)
	gov := governor.New(cfg.ErrorTripThreshold, cfg.Cooldown(), logger)
	writer := report.NewWriter(cfg.OutputDir, logger)
	orch := runner.New(cfg, pool, gov, controller, writer, audit, cache, metrics, logger)

	// Control/metrics server
	server := api.NewServer(cfg, orch, audit, cache, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()
	logger.Info("control server started", zap.String("port", cfg.ServerPort))

	go consumeEvents(orch, logger)

	runDone := make(chan error, 1)
	go func() {
		_, runErr := orch.Run(context.Background())
		runDone <- runErr
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.Info("signal received, stopping run", zap.String("signal", sig.String()))
		orch.Stop()
		if err := <-runDone; err != nil {
			logger.Error("run ended with error", zap.Error(err))
			exitCode = 1
		}
	case err := <-runDone:
		if err != nil {
			logger.Error("run ended with error", zap.Error(err))
			exitCode = 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
	logger.Sync()
	os.Exit(exitCode)
}

func consumeEvents(orch *runner.Orchestrator, logger *zap.Logger) {
	for ev := range orch.Events() {
		switch ev.Kind {
		case runner.EventProgress:
			logger.Info("progress",
				zap.Int("processed", ev.Stats.TotalProcessed),
				zap.Int("working", ev.Stats.WorkingFound),
				zap.Int("failed", ev.Stats.FailedOrInvalid+ev.Stats.RateLimitSuspected),
				zap.String("account", ev.Account),
				zap.Int("account_links", ev.AccountLinks))
		case runner.EventCooldown:
			logger.Warn("cooldown engaged", zap.Duration("remaining", ev.CooldownRemaining))
		case runner.EventRotation:
			logger.Info("account rotated", zap.String("account", ev.Account))
		case runner.EventCompleted:
			fields := []zap.Field{zap.String("state", string(ev.State))}
			if ev.Paths != nil {
				if ev.Paths.WorkingFile != "" {
					fields = append(fields, zap.String("working_file", ev.Paths.WorkingFile))
				}
				if ev.Paths.JSONFile != "" {
					fields = append(fields, zap.String("json_file", ev.Paths.JSONFile))
				}
			}
			logger.Info("run completed", fields...)
		}
	}
}
