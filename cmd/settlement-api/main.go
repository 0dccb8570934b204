package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/app"
	httpapi "github.com/radieske/bet-settlement-engine/internal/settlement/http"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
)

func main() {
	_ = godotenv.Load()

	// carrega config
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-api"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()
	a, err := app.Build(ctx, cfg, log, reg)
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	defer a.Close()

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, a.Health)

	api := httpapi.NewServer(log, a.Coordinator, a.Store, a.Ledger)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("settlement-api listening", zap.String("addr", srv.Addr), zap.String("metrics", msrv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	_ = msrv.Shutdown(sctx)
	log.Info("settlement-api stopped")
}
