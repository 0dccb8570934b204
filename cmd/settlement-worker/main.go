package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/app"
	"github.com/radieske/bet-settlement-engine/internal/settlement/consumer"
	"github.com/radieske/bet-settlement-engine/internal/settlement/coordinator"
	"github.com/radieske/bet-settlement-engine/internal/settlement/sweeper"
	"github.com/radieske/bet-settlement-engine/internal/shared/config"
	"github.com/radieske/bet-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bet-settlement-engine/internal/shared/logger"
	"github.com/radieske/bet-settlement-engine/internal/shared/metrics"
)

func main() {
	// .env é opcional
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()
	a, err := app.Build(ctx, cfg, log, reg)
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	defer a.Close()

	// Kafka consumer: match_finished dispara a resolução; falhas vão para a DLQ
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchFinished, cfg.ConsumerGroup)
	defer reader.Close()

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Facts:      a.Facts,
		Resolver:   a.Coordinator,
		Retries:    cfg.ConsumerRetries,
		Backoff:    cfg.ConsumerBackoff,
		OnConsumed: a.Metrics.MessageConsumed,
		OnError:    a.Metrics.ConsumerError,
		OnResolved: func(rep *coordinator.Report) {
			if len(rep.Resolutions) > 0 {
				log.Debug("match_finished resolved", zap.String("matchId", rep.MatchID), zap.Int("settled", len(rep.Resolutions)))
			}
		},
	}
	if dlq := a.NewDLQWriter(); dlq != nil {
		proc.DLQ = dlq
	}

	// Servidor HTTP para métricas Prometheus e healthcheck
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, a.Health)
	log.Info("metrics/health", zap.String("addr", msrv.Addr))

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicMatchFinished),
		zap.String("publish", cfg.TopicBetSettled),
		zap.String("lock", cfg.LockMode),
		zap.String("ledger", cfg.LedgerMode),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.New(log, a.Coordinator, cfg.SweepInterval, cfg.CreditRetryInterval).Start(ctx)
	}()

	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
		cancel()
	}
	wg.Wait()

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = msrv.Shutdown(sctx)
	log.Info("settlement-worker stopped")
}
